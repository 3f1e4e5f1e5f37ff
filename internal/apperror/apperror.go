package apperror

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("Validation Error")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")

	// The data layer's own taxonomy. Every failure of a remote collaborator
	// (identity provider, document store) is converted to one of these before
	// it leaves the service package.
	ErrAuthentication = errors.New("authentication error")
	ErrFetch          = errors.New("fetch error")
	ErrWrite          = errors.New("write error")
)

type AppError struct {
	Err     error  // actual error
	Message string // Human-readable error message
	Field   string // Optional: field causing the error
	Cause   error  // Optional: the underlying failure, kept for logs only
}

func (e *AppError) Error() string {
	return e.Message
}

// Unwrap exposes both the sentinel and the cause, so errors.Is matches
// either apperror.ErrFetch or e.g. context.DeadlineExceeded.
func (e *AppError) Unwrap() []error {
	if e.Cause == nil {
		return []error{e.Err}
	}
	return []error{e.Err, e.Cause}
}

func NotFound(resource, id string) *AppError {
	return &AppError{
		Err:     ErrNotFound,
		Message: fmt.Sprintf("%s not found with id %s", resource, id),
	}
}

func ValidationFailed(field, message string) *AppError {
	return &AppError{
		Err:     ErrValidation,
		Message: message,
		Field:   field,
	}
}

func Conflict(resource, id string) *AppError {
	return &AppError{
		Err:     ErrConflict,
		Message: fmt.Sprintf("%s conflict with id %s", resource, id),
	}
}

// Forbidden returns an AppError indicating the caller lacks permission.
// HTTP handlers map this to 403 Forbidden.
func Forbidden(message string) *AppError {
	return &AppError{
		Err:     ErrForbidden,
		Message: message,
	}
}

// Authentication reports a failed sign-in, sign-up or token check.
// HTTP handlers map this to 401 Unauthorized.
func Authentication(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrAuthentication,
		Message: message,
		Cause:   cause,
	}
}

// Fetch reports a failed read from the document store.
func Fetch(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrFetch,
		Message: message,
		Cause:   cause,
	}
}

// Write reports a failed write to the document store.
func Write(message string, cause error) *AppError {
	return &AppError{
		Err:     ErrWrite,
		Message: message,
		Cause:   cause,
	}
}
