package handler

// RESPONSE HELPERS:
// These functions standardise how we send JSON responses and errors.
//
// CONSISTENT ERROR FORMAT:
// Every error response from our API has the same shape:
//   {"error": "not_found", "message": "item plum does not exist"}
//
// Clients (the mobile app, shopctl) always know what fields to expect,
// whatever the status code.

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/sakif/sweet-shop/internal/apperror"
)

// maxBodyBytes caps request bodies. A full profile with a long order history
// is the largest thing a client sends.
const maxBodyBytes = 1 << 20

// ErrorResponse is the standard error format returned by all API endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`           // Machine-readable error type (e.g., "not_found")
	Message string `json:"message"`         // Human-readable description
	Field   string `json:"field,omitempty"` // Set on validation errors
}

// writeJSON sends a JSON response with the given status code.
//
// HEADER ORDER MATTERS:
// Headers and status must be set BEFORE writing the body. Once Encode writes,
// the headers are sent and later changes are silently ignored.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("failed to encode JSON response", slog.String("error", err.Error()))
		}
	}
}

// writeError maps a domain error to the appropriate HTTP status code and sends it.
//
// ERROR MAPPING:
//
//	ErrValidation     → 400
//	ErrAuthentication → 401
//	ErrForbidden      → 403
//	ErrNotFound       → 404
//	ErrConflict       → 409
//	ErrFetch/ErrWrite → 503 (the document store is the failing party)
//	anything else     → 500 with a generic message
//
// ORDER MATTERS:
// A missing catalog item is a FetchError that also wraps ErrNotFound, so
// ErrNotFound is checked before ErrFetch to give the client a 404.
func writeError(w http.ResponseWriter, err error) {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		status := http.StatusInternalServerError
		errorType := "internal_error"

		switch {
		case errors.Is(err, apperror.ErrValidation):
			status = http.StatusBadRequest
			errorType = "validation_error"
		case errors.Is(err, apperror.ErrAuthentication):
			status = http.StatusUnauthorized
			errorType = "unauthorized"
		case errors.Is(err, apperror.ErrForbidden):
			status = http.StatusForbidden
			errorType = "forbidden"
		case errors.Is(err, apperror.ErrNotFound):
			status = http.StatusNotFound
			errorType = "not_found"
		case errors.Is(err, apperror.ErrConflict):
			status = http.StatusConflict
			errorType = "conflict"
		case errors.Is(err, apperror.ErrFetch):
			status = http.StatusServiceUnavailable
			errorType = "fetch_error"
		case errors.Is(err, apperror.ErrWrite):
			status = http.StatusServiceUnavailable
			errorType = "write_error"
		}

		if status == http.StatusInternalServerError {
			writeInternal(w, err)
			return
		}

		writeJSON(w, status, ErrorResponse{
			Error:   errorType,
			Message: appErr.Message,
			Field:   appErr.Field,
		})
		return
	}

	writeInternal(w, err)
}

// writeInternal logs err and sends a generic 500. Internal details (SQL,
// driver messages, file paths) never reach the client.
func writeInternal(w http.ResponseWriter, err error) {
	slog.Error("internal error", slog.String("error", err.Error()))
	writeJSON(w, http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "An internal error occurred",
	})
}

// decodeJSON reads a single JSON object from the request body into v.
// Unknown fields, trailing data and oversized bodies are validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return apperror.ValidationFailed("body", "request body must be a valid JSON object")
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return apperror.ValidationFailed("body", "request body must contain a single JSON object")
	}
	return nil
}
