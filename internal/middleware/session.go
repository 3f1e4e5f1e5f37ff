package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/auth"
	"github.com/sakif/sweet-shop/internal/service"
)

// SessionResolver turns a raw token into an active session.
// *service.SessionStore satisfies it.
type SessionResolver interface {
	Current(ctx context.Context, token string) (*service.Session, error)
}

// contextKey is unexported so no other package can collide with our keys.
type contextKey struct{ name string }

var sessionKey = &contextKey{"session"}

// WithSession returns a copy of ctx carrying sess.
func WithSession(ctx context.Context, sess *service.Session) context.Context {
	return context.WithValue(ctx, sessionKey, sess)
}

// SessionFromContext returns the session stored by RequireSession or
// OptionalSession.
func SessionFromContext(ctx context.Context) (*service.Session, bool) {
	sess, ok := ctx.Value(sessionKey).(*service.Session)
	return sess, ok && sess != nil
}

// RequireSession rejects requests without a valid token with 401 and puts
// the resolved session in the request context otherwise.
func RequireSession(sessions SessionResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, err := sessions.Current(r.Context(), auth.TokenFromRequest(r))
			if err != nil {
				if !errors.Is(err, service.ErrNoSession) {
					logger.Warn("session lookup failed",
						slog.String("path", r.URL.Path),
						slog.String("error", err.Error()),
					)
				}
				unauthorized(w, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithSession(r.Context(), sess)))
		})
	}
}

// OptionalSession resolves the session when a token is present and lets
// anonymous requests through. A bad token is treated as no token.
func OptionalSession(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := auth.TokenFromRequest(r)
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			if sess, err := sessions.Current(r.Context(), token); err == nil {
				r = r.WithContext(WithSession(r.Context(), sess))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func unauthorized(w http.ResponseWriter, err error) {
	msg := "sign in first"
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   "unauthorized",
		"message": msg,
	})
}
