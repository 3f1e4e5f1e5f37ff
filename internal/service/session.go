// Package service is the storefront's data layer: the session store, the
// catalog accessor and the profile synchronizer.
//
// THE THREE-LAYER ARCHITECTURE:
//
//	Handler (HTTP layer)     → parses requests, writes responses
//	Service (Business layer) → validates, enforces rules, orchestrates
//	Repository (Data layer)  → reads/writes documents
//
// Services accept plain Go values and an explicit *Session, never
// *http.Request. The same calls serve the HTTP API and its tests.
//
// ERRORS:
// Every failure that leaves this package is an *apperror.AppError tagged
// ErrAuthentication, ErrFetch or ErrWrite (or ErrValidation for bad input),
// with a message fit to show a user. Raw driver errors stay inside as the
// AppError's Cause, so logs keep the detail and clients never see it.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/auth"
	"github.com/sakif/sweet-shop/internal/model"
)

// ErrNoSession is returned by Current when a token does not resolve to an
// active session.
var ErrNoSession = errors.New("no active session")

// Session is one signed-in identity plus its cached profile.
//
// A Session is passed explicitly to every profile and catalog call; there is
// no package-level "current user". The cached profile is guarded by mu for
// memory safety only. Two overlapping mutations on the same session can still
// overwrite each other's remote write (last writer wins).
type Session struct {
	Token     string
	UserID    string
	Email     string
	ExpiresAt time.Time

	token auth.Token

	mu      sync.Mutex
	profile *model.Profile // nil until first loaded
}

func newSession(t auth.Token) *Session {
	return &Session{
		Token:     t.Value,
		UserID:    t.UserID,
		Email:     t.Email,
		ExpiresAt: t.ExpiresAt,
		token:     t,
	}
}

// Expired reports whether the session's token is past its expiry at now.
func (s *Session) Expired(now time.Time) bool {
	return s.token.Expired(now)
}

// CachedProfile returns a copy of the cached profile, or nil if none has
// been loaded yet.
func (s *Session) CachedProfile() *model.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile == nil {
		return nil
	}
	return s.profile.Clone()
}

func (s *Session) setProfile(p *model.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = p.Clone()
}

func (s *Session) clearProfile() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = nil
}

// updateProfile applies fn to the cached profile in place. No-op when
// nothing is cached.
func (s *Session) updateProfile(fn func(p *model.Profile)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.profile != nil {
		fn(s.profile)
	}
}

// SessionStore establishes and tracks sessions.
//
// Sessions are kept in memory, keyed by token, so a session's cached profile
// survives between requests. The map holds no authority of its own: every
// lookup re-verifies the token with the identity provider, so a token
// revoked by another server instance stops working here too.
type SessionStore struct {
	provider auth.Provider
	logger   *slog.Logger
	now      func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewSessionStore creates a SessionStore backed by provider.
func NewSessionStore(provider auth.Provider, logger *slog.Logger) *SessionStore {
	return &SessionStore{
		provider: provider,
		logger:   logger,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// SignIn authenticates an identifier/secret pair and establishes a session.
// Failures are AuthenticationErrors and leave no session behind.
func (s *SessionStore) SignIn(ctx context.Context, identifier, secret string) (*Session, error) {
	token, err := s.provider.Authenticate(ctx, identifier, secret)
	authAttemptsTotal.WithLabelValues("signin", outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("sign-in failed",
			slog.String("identifier", auth.NormalizeIdentifier(identifier)),
			slog.String("error", err.Error()),
		)
		return nil, authenticationError(err)
	}

	sess := s.track(token)
	s.logger.Info("user signed in", slog.String("userID", sess.UserID))
	return sess, nil
}

// SignUp creates a new identity and establishes a session for it.
func (s *SessionStore) SignUp(ctx context.Context, identifier, secret string) (*Session, error) {
	token, err := s.provider.CreateIdentity(ctx, identifier, secret)
	authAttemptsTotal.WithLabelValues("signup", outcome(err)).Inc()
	if err != nil {
		s.logger.Warn("sign-up failed",
			slog.String("identifier", auth.NormalizeIdentifier(identifier)),
			slog.String("error", err.Error()),
		)
		return nil, authenticationError(err)
	}

	sess := s.track(token)
	s.logger.Info("user signed up", slog.String("userID", sess.UserID))
	return sess, nil
}

// SignOut discards the session and its cached profile. It always succeeds
// locally; revoking the token with the provider is best effort and a
// failure is only logged.
func (s *SessionStore) SignOut(ctx context.Context, sess *Session) {
	if sess == nil {
		return
	}

	s.mu.Lock()
	delete(s.sessions, sess.Token)
	s.mu.Unlock()

	sess.clearProfile()

	if err := s.provider.Revoke(ctx, sess.token); err != nil {
		s.logger.Warn("token revocation failed",
			slog.String("userID", sess.UserID),
			slog.String("error", err.Error()),
		)
	}
	s.logger.Info("user signed out", slog.String("userID", sess.UserID))
}

// Current returns the active session for token, or ErrNoSession.
//
// A valid token with no tracked session (for example after a restart)
// gets a fresh session with an empty profile cache.
func (s *SessionStore) Current(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}

	verified, err := s.provider.Verify(ctx, token)
	if err != nil {
		s.forget(token)
		if errors.Is(err, auth.ErrUnavailable) {
			return nil, apperror.Authentication("identity provider unavailable", err)
		}
		return nil, ErrNoSession
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[token]; ok {
		return sess, nil
	}
	sess := newSession(verified)
	s.sessions[token] = sess
	return sess, nil
}

// Len reports how many sessions are tracked.
func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *SessionStore) track(token auth.Token) *Session {
	sess := newSession(token)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pruneLocked()
	s.sessions[token.Value] = sess
	return sess
}

func (s *SessionStore) forget(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

// pruneLocked drops expired sessions. Callers hold s.mu.
func (s *SessionStore) pruneLocked() {
	now := s.now()
	for token, sess := range s.sessions {
		if sess.Expired(now) {
			delete(s.sessions, token)
		}
	}
}

// authenticationError turns a provider error into the message a user sees.
func authenticationError(err error) error {
	msg := "authentication failed"
	switch {
	case errors.Is(err, auth.ErrInvalidCredential):
		msg = "the password is incorrect"
	case errors.Is(err, auth.ErrUnknownIdentifier):
		msg = "there is no account for that email"
	case errors.Is(err, auth.ErrIdentifierInUse):
		msg = "an account already exists for that email"
	case errors.Is(err, auth.ErrWeakSecret):
		msg = "the password is too weak"
	case errors.Is(err, auth.ErrInvalidIdentifier):
		msg = "the email address is badly formatted"
	case errors.Is(err, auth.ErrUnavailable):
		msg = "the sign-in service is unavailable, try again later"
	}
	return apperror.Authentication(msg, err)
}

// requireSession rejects calls made without a session.
func requireSession(sess *Session) error {
	if sess == nil || sess.UserID == "" {
		return apperror.Authentication("sign in first", ErrNoSession)
	}
	return nil
}
