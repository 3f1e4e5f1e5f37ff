package service

import (
	"context"
	"errors"
	"testing"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/auth"
)

// =========================================================================
// SIGN UP / SIGN IN
// =========================================================================

func TestSignUpThenSignIn(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()

	up, err := env.sessions.SignUp(ctx, "dana@example.com", "cherry-pie")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	in, err := env.sessions.SignIn(ctx, "dana@example.com", "cherry-pie")
	if err != nil {
		t.Fatalf("SignIn() error = %v", err)
	}
	if in.UserID != up.UserID {
		t.Errorf("SignIn() UserID = %q, want %q", in.UserID, up.UserID)
	}
	if in.Email != "dana@example.com" {
		t.Errorf("Email = %q", in.Email)
	}
}

func TestSignIn_WrongSecret(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	env.signUp(t, "erin@example.com")
	before := env.sessions.Len()

	sess, err := env.sessions.SignIn(ctx, "erin@example.com", "not-the-secret")
	if !errors.Is(err, apperror.ErrAuthentication) {
		t.Fatalf("SignIn() error = %v, want ErrAuthentication", err)
	}
	if sess != nil {
		t.Error("SignIn() returned a session on failure")
	}
	if env.sessions.Len() != before {
		t.Errorf("failed SignIn() tracked a session: %d -> %d", before, env.sessions.Len())
	}
}

func TestSignIn_ErrorMessages(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	env.signUp(t, "frank@example.com")

	cases := []struct {
		name  string
		op    func() error
		cause error
	}{
		{
			name:  "unknown identifier",
			op:    func() error { _, err := env.sessions.SignIn(ctx, "ghost@example.com", "secret123"); return err },
			cause: auth.ErrUnknownIdentifier,
		},
		{
			name:  "identifier in use",
			op:    func() error { _, err := env.sessions.SignUp(ctx, "frank@example.com", "secret123"); return err },
			cause: auth.ErrIdentifierInUse,
		},
		{
			name:  "weak secret",
			op:    func() error { _, err := env.sessions.SignUp(ctx, "new@example.com", "123"); return err },
			cause: auth.ErrWeakSecret,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.op()
			if !errors.Is(err, apperror.ErrAuthentication) {
				t.Fatalf("error = %v, want ErrAuthentication", err)
			}
			if !errors.Is(err, tc.cause) {
				t.Errorf("error does not carry cause %v", tc.cause)
			}

			var appErr *apperror.AppError
			if !errors.As(err, &appErr) || appErr.Message == "" {
				t.Errorf("error has no user-facing message: %v", err)
			}
		})
	}
}

func TestSignIn_ProviderUnavailable(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	env.signUp(t, "gail@example.com")
	env.store.setFailures(true, true)

	_, err := env.sessions.SignIn(context.Background(), "gail@example.com", "secret123")
	if !errors.Is(err, apperror.ErrAuthentication) {
		t.Fatalf("error = %v, want ErrAuthentication", err)
	}
	if !errors.Is(err, auth.ErrUnavailable) {
		t.Errorf("error = %v, want it to carry ErrUnavailable", err)
	}
}

// =========================================================================
// CURRENT / SIGN OUT
// =========================================================================

func TestCurrent(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	sess := env.signUp(t, "hana@example.com")

	got, err := env.sessions.Current(ctx, sess.Token)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if got != sess {
		t.Error("Current() should return the tracked session, not a copy")
	}

	if _, err := env.sessions.Current(ctx, ""); !errors.Is(err, ErrNoSession) {
		t.Errorf("Current(\"\") error = %v, want ErrNoSession", err)
	}
	if _, err := env.sessions.Current(ctx, "garbage"); !errors.Is(err, ErrNoSession) {
		t.Errorf("Current(garbage) error = %v, want ErrNoSession", err)
	}
}

func TestCurrent_ValidTokenAfterRestart(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	sess := env.signUp(t, "ivan@example.com")

	// A new SessionStore over the same provider knows nothing about sess.
	restarted := NewSessionStore(env.provider, quietLogger())

	got, err := restarted.Current(context.Background(), sess.Token)
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	if got.UserID != sess.UserID {
		t.Errorf("UserID = %q, want %q", got.UserID, sess.UserID)
	}
}

func TestSignOut(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	sess := env.signUp(t, "jo@example.com")

	if _, err := env.profiles.LoadProfile(ctx, sess); err != nil {
		t.Fatalf("LoadProfile() error = %v", err)
	}

	env.sessions.SignOut(ctx, sess)

	if _, err := env.sessions.Current(ctx, sess.Token); !errors.Is(err, ErrNoSession) {
		t.Errorf("Current() after SignOut error = %v, want ErrNoSession", err)
	}
	if sess.CachedProfile() != nil {
		t.Error("SignOut() should discard the cached profile")
	}
}

func TestSignOut_RevokeFailureIsNotFatal(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	sessions := NewSessionStore(revokeFailingProvider{env.provider}, quietLogger())

	sess, err := sessions.SignUp(ctx, "kim@example.com", "secret123")
	if err != nil {
		t.Fatalf("SignUp() error = %v", err)
	}

	sessions.SignOut(ctx, sess)

	if sessions.Len() != 0 {
		t.Errorf("session still tracked after SignOut: %d", sessions.Len())
	}
}

func TestSignOut_Nil(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	env.sessions.SignOut(context.Background(), nil)
}
