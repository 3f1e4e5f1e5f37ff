package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", time.Hour)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", time.Hour)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_ZeroTTLUsesDefault(t *testing.T) {
	ts, err := NewTokenService("this-is-16-chars", 0)
	if err != nil {
		t.Fatalf("NewTokenService() unexpected error: %v", err)
	}
	if ts.ttl != DefaultTokenTTL {
		t.Errorf("ttl = %v, want %v", ts.ttl, DefaultTokenTTL)
	}
}

// =========================================================================
// ISSUE TESTS
// =========================================================================

func TestIssue_PopulatesToken(t *testing.T) {
	ts := newTestTokenService(t)

	before := time.Now()
	tok, err := ts.Issue("user-123", "alice@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	// header.payload.signature
	if strings.Count(tok.Value, ".") != 2 {
		t.Errorf("Issue() value doesn't look like a JWT: %q", tok.Value)
	}
	if tok.ID == "" {
		t.Error("Issue() token has no jti")
	}
	if tok.UserID != "user-123" || tok.Email != "alice@example.com" {
		t.Errorf("Issue() claims = (%q, %q)", tok.UserID, tok.Email)
	}
	if tok.ExpiresAt.Before(before.Add(59 * time.Minute)) {
		t.Errorf("ExpiresAt = %v, want about an hour from now", tok.ExpiresAt)
	}
}

func TestIssue_EveryTokenGetsItsOwnID(t *testing.T) {
	ts := newTestTokenService(t)

	t1, _ := ts.Issue("user-aaa", "a@example.com")
	t2, _ := ts.Issue("user-aaa", "a@example.com")

	if t1.ID == t2.ID {
		t.Error("two tokens for the same user share a jti; revoking one would revoke both")
	}
}

// =========================================================================
// VALIDATE TESTS
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	issued, err := ts.Issue("user-abc-123", "bob@example.com")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	got, err := ts.Validate(issued.Value)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got.UserID != issued.UserID || got.Email != issued.Email || got.ID != issued.ID {
		t.Errorf("Validate() = %+v, want claims of %+v", got, issued)
	}
	if !got.ExpiresAt.Equal(issued.ExpiresAt) {
		t.Errorf("ExpiresAt = %v, want %v", got.ExpiresAt, issued.ExpiresAt)
	}
}

func TestValidate_ExpiredToken(t *testing.T) {
	ts := newTestTokenService(t)

	tok, err := ts.IssueWithDuration("user-123", "a@example.com", -1*time.Second)
	if err != nil {
		t.Fatalf("IssueWithDuration() error = %v", err)
	}

	_, err = ts.Validate(tok.Value)
	if !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("Validate() error = %v, want ErrTokenExpired", err)
	}
}

func TestValidate_TamperedToken(t *testing.T) {
	ts := newTestTokenService(t)

	tok, _ := ts.Issue("user-123", "a@example.com")

	// Flip the end of the signature to simulate an attacker editing the payload.
	tampered := tok.Value[:len(tok.Value)-3] + "xxx"

	_, err := ts.Validate(tampered)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Validate() error = %v, want ErrInvalidToken", err)
	}
}

func TestValidate_WrongSecret(t *testing.T) {
	ts1, _ := NewTokenService("correct-secret-32-chars-long!!!!", time.Hour)
	ts2, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", time.Hour)

	tok, _ := ts1.Issue("user-123", "a@example.com")

	if _, err := ts2.Validate(tok.Value); err == nil {
		t.Fatal("Validate() should fail when using a different secret")
	}
}

func TestValidate_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, in := range []string{"", "not.a.jwt.token"} {
		if _, err := ts.Validate(in); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Validate(%q) error = %v, want ErrInvalidToken", in, err)
		}
	}
}

func TestToken_Expired(t *testing.T) {
	now := time.Now()
	tok := Token{ExpiresAt: now}

	if tok.Expired(now.Add(-time.Second)) {
		t.Error("token reported expired before ExpiresAt")
	}
	if !tok.Expired(now) {
		t.Error("token not reported expired at ExpiresAt")
	}
}
