// Package auth is the storefront's identity provider: email/password
// identities, bcrypt password hashing and signed access tokens.
//
// AUTHENTICATION FLOW OVERVIEW:
//  1. Client POSTs email + password to /api/auth/signup or /api/auth/signin
//  2. LocalProvider checks the identity document and the bcrypt hash
//  3. TokenService issues a signed JWT carrying the identity ID and email
//  4. The client sends it back as "Authorization: Bearer <jwt>" (or the
//     HttpOnly "token" cookie in a browser)
//  5. The session middleware resolves the token to a *service.Session
//
// WHY JWT?
// JWT (JSON Web Token) is self-contained: verifying one needs only the
// secret, not a database lookup. The one thing a plain JWT can't do is be
// taken back before it expires, so sign-out records the token's ID ("jti")
// in a deny-list that Verify consults.
//
// JWT STRUCTURE (three base64-encoded parts separated by dots):
//
//	HEADER.PAYLOAD.SIGNATURE
//	- Header: algorithm + token type → {"alg":"HS256","typ":"JWT"}
//	- Payload: claims → {"sub":"<id>","email":"a@b.c","jti":"<uuid>","exp":...}
//	- Signature: HMAC-SHA256(header+"."+payload, secretKey)
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	issuer = "sweet-shop"

	// DefaultTokenTTL is used when NewTokenService is given a zero TTL.
	DefaultTokenTTL = time.Hour
)

// Token is an issued access token plus the claims it carries.
// Value is the signed JWT string; the other fields are decoded from it.
type Token struct {
	Value     string
	ID        string // jti, used for revocation
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// Expired reports whether the token is past its expiry at now.
func (t Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// TokenService handles JWT creation and validation.
//
// It holds the HMAC secret key used to sign and verify tokens.
// The same secret must be used for both operations. Keep it safe and rotate it
// periodically in production.
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService with the given secret and lifetime.
// The secret should be at least 32 bytes of random data in production.
// Example: JWT_SECRET=$(openssl rand -hex 32)
func NewTokenService(secret string, ttl time.Duration) (*TokenService, error) {
	if len(secret) < 16 {
		return nil, errors.New("auth: JWT secret must be at least 16 characters")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{secret: []byte(secret), ttl: ttl}, nil
}

// claims is the JWT payload. It embeds jwt.RegisteredClaims which includes
// standard fields like Issuer, Subject, ExpiresAt, IssuedAt and ID (jti).
//
// "sub" holds the identity ID; email rides along so a session can show who is
// signed in without loading the identity document.
type claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// Issue creates and signs a new access token with the service's lifetime.
func (s *TokenService) Issue(userID, email string) (Token, error) {
	return s.IssueWithDuration(userID, email, s.ttl)
}

// IssueWithDuration creates a token with a custom expiry duration.
// Used in tests to mint already-expired tokens.
//
// Signing algorithm: HS256 (HMAC-SHA256)
// - Symmetric: same key for signing and verifying
// - Fast and simple; good for single-server deployments
func (s *TokenService) IssueWithDuration(userID, email string, d time.Duration) (Token, error) {
	now := time.Now()

	c := claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(d)),
			Issuer:    issuer,
		},
		Email: email,
	}

	// jwt.NewWithClaims creates an unsigned token with the given algorithm.
	// SignedString(key) signs it and returns the complete JWT string.
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(s.secret)
	if err != nil {
		return Token{}, fmt.Errorf("auth: signing token: %w", err)
	}

	return c.token(signed), nil
}

// Validate parses and verifies a JWT string and returns its claims.
//
// VALIDATION CHECKS (performed by the jwt library):
//   - Signature is valid (wasn't tampered with)
//   - Token is not expired (ExpiresAt is in the future)
//   - Issuer matches "sweet-shop" (prevents tokens from other apps)
//   - Algorithm is HS256 (prevents algorithm confusion attacks)
//
// Revocation is NOT checked here; that needs the deny-list, see LocalProvider.Verify.
func (s *TokenService) Validate(tokenStr string) (Token, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenStr,
		&claims{},
		func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("auth: unexpected signing method: %v", token.Header["alg"])
			}
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Token{}, ErrTokenExpired
		}
		return Token{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	c, ok := parsed.Claims.(*claims)
	if !ok || !parsed.Valid {
		return Token{}, fmt.Errorf("%w: bad claims", ErrInvalidToken)
	}
	if c.Subject == "" {
		return Token{}, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}

	return c.token(tokenStr), nil
}

func (c claims) token(value string) Token {
	t := Token{
		Value:  value,
		ID:     c.ID,
		UserID: c.Subject,
		Email:  c.Email,
	}
	if c.ExpiresAt != nil {
		t.ExpiresAt = c.ExpiresAt.Time
	}
	return t
}
