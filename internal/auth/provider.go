package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-openapi/strfmt"
	"github.com/rs/xid"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/cache"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/repository"
)

// Provider errors. Callers match them with errors.Is; ErrUnavailable is
// joined with the underlying cause.
var (
	ErrInvalidIdentifier = errors.New("identifier is not a valid email address")
	ErrWeakSecret        = errors.New("secret is too weak")
	ErrIdentifierInUse   = errors.New("identifier is already in use")
	ErrUnknownIdentifier = errors.New("no account for identifier")
	ErrInvalidCredential = errors.New("invalid credential")
	ErrUnavailable       = errors.New("identity provider unavailable")

	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
	ErrTokenRevoked = errors.New("token revoked")
)

// Provider is the identity provider the session store talks to.
type Provider interface {
	// Authenticate checks an identifier/secret pair and issues a token.
	Authenticate(ctx context.Context, identifier, secret string) (Token, error)
	// CreateIdentity registers a new identity and issues a token for it.
	CreateIdentity(ctx context.Context, identifier, secret string) (Token, error)
	// Revoke makes a token unusable before its expiry.
	Revoke(ctx context.Context, token Token) error
	// Verify resolves a token string presented by a client.
	Verify(ctx context.Context, value string) (Token, error)
}

var _ Provider = (*LocalProvider)(nil)

// LocalProvider keeps identities as documents in the "identities" collection,
// keyed by normalised email, and revokes tokens through a cache deny-list.
//
// Using the document store for identities means uniqueness comes from
// DocumentStore.Create: two concurrent sign-ups with the same email can't
// both win.
type LocalProvider struct {
	store     repository.DocumentStore
	passwords *PasswordService
	tokens    *TokenService
	revoked   cache.Cache
}

// NewLocalProvider wires a LocalProvider. revoked holds the jti deny-list;
// use a shared Redis cache when more than one server instance runs.
func NewLocalProvider(store repository.DocumentStore, passwords *PasswordService, tokens *TokenService, revoked cache.Cache) *LocalProvider {
	return &LocalProvider{
		store:     store,
		passwords: passwords,
		tokens:    tokens,
		revoked:   revoked,
	}
}

// NormalizeIdentifier trims and lower-cases an email address.
func NormalizeIdentifier(identifier string) string {
	return strings.ToLower(strings.TrimSpace(identifier))
}

func (p *LocalProvider) CreateIdentity(ctx context.Context, identifier, secret string) (Token, error) {
	email := NormalizeIdentifier(identifier)
	if !strfmt.IsEmail(email) {
		return Token{}, ErrInvalidIdentifier
	}
	if err := CheckStrength(secret); err != nil {
		return Token{}, err
	}

	hash, err := p.passwords.Hash(secret)
	if err != nil {
		return Token{}, err
	}

	identity := model.Identity{
		ID:           xid.New().String(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	body, err := json.Marshal(identity)
	if err != nil {
		return Token{}, fmt.Errorf("auth: encoding identity: %w", err)
	}

	if err := p.store.Create(ctx, repository.CollectionIdentities, email, body); err != nil {
		if errors.Is(err, apperror.ErrConflict) {
			return Token{}, ErrIdentifierInUse
		}
		return Token{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	return p.tokens.Issue(identity.ID, identity.Email)
}

func (p *LocalProvider) Authenticate(ctx context.Context, identifier, secret string) (Token, error) {
	email := NormalizeIdentifier(identifier)
	if !strfmt.IsEmail(email) {
		return Token{}, ErrInvalidIdentifier
	}

	doc, err := p.store.Get(ctx, repository.CollectionIdentities, email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return Token{}, ErrUnknownIdentifier
		}
		return Token{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	var identity model.Identity
	if err := json.Unmarshal(doc.Body, &identity); err != nil {
		return Token{}, fmt.Errorf("%w: decoding identity: %w", ErrUnavailable, err)
	}

	if err := p.passwords.Verify(identity.PasswordHash, secret); err != nil {
		return Token{}, err
	}

	return p.tokens.Issue(identity.ID, identity.Email)
}

// Revoke adds the token's ID to the deny-list until the token would have
// expired anyway. Revoking an expired token is a no-op.
func (p *LocalProvider) Revoke(ctx context.Context, token Token) error {
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 || token.ID == "" {
		return nil
	}

	if err := p.revoked.Set(ctx, revokedKey(token.ID), []byte(token.UserID), ttl); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return nil
}

func (p *LocalProvider) Verify(ctx context.Context, value string) (Token, error) {
	token, err := p.tokens.Validate(value)
	if err != nil {
		return Token{}, err
	}

	revoked, err := p.revoked.Exists(ctx, revokedKey(token.ID))
	if err != nil {
		return Token{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	if revoked {
		return Token{}, ErrTokenRevoked
	}

	return token, nil
}

func revokedKey(jti string) string {
	return "revoked:" + jti
}
