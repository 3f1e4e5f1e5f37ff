package model

import "time"

// Identity is an email/password account known to the identity provider.
//
// Identities live in their own document collection, keyed by the normalised
// (trimmed, lower-cased) email, so "Alice@Example.com" and "alice@example.com"
// are the same account. ID is an xid and is what tokens carry as their subject;
// profiles are keyed by ID, not by email.
//
// PasswordHash is a bcrypt string. The JSON tags describe the stored document;
// handlers never encode an Identity directly, they return a UserView.
type Identity struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}
