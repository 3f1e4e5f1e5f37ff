// Package repository defines the document store contract the data layer consumes.
//
// DOCUMENT STORE, NOT TABLES:
// The storefront keeps everything as JSON documents grouped in named
// collections: "items" (the catalog), "users" (one profile per identity) and
// "identities" (email/password accounts). A document is addressed by
// (collection, key) and its body is an opaque JSON object.
//
// Backends live in sub-packages and all satisfy DocumentStore:
//
//	repository/sqlite   : embedded, single file (default)
//	repository/postgres : JSONB column, via pgx
//	repository/mongo    : native MongoDB documents
//	repository/memory   : process memory, for tests and demos
//
// ERRORS:
// Backends return apperror.NotFound when a document is absent and
// apperror.Conflict when Create hits an existing key. Everything else is a
// wrapped driver error; the service layer turns those into FetchError/WriteError.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sakif/sweet-shop/internal/apperror"
)

// Collection names used by the services.
const (
	CollectionItems      = "items"
	CollectionProfiles   = "users"
	CollectionIdentities = "identities"
)

// Document is one stored JSON object.
type Document struct {
	Key       string          `json:"key"`
	Body      json.RawMessage `json:"body"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// DocumentStore is the contract of the external document service.
//
// There are no transactions and no version tokens: Set and Update overwrite
// whatever is stored, and the last writer wins.
type DocumentStore interface {
	// Get returns the document or apperror.NotFound.
	Get(ctx context.Context, collection, key string) (*Document, error)
	// Set creates or fully replaces the document.
	Set(ctx context.Context, collection, key string, body json.RawMessage) error
	// Create inserts the document only if the key is free; apperror.Conflict otherwise.
	Create(ctx context.Context, collection, key string, body json.RawMessage) error
	// Update merges fields into the top level of an existing document;
	// apperror.NotFound if it does not exist.
	Update(ctx context.Context, collection, key string, fields map[string]any) error
	// Query returns every document in the collection, ordered by key.
	Query(ctx context.Context, collection string) ([]Document, error)
	// Delete removes the document; apperror.NotFound if it does not exist.
	Delete(ctx context.Context, collection, key string) error
	// Ping checks the backend is reachable.
	Ping(ctx context.Context) error
	Close() error
}

// MergeFields applies a top-level partial update to a JSON object body.
// Backends without native partial updates (SQLite, memory) use this.
func MergeFields(body json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(body) > 0 {
		if err := json.Unmarshal(body, &obj); err != nil {
			return nil, fmt.Errorf("decoding document body: %w", err)
		}
	}

	for name, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("encoding field %q: %w", name, err)
		}
		obj[name] = raw
	}

	merged, err := json.Marshal(obj)
	if err != nil {
		return nil, fmt.Errorf("encoding document body: %w", err)
	}
	return merged, nil
}

// ValidateBody rejects bodies that are not JSON objects. Every backend calls it
// before writing so that Update can always merge into an object.
func ValidateBody(body json.RawMessage) error {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil || obj == nil {
		return apperror.ValidationFailed("body", "document body must be a JSON object")
	}
	return nil
}
