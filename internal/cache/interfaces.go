// Package cache provides the key/value cache shared by the catalog snapshot
// and the revoked-token deny-list.
//
// Two implementations satisfy Cache: MemoryCache for a single instance and
// RedisCache when several server instances must agree on revoked tokens.
package cache

import (
	"context"
	"time"
)

// Cache defines the interface for caching operations.
type Cache interface {
	// Get retrieves a value by key. Returns ErrCacheMiss if not found.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value with the given TTL. A TTL <= 0 means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes a value by key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	// Exists checks if a key exists in the cache.
	Exists(ctx context.Context, key string) (bool, error)

	// GetOrSet retrieves a value or computes and stores it if missing.
	// fn's error is returned as is and nothing is stored.
	GetOrSet(ctx context.Context, key string, ttl time.Duration, fn func() ([]byte, error)) ([]byte, error)

	// Clear removes all entries owned by this cache.
	Clear(ctx context.Context) error

	Close() error
}

// CacheError is a constant error value.
type CacheError string

func (e CacheError) Error() string { return string(e) }

const (
	// ErrCacheMiss indicates the key was not found in cache.
	ErrCacheMiss CacheError = "cache miss"
)
