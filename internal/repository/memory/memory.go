// Package memory is a process-local repository.DocumentStore.
// Use it for tests, demos and single-instance deployments that can lose data on restart.
package memory

import (
	"context"
	"encoding/json"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/repository"
)

var _ repository.DocumentStore = (*Store)(nil)

type entry struct {
	body      []byte
	updatedAt time.Time
}

// Store keeps documents in a map keyed by collection then key.
// Bodies are copied on the way in and out, so callers can't alias stored data.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*entry
}

// New returns an empty store.
func New() *Store {
	return &Store{collections: make(map[string]map[string]*entry)}
}

func (s *Store) Get(ctx context.Context, collection, key string) (*repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.collections[collection][key]
	if !ok {
		return nil, apperror.NotFound(collection, key)
	}
	return &repository.Document{Key: key, Body: clone(e.body), UpdatedAt: e.updatedAt}, nil
}

func (s *Store) Set(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidateBody(body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.put(collection, key, body)
	return nil
}

func (s *Store) Create(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := repository.ValidateBody(body); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.collections[collection][key]; exists {
		return apperror.Conflict(collection, key)
	}
	s.put(collection, key, body)
	return nil
}

func (s *Store) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.collections[collection][key]
	if !ok {
		return apperror.NotFound(collection, key)
	}

	merged, err := repository.MergeFields(e.body, fields)
	if err != nil {
		return err
	}
	s.put(collection, key, merged)
	return nil
}

func (s *Store) Query(ctx context.Context, collection string) ([]repository.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make([]repository.Document, 0, len(s.collections[collection]))
	for key, e := range s.collections[collection] {
		docs = append(docs, repository.Document{Key: key, Body: clone(e.body), UpdatedAt: e.updatedAt})
	}
	slices.SortFunc(docs, func(a, b repository.Document) int { return strings.Compare(a.Key, b.Key) })
	return docs, nil
}

func (s *Store) Delete(ctx context.Context, collection, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][key]; !ok {
		return apperror.NotFound(collection, key)
	}
	delete(s.collections[collection], key)
	return nil
}

func (s *Store) Ping(ctx context.Context) error { return ctx.Err() }

func (s *Store) Close() error { return nil }

// put stores a copy of body. Callers hold s.mu.
func (s *Store) put(collection, key string, body []byte) {
	c, ok := s.collections[collection]
	if !ok {
		c = make(map[string]*entry)
		s.collections[collection] = c
	}
	c[key] = &entry{body: clone(body), updatedAt: time.Now().UTC()}
}

func clone(b []byte) []byte {
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
