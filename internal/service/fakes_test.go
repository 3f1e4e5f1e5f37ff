package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"github.com/sakif/sweet-shop/internal/auth"
	"github.com/sakif/sweet-shop/internal/cache"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/repository"
	"github.com/sakif/sweet-shop/internal/repository/memory"
)

// =========================================================================
// FAKES AND HELPERS
// =========================================================================

var errBackend = errors.New("backend unreachable")

// faultyStore wraps a real in-memory store and can be told to fail reads or
// writes, standing in for a document service that is down. It also counts
// catalog queries so cache tests can see whether the store was hit.
type faultyStore struct {
	repository.DocumentStore

	mu         sync.Mutex
	failReads  bool
	failWrites bool
	queries    int
}

func newFaultyStore() *faultyStore {
	return &faultyStore{DocumentStore: memory.New()}
}

func (f *faultyStore) setFailures(reads, writes bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failReads, f.failWrites = reads, writes
}

func (f *faultyStore) readErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failReads {
		return errBackend
	}
	return nil
}

func (f *faultyStore) writeErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrites {
		return errBackend
	}
	return nil
}

func (f *faultyStore) queryCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries
}

func (f *faultyStore) Get(ctx context.Context, collection, key string) (*repository.Document, error) {
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.DocumentStore.Get(ctx, collection, key)
}

func (f *faultyStore) Query(ctx context.Context, collection string) ([]repository.Document, error) {
	f.mu.Lock()
	f.queries++
	f.mu.Unlock()
	if err := f.readErr(); err != nil {
		return nil, err
	}
	return f.DocumentStore.Query(ctx, collection)
}

func (f *faultyStore) Set(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.DocumentStore.Set(ctx, collection, key, body)
}

func (f *faultyStore) Create(ctx context.Context, collection, key string, body json.RawMessage) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.DocumentStore.Create(ctx, collection, key, body)
}

func (f *faultyStore) Update(ctx context.Context, collection, key string, fields map[string]any) error {
	if err := f.writeErr(); err != nil {
		return err
	}
	return f.DocumentStore.Update(ctx, collection, key, fields)
}

// revokeFailingProvider is a real provider whose Revoke always fails.
type revokeFailingProvider struct {
	auth.Provider
}

func (revokeFailingProvider) Revoke(context.Context, auth.Token) error {
	return errBackend
}

// testEnv bundles the data layer wired over one faultyStore.
type testEnv struct {
	store    *faultyStore
	cache    *cache.MemoryCache
	provider *auth.LocalProvider
	sessions *SessionStore
	catalog  *CatalogService
	profiles *ProfileService
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T, cfg ProfileConfig) *testEnv {
	t.Helper()

	store := newFaultyStore()
	c := cache.NewMemoryCache()
	t.Cleanup(func() { c.Close() })

	tokens, err := auth.NewTokenService("service-test-secret-0123456789", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	provider := auth.NewLocalProvider(store, auth.NewPasswordServiceForTest(bcrypt.MinCost), tokens, c)

	logger := quietLogger()
	catalog := NewCatalogService(store, c, 0, logger)

	return &testEnv{
		store:    store,
		cache:    c,
		provider: provider,
		sessions: NewSessionStore(provider, logger),
		catalog:  catalog,
		profiles: NewProfileService(store, catalog, cfg, logger),
	}
}

// signUp registers a fresh account and returns its session.
func (e *testEnv) signUp(t *testing.T, email string) *Session {
	t.Helper()
	sess, err := e.sessions.SignUp(context.Background(), email, "secret123")
	if err != nil {
		t.Fatalf("SignUp(%q) error = %v", email, err)
	}
	return sess
}

// seed puts items straight into the catalog.
func (e *testEnv) seed(t *testing.T, items ...model.Item) {
	t.Helper()
	if err := e.catalog.SeedItems(context.Background(), items); err != nil {
		t.Fatalf("SeedItems() error = %v", err)
	}
}

var (
	cherryPie = model.Item{ID: "cherry", Title: "Cherry Pie", Price: 120, Weight: 500}
	applePie  = model.Item{ID: "apple", Title: "Apple Pie", Price: 100, Weight: 450}
	plumTart  = model.Item{ID: "plum", Title: "Plum Tart", Price: 90, Weight: 300}
)
