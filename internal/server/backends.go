package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/sakif/sweet-shop/internal/cache"
	"github.com/sakif/sweet-shop/internal/config"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/repository"
	"github.com/sakif/sweet-shop/internal/repository/memory"
	"github.com/sakif/sweet-shop/internal/repository/mongo"
	"github.com/sakif/sweet-shop/internal/repository/postgres"
	sqliteRepo "github.com/sakif/sweet-shop/internal/repository/sqlite"
)

// openStore connects to the configured document store.
//
// Networked stores (Postgres, MongoDB) are often still starting when the
// server comes up in docker-compose or Kubernetes, so each connection attempt
// is retried with exponential backoff, up to STARTUP_RETRY_MAX retries.
func openStore(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (repository.DocumentStore, error) {
	switch cfg.Type {
	case config.StoreMemory:
		logger.Warn("using the in-memory document store; data is lost on restart")
		return memory.New(), nil

	case config.StoreSQLite:
		if cfg.SQLitePath != ":memory:" {
			if err := os.MkdirAll(filepath.Dir(cfg.SQLitePath), 0o755); err != nil {
				return nil, fmt.Errorf("server: creating database directory: %w", err)
			}
		}
		db, err := sqliteRepo.New(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("server: opening sqlite store: %w", err)
		}
		return db, nil

	case config.StorePostgres:
		return withRetry(ctx, "postgres", cfg.StartupRetryMax, logger, func(ctx context.Context) (repository.DocumentStore, error) {
			return postgres.Open(ctx, cfg.PostgresDSN)
		})

	case config.StoreMongoDB:
		return withRetry(ctx, "mongodb", cfg.StartupRetryMax, logger, func(ctx context.Context) (repository.DocumentStore, error) {
			return mongo.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		})
	}
	return nil, fmt.Errorf("server: unknown store type %q", cfg.Type)
}

// openCache creates the configured cache. Redis is retried like the stores.
func openCache(ctx context.Context, cfg config.CacheConfig, logger *slog.Logger) (cache.Cache, error) {
	switch cfg.Type {
	case config.CacheMemory:
		return cache.NewMemoryCache(), nil

	case config.CacheRedis:
		return withRetry(ctx, "redis", 5, logger, func(ctx context.Context) (cache.Cache, error) {
			return cache.NewRedisCache(ctx, cache.RedisConfig{
				Addr:      cfg.RedisAddress(),
				Password:  cfg.RedisPassword,
				DB:        cfg.RedisDB,
				KeyPrefix: cfg.RedisPrefix,
			})
		})
	}
	return nil, fmt.Errorf("server: unknown cache type %q", cfg.Type)
}

// withRetry calls connect until it succeeds, ctx ends or maxRetries retries
// have failed. Each attempt gets its own startupTimeout.
func withRetry[T any](ctx context.Context, name string, maxRetries uint64, logger *slog.Logger, connect func(context.Context) (T, error)) (T, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = 500 * time.Millisecond
	exp.Multiplier = 2
	exp.MaxInterval = 10 * time.Second
	exp.MaxElapsedTime = 0
	exp.Reset()

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, maxRetries), ctx)

	var result T
	op := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, startupTimeout)
		defer cancel()

		v, err := connect(attemptCtx)
		if err != nil {
			return err
		}
		result = v
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("backend not ready, retrying",
			slog.String("backend", name),
			slog.Duration("wait", wait),
			slog.String("error", err.Error()),
		)
	}

	if err := backoff.RetryNotify(op, policy, notify); err != nil {
		var zero T
		return zero, fmt.Errorf("server: connecting to %s: %w", name, err)
	}
	logger.Info("backend connected", slog.String("backend", name))
	return result, nil
}

// seedCatalog loads a JSON array of items from path into the catalog.
func (s *Server) seedCatalog(ctx context.Context, path string) error {
	items, err := readSeedFile(path)
	if err != nil {
		return err
	}
	if err := s.catalog.SeedItems(ctx, items); err != nil {
		return fmt.Errorf("server: seeding catalog from %s: %w", path, err)
	}
	return nil
}

func readSeedFile(path string) ([]model.Item, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server: reading seed file: %w", err)
	}

	var items []model.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("server: decoding seed file %s: %w", path, err)
	}
	return items, nil
}
