// Package server sets up the HTTP server, router, and all route definitions.
//
// SERVER ARCHITECTURE:
// This package is the "wiring" layer. It connects backends, services,
// handlers, middleware and routes, and owns their lifetimes:
//
//	config.Config
//	  → openStore (sqlite | postgres | mongodb | memory)  ┐
//	  → openCache (memory | redis)                         ├→ services → handlers → routes
//	  → auth.LocalProvider (store + cache deny-list)       ┘
//
// This is the "composition root" pattern: all dependencies are wired in one
// place (New), rather than scattered across the codebase.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sakif/sweet-shop/internal/auth"
	"github.com/sakif/sweet-shop/internal/cache"
	"github.com/sakif/sweet-shop/internal/config"
	"github.com/sakif/sweet-shop/internal/repository"
	"github.com/sakif/sweet-shop/internal/service"
)

// Server represents the HTTP server and all its dependencies.
//
// RESOURCE MANAGEMENT:
// The Server owns the document store and the cache. Close releases both;
// Start calls it on the way out.
type Server struct {
	router *chi.Mux
	config *config.Config
	logger *slog.Logger

	store repository.DocumentStore
	cache cache.Cache

	sessions *service.SessionStore
	catalog  *service.CatalogService
	profiles *service.ProfileService
}

// New opens the configured backends, seeds the catalog if a seed file is
// configured, and wires the routes.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Server, error) {
	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		return nil, err
	}

	c, err := openCache(ctx, cfg.Cache, logger)
	if err != nil {
		store.Close()
		return nil, err
	}

	s, err := newServer(cfg, logger, store, c)
	if err != nil {
		c.Close()
		store.Close()
		return nil, err
	}

	if cfg.App.CatalogSeedFile != "" {
		if err := s.seedCatalog(ctx, cfg.App.CatalogSeedFile); err != nil {
			s.Close()
			return nil, err
		}
	}

	return s, nil
}

// newServer wires services and routes over already-open backends.
func newServer(cfg *config.Config, logger *slog.Logger, store repository.DocumentStore, c cache.Cache) (*Server, error) {
	tokens, err := auth.NewTokenService(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("server: creating token service: %w", err)
	}
	provider := auth.NewLocalProvider(store, auth.NewPasswordService(), tokens, c)

	catalog := service.NewCatalogService(store, c, cfg.Cache.TTL, logger)

	s := &Server{
		router:   chi.NewRouter(),
		config:   cfg,
		logger:   logger,
		store:    store,
		cache:    c,
		sessions: service.NewSessionStore(provider, logger),
		catalog:  catalog,
		profiles: service.NewProfileService(store, catalog, service.ProfileConfig{
			OptimisticCartClear: cfg.App.OptimisticCartClear,
		}, logger),
	}
	s.setupRoutes()
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Close releases the cache and the document store.
func (s *Server) Close() error {
	return errors.Join(s.cache.Close(), s.store.Close())
}

// Start serves HTTP until ctx is cancelled or the process receives SIGINT or
// SIGTERM, then shuts down gracefully.
//
// GRACEFUL SHUTDOWN:
//  1. Stop accepting new HTTP connections
//  2. Wait for in-flight requests to finish (SERVER_SHUTDOWN_TIMEOUT)
//  3. Close the cache and the document store
func (s *Server) Start(ctx context.Context) error {
	defer s.Close()

	srv := &http.Server{
		Addr:         s.config.Server.Address(),
		Handler:      s.router,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.String("addr", srv.Addr),
			slog.String("store", s.config.Store.Type),
			slog.String("cache", s.config.Cache.Type),
			slog.String("env", s.config.App.Environment),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

	case <-ctx.Done():
		s.logger.Info("shutdown requested", slog.String("reason", context.Cause(ctx).Error()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown failed: %w", err)
	}
	s.logger.Info("server stopped gracefully", slog.Duration("timeout", s.config.Server.ShutdownTimeout))
	return nil
}

// startupTimeout bounds each backend connection attempt.
const startupTimeout = 10 * time.Second
