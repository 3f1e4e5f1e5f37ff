package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/cache"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/repository"
)

const catalogCacheKey = "catalog:items"

// CatalogService reads the item catalog.
//
// The catalog is always returned whole: no pagination and no server-side
// filtering. Search and favorite filters are pure functions in package model
// applied to the snapshot.
//
// SNAPSHOT CACHE:
// With a cache and a positive TTL the encoded snapshot is kept for TTL, so a
// burst of catalog requests costs one Query. Results may be stale by at most
// TTL; SeedItems drops the cached copy.
type CatalogService struct {
	store  repository.DocumentStore
	cache  cache.Cache
	ttl    time.Duration
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService. c may be nil, and ttl <= 0
// disables caching.
func NewCatalogService(store repository.DocumentStore, c cache.Cache, ttl time.Duration, logger *slog.Logger) *CatalogService {
	return &CatalogService{
		store:  store,
		cache:  c,
		ttl:    ttl,
		logger: logger,
	}
}

// ListItems returns the full catalog ordered by item ID.
func (s *CatalogService) ListItems(ctx context.Context) ([]model.Item, error) {
	if s.cache == nil || s.ttl <= 0 {
		return s.fetchItems(ctx)
	}

	var (
		fetched  []model.Item
		fetchErr error
	)
	raw, err := s.cache.GetOrSet(ctx, catalogCacheKey, s.ttl, func() ([]byte, error) {
		fetched, fetchErr = s.fetchItems(ctx)
		if fetchErr != nil {
			return nil, fetchErr
		}
		return json.Marshal(fetched)
	})

	switch {
	case fetchErr != nil:
		catalogCacheTotal.WithLabelValues("miss").Inc()
		return nil, fetchErr
	case fetched != nil:
		catalogCacheTotal.WithLabelValues("miss").Inc()
		if err != nil {
			s.logger.Warn("catalog cache write failed", slog.String("error", err.Error()))
		}
		return fetched, nil
	case err != nil:
		s.logger.Warn("catalog cache unavailable", slog.String("error", err.Error()))
		return s.fetchItems(ctx)
	}

	catalogCacheTotal.WithLabelValues("hit").Inc()

	var items []model.Item
	if err := json.Unmarshal(raw, &items); err != nil {
		s.logger.Warn("discarding unreadable catalog cache entry", slog.String("error", err.Error()))
		_ = s.cache.Delete(ctx, catalogCacheKey)
		return s.fetchItems(ctx)
	}
	return items, nil
}

// ListItemsFor returns the catalog with IsFavorite set from the session's
// liked items. The session's profile is loaded if it isn't cached yet.
func (s *CatalogService) ListItemsFor(ctx context.Context, sess *Session) ([]model.Item, error) {
	if err := requireSession(sess); err != nil {
		return nil, err
	}

	items, err := s.ListItems(ctx)
	if err != nil {
		return nil, err
	}

	profile := sess.CachedProfile()
	if profile == nil {
		profile, err = readProfile(ctx, s.store, sess.UserID)
		if err != nil {
			return nil, err
		}
		sess.setProfile(profile)
	}

	return model.MarkFavorites(items, profile.LikedItems), nil
}

// GetItem returns a single catalog item. A missing item is a FetchError
// that also matches apperror.ErrNotFound.
func (s *CatalogService) GetItem(ctx context.Context, id string) (*model.Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperror.ValidationFailed("id", "item id is required")
	}

	doc, err := s.store.Get(ctx, repository.CollectionItems, id)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.Fetch(fmt.Sprintf("item %s does not exist", id), err)
		}
		return nil, apperror.Fetch("could not load the item", err)
	}

	item, err := decodeItem(doc)
	if err != nil {
		return nil, apperror.Fetch("could not read the item", err)
	}
	return &item, nil
}

// SeedItems writes items into the catalog, replacing documents with the
// same ID, and drops the cached snapshot.
func (s *CatalogService) SeedItems(ctx context.Context, items []model.Item) error {
	for _, it := range items {
		if strings.TrimSpace(it.ID) == "" {
			return apperror.ValidationFailed("id", fmt.Sprintf("catalog item %q has no id", it.Title))
		}
	}

	for _, it := range items {
		it.IsFavorite = false
		if it.Quantity < 1 {
			it.Quantity = 1
		}

		body, err := json.Marshal(it)
		if err != nil {
			return fmt.Errorf("service: encoding item %s: %w", it.ID, err)
		}
		if err := s.store.Set(ctx, repository.CollectionItems, it.ID, body); err != nil {
			return apperror.Write(fmt.Sprintf("could not save item %s", it.ID), err)
		}
	}

	if s.cache != nil {
		if err := s.cache.Delete(ctx, catalogCacheKey); err != nil {
			s.logger.Warn("catalog cache invalidation failed", slog.String("error", err.Error()))
		}
	}

	s.logger.Info("catalog seeded", slog.Int("items", len(items)))
	return nil
}

func (s *CatalogService) fetchItems(ctx context.Context) ([]model.Item, error) {
	docs, err := s.store.Query(ctx, repository.CollectionItems)
	if err != nil {
		return nil, apperror.Fetch("could not load the catalog", err)
	}

	items := make([]model.Item, 0, len(docs))
	for i := range docs {
		item, err := decodeItem(&docs[i])
		if err != nil {
			return nil, apperror.Fetch("the catalog contains an unreadable item", err)
		}
		items = append(items, item)
	}
	return items, nil
}

// decodeItem reads an item document. The document key is the item ID,
// whatever the body says.
func decodeItem(doc *repository.Document) (model.Item, error) {
	var item model.Item
	if err := json.Unmarshal(doc.Body, &item); err != nil {
		return model.Item{}, fmt.Errorf("decoding item %s: %w", doc.Key, err)
	}
	item.ID = doc.Key
	item.IsFavorite = false
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return item, nil
}
