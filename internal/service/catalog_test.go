package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sweet-shop/internal/apperror"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/repository"
)

func TestListItems_IDsComeFromKeys(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()

	// A document whose body disagrees with its key.
	body := json.RawMessage(`{"id":"wrong","title":"Honey Cake","price":80,"isFavorite":true}`)
	require.NoError(t, env.store.Set(ctx, repository.CollectionItems, "honey", body))
	env.seed(t, applePie)

	items, err := env.catalog.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "apple", items[0].ID)
	assert.Equal(t, "honey", items[1].ID)
	assert.False(t, items[1].IsFavorite, "favorite flags are never read from the store")
	assert.Equal(t, 1, items[1].Quantity)
}

func TestListItems_EmptyCatalog(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})

	items, err := env.catalog.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestListItems_StoreDown(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	env.store.setFailures(true, false)

	_, err := env.catalog.ListItems(context.Background())
	assert.ErrorIs(t, err, apperror.ErrFetch)
}

func TestListItems_CachedSnapshot(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	catalog := NewCatalogService(env.store, env.cache, time.Minute, quietLogger())

	require.NoError(t, catalog.SeedItems(ctx, []model.Item{cherryPie, applePie}))

	first, err := catalog.ListItems(ctx)
	require.NoError(t, err)
	second, err := catalog.ListItems(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, env.store.queryCount(), "second call should be served from the cache")

	// While cached, a store outage is invisible.
	env.store.setFailures(true, false)
	_, err = catalog.ListItems(ctx)
	assert.NoError(t, err)
}

func TestSeedItems_InvalidatesCache(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	catalog := NewCatalogService(env.store, env.cache, time.Minute, quietLogger())

	require.NoError(t, catalog.SeedItems(ctx, []model.Item{cherryPie}))
	items, err := catalog.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 1)

	require.NoError(t, catalog.SeedItems(ctx, []model.Item{plumTart}))
	items, err = catalog.ListItems(ctx)
	require.NoError(t, err)
	assert.Len(t, items, 2)
	assert.Equal(t, 2, env.store.queryCount())
}

func TestSeedItems_RequiresIDs(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})

	err := env.catalog.SeedItems(context.Background(), []model.Item{cherryPie, {Title: "Nameless"}})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	items, err := env.catalog.ListItems(context.Background())
	require.NoError(t, err)
	assert.Empty(t, items, "nothing is written when any item is invalid")
}

func TestListItemsFor_MarksFavorites(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	env.seed(t, cherryPie, applePie, plumTart)
	sess := env.signUp(t, "nia@example.com")

	p := model.NewProfile()
	p.LikedItems = []string{"plum", "not-in-catalog"}
	require.NoError(t, env.profiles.SaveProfile(ctx, sess, p))

	// Drop the cached profile so the catalog has to read it.
	sess.clearProfile()

	items, err := env.catalog.ListItemsFor(ctx, sess)
	require.NoError(t, err)

	favs := model.FavoriteItems(items)
	require.Len(t, favs, 1)
	assert.Equal(t, "plum", favs[0].ID)
}

func TestGetItem(t *testing.T) {
	env := newTestEnv(t, ProfileConfig{})
	ctx := context.Background()
	env.seed(t, cherryPie)

	got, err := env.catalog.GetItem(ctx, "cherry")
	require.NoError(t, err)
	assert.Equal(t, "Cherry Pie", got.Title)

	_, err = env.catalog.GetItem(ctx, "missing")
	assert.ErrorIs(t, err, apperror.ErrFetch)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = env.catalog.GetItem(ctx, "  ")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
