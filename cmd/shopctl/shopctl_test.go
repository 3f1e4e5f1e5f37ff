package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/sweet-shop/internal/config"
	"github.com/sakif/sweet-shop/internal/model"
	"github.com/sakif/sweet-shop/internal/server"
)

func startShop(t *testing.T) string {
	t.Helper()

	seed := filepath.Join(t.TempDir(), "catalog.json")
	raw, err := json.Marshal([]model.Item{
		{ID: "cherry", Title: "Cherry Pie", Price: 1250, Weight: 500},
		{ID: "apple", Title: "Apple Pie", Price: 990, Weight: 450},
	})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(seed, raw, 0o600))

	cfg := &config.Config{
		App:   config.AppConfig{Environment: "test", LogLevel: "info", CatalogSeedFile: seed},
		Auth:  config.AuthConfig{JWTSecret: "shopctl-test-secret-0123456789", TokenTTL: time.Hour},
		Store: config.StoreConfig{Type: config.StoreMemory},
		Cache: config.CacheConfig{Type: config.CacheMemory},
	}
	s, err := server.New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return srv.URL
}

func run(t *testing.T, api string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(&out)
	cmd.SetArgs(append([]string{"--api", api, "--email", "amy@example.com", "--password", "secret123"}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestShopctl_EndToEnd(t *testing.T) {
	api := startShop(t)

	out, err := run(t, api, "signup")
	require.NoError(t, err)
	assert.Contains(t, out, "created account amy@example.com")

	out, err = run(t, api, "items", "--search", "cherry")
	require.NoError(t, err)
	assert.Contains(t, out, "Cherry Pie")
	assert.NotContains(t, out, "Apple Pie")
	assert.Contains(t, out, "12.50")

	out, err = run(t, api, "favorite", "apple")
	require.NoError(t, err)
	assert.Contains(t, out, "apple added to favorites")

	out, err = run(t, api, "items", "--favorites", "--json")
	require.NoError(t, err)
	var favs []model.Item
	require.NoError(t, json.Unmarshal([]byte(out), &favs))
	require.Len(t, favs, 1)
	assert.Equal(t, "apple", favs[0].ID)

	_, err = run(t, api, "cart", "add", "cherry", "--qty", "2")
	require.NoError(t, err)
	_, err = run(t, api, "cart", "add", "apple")
	require.NoError(t, err)
	_, err = run(t, api, "cart", "rm", "apple")
	require.NoError(t, err)

	out, err = run(t, api, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "25.00")

	out, err = run(t, api, "buy")
	require.NoError(t, err)
	assert.Contains(t, out, "total 25.00")

	out, err = run(t, api, "orders", "--json")
	require.NoError(t, err)
	var orders []model.Order
	require.NoError(t, json.Unmarshal([]byte(out), &orders))
	assert.Len(t, orders, 1)

	out, err = run(t, api, "cart", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "cart is empty")
}

func TestShopctl_Errors(t *testing.T) {
	api := startShop(t)

	_, err := run(t, api, "buy")
	assert.ErrorContains(t, err, "signing in")

	_, err = run(t, api, "signup")
	require.NoError(t, err)

	_, err = run(t, api, "buy")
	assert.ErrorContains(t, err, "the cart is empty")

	_, err = run(t, api, "cart", "set", "cherry", "lots")
	assert.ErrorContains(t, err, "not a number")
}

func TestFormatPrice(t *testing.T) {
	assert.Equal(t, "0.05", formatPrice(5))
	assert.Equal(t, "12.30", formatPrice(1230))
	assert.Equal(t, "-1.00", formatPrice(-100))
}
