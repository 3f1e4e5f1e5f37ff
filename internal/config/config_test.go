package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "config-test-secret-0123456789"

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.Server.Address())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSAllowedOrigins)
	assert.Equal(t, StoreSQLite, cfg.Store.Type)
	assert.Equal(t, CacheMemory, cfg.Cache.Type)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.False(t, cfg.App.OptimisticCartClear)
	assert.False(t, cfg.App.IsProduction())
	assert.Equal(t, "localhost:6379", cfg.Cache.RedisAddress())
}

func TestLoad_FromEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(path, []byte(
		"JWT_SECRET="+testSecret+"\n"+
			"STORE_TYPE=Memory\n"+
			"OPTIMISTIC_CART_CLEAR=true\n"+
			"CORS_ALLOWED_ORIGINS=https://a.example,https://b.example\n",
	), 0o600))

	// godotenv never overrides real variables, and t.Setenv restores them,
	// so clear what the file sets first.
	for _, k := range []string{"JWT_SECRET", "STORE_TYPE", "OPTIMISTIC_CART_CLEAR", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, StoreMemory, cfg.Store.Type, "type is case-insensitive")
	assert.True(t, cfg.App.OptimisticCartClear)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSAllowedOrigins)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing secret", map[string]string{"JWT_SECRET": ""}},
		{"short secret", map[string]string{"JWT_SECRET": "short"}},
		{"unknown store", map[string]string{"STORE_TYPE": "cassandra"}},
		{"postgres without dsn", map[string]string{"STORE_TYPE": "postgres"}},
		{"mongodb without uri", map[string]string{"STORE_TYPE": "mongodb"}},
		{"unknown cache", map[string]string{"CACHE_TYPE": "memcached"}},
		{"bad log level", map[string]string{"LOG_LEVEL": "chatty"}},
		{"bad duration", map[string]string{"TOKEN_TTL": "forever"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("JWT_SECRET", testSecret)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load(filepath.Join(t.TempDir(), "missing.env"))
			assert.Error(t, err)
		})
	}
}

func TestSlogLevel(t *testing.T) {
	a := AppConfig{LogLevel: "debug"}
	level, err := a.SlogLevel()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, level)
}
