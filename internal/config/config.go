// Package config loads server configuration from the environment.
//
// Values come from environment variables, optionally pre-filled from a .env
// file in the working directory. Real environment variables win over .env.
package config

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	Server ServerConfig
	App    AppConfig
	Auth   AuthConfig
	Store  StoreConfig
	Cache  CacheConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host               string        `envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port               int           `envconfig:"SERVER_PORT" default:"8080"`
	ReadTimeout        time.Duration `envconfig:"SERVER_READ_TIMEOUT" default:"15s"`
	WriteTimeout       time.Duration `envconfig:"SERVER_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout        time.Duration `envconfig:"SERVER_IDLE_TIMEOUT" default:"60s"`
	ShutdownTimeout    time.Duration `envconfig:"SERVER_SHUTDOWN_TIMEOUT" default:"30s"`
	CORSAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// AppConfig holds application-level settings.
type AppConfig struct {
	Environment         string `envconfig:"APP_ENV" default:"development"`
	LogLevel            string `envconfig:"LOG_LEVEL" default:"info"`
	OptimisticCartClear bool   `envconfig:"OPTIMISTIC_CART_CLEAR" default:"false"`
	CatalogSeedFile     string `envconfig:"CATALOG_SEED_FILE" default:""`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret string        `envconfig:"JWT_SECRET" required:"true"`
	TokenTTL  time.Duration `envconfig:"TOKEN_TTL" default:"1h"`
}

// StoreConfig selects and configures the document store.
type StoreConfig struct {
	Type            string `envconfig:"STORE_TYPE" default:"sqlite"` // sqlite, postgres, mongodb or memory
	SQLitePath      string `envconfig:"SQLITE_PATH" default:"./data/sweetshop.db"`
	PostgresDSN     string `envconfig:"POSTGRES_DSN" default:""`
	MongoURI        string `envconfig:"MONGODB_URI" default:""`
	MongoDatabase   string `envconfig:"MONGODB_DATABASE" default:"sweetshop"`
	StartupRetryMax uint64 `envconfig:"STARTUP_RETRY_MAX" default:"5"`
}

// CacheConfig holds cache settings. TTL is how long a catalog snapshot is
// served before the store is asked again; 0 disables the snapshot cache.
type CacheConfig struct {
	Type string        `envconfig:"CACHE_TYPE" default:"memory"` // memory or redis
	TTL  time.Duration `envconfig:"CACHE_TTL" default:"5m"`

	RedisHost     string `envconfig:"REDIS_HOST" default:"localhost"`
	RedisPort     int    `envconfig:"REDIS_PORT" default:"6379"`
	RedisPassword string `envconfig:"REDIS_PASSWORD" default:""`
	RedisDB       int    `envconfig:"REDIS_DB" default:"0"`
	RedisPrefix   string `envconfig:"REDIS_PREFIX" default:"sweetshop"`
}

// Store types.
const (
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongoDB  = "mongodb"
	StoreMemory   = "memory"
)

// Cache types.
const (
	CacheMemory = "memory"
	CacheRedis  = "redis"
)

// Address returns the server address in host:port format.
func (s *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// RedisAddress returns the Redis address in host:port format.
func (c *CacheConfig) RedisAddress() string {
	return fmt.Sprintf("%s:%d", c.RedisHost, c.RedisPort)
}

// IsProduction returns true if running in production mode.
func (a *AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// SlogLevel parses LogLevel ("debug", "info", "warn", "error").
func (a *AppConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(a.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("config: LOG_LEVEL %q: %w", a.LogLevel, err)
	}
	return level, nil
}

// Load reads configuration from environment variables, after filling in
// any unset ones from .env files (default: ./.env, silently skipped when
// missing).
func Load(envFiles ...string) (*Config, error) {
	_ = godotenv.Load(envFiles...)

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: loading environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings that envconfig cannot.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("config: JWT_SECRET must be at least 16 characters")
	}
	if c.Auth.TokenTTL <= 0 {
		return fmt.Errorf("config: TOKEN_TTL must be positive")
	}

	c.Store.Type = strings.ToLower(c.Store.Type)
	switch c.Store.Type {
	case StoreSQLite, StoreMemory:
	case StorePostgres:
		if c.Store.PostgresDSN == "" {
			return fmt.Errorf("config: POSTGRES_DSN is required when STORE_TYPE=postgres")
		}
	case StoreMongoDB:
		if c.Store.MongoURI == "" {
			return fmt.Errorf("config: MONGODB_URI is required when STORE_TYPE=mongodb")
		}
	default:
		return fmt.Errorf("config: unknown STORE_TYPE %q", c.Store.Type)
	}

	c.Cache.Type = strings.ToLower(c.Cache.Type)
	if !slices.Contains([]string{CacheMemory, CacheRedis}, c.Cache.Type) {
		return fmt.Errorf("config: unknown CACHE_TYPE %q", c.Cache.Type)
	}

	if _, err := c.App.SlogLevel(); err != nil {
		return err
	}
	return nil
}
