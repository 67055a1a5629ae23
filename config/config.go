// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "RENTDESK_"

// Refetch modes for cache.refetch_on_invalidate.
const (
	RefetchSync       = "sync"
	RefetchBackground = "background"
)

// Session store kinds.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

// Config is the root configuration structure.
type Config struct {
	API     APIConfig     `yaml:"api"`
	Cache   CacheConfig   `yaml:"cache"`
	Session SessionConfig `yaml:"session"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig configures the rental backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
	// Domains routes individual backend domains (vehicles, bookings, ...)
	// to their own base URL.
	Domains map[string]string `yaml:"domains,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

// CacheConfig configures the query cache.
type CacheConfig struct {
	StaleTime           time.Duration `yaml:"stale_time"` // 0: fresh until invalidated
	GCDelay             time.Duration `yaml:"gc_delay"`
	RefetchOnInvalidate string        `yaml:"refetch_on_invalidate"` // "sync" or "background"
}

// Background reports whether invalidation refetches run detached.
func (c CacheConfig) Background() bool {
	return c.RefetchOnInvalidate == RefetchBackground
}

// SessionConfig configures where the signed-in session is persisted.
type SessionConfig struct {
	Store  string       `yaml:"store"` // "memory", "sqlite" or "redis"
	Secret string       `yaml:"secret,omitempty"`
	SQLite SQLiteConfig `yaml:"sqlite,omitempty"`
	Redis  RedisConfig  `yaml:"redis,omitempty"`
}

// SQLiteConfig configures the sqlite session store.
type SQLiteConfig struct {
	DSN string `yaml:"dsn"`
}

// RedisConfig configures the redis session store.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Username string        `yaml:"username,omitempty"`
	Password string        `yaml:"password,omitempty"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl,omitempty"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "console"
}

// MetricsConfig configures Prometheus metrics for the watch server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Listen  string `yaml:"listen"`
	Path    string `yaml:"path"` // default: /metrics
}

// Load reads configuration from a YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	// Expand environment variables
	data = []byte(os.ExpandEnv(string(data)))

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadFromEnv creates configuration entirely from environment variables.
//
// Environment variables:
//
//	RENTDESK_API_URL               - Backend base URL (required)
//	RENTDESK_API_TIMEOUT           - Request timeout (default: 30s)
//	RENTDESK_API_DOMAIN_<NAME>     - Base URL override for one domain
//	RENTDESK_CACHE_STALE_TIME      - Freshness window (default: 0, until invalidated)
//	RENTDESK_CACHE_GC_DELAY        - Eviction delay after last unsubscribe (default: 60s)
//	RENTDESK_CACHE_REFETCH         - sync or background (default: sync)
//	RENTDESK_SESSION_STORE         - memory, sqlite or redis (default: memory)
//	RENTDESK_SESSION_SECRET        - Seals the stored token when set
//	RENTDESK_SESSION_SQLITE_DSN    - sqlite path (default: rentdesk.db)
//	RENTDESK_REDIS_ADDR            - redis address
//	RENTDESK_REDIS_PASSWORD        - redis password
//	RENTDESK_REDIS_DB              - redis database number
//	RENTDESK_LOG_LEVEL             - debug, info, warn, error (default: info)
//	RENTDESK_LOG_FORMAT            - json or console (default: console)
//	RENTDESK_METRICS_ENABLED       - Serve metrics from `rentdesk watch`
//	RENTDESK_METRICS_LISTEN        - Listen address (default: 127.0.0.1:9464)
func LoadFromEnv() (*Config, error) {
	var cfg Config

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// LoadWithFallback tries to load from file, falls back to environment variables.
func LoadWithFallback(path string) (*Config, error) {
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	if HasEnvConfig() {
		return LoadFromEnv()
	}

	return nil, fmt.Errorf("no configuration found: provide config file or set %sAPI_URL", EnvPrefix)
}

// HasEnvConfig returns true if essential environment variables are set.
func HasEnvConfig() bool {
	return os.Getenv(EnvPrefix+"API_URL") != ""
}

func env(name string) string {
	return os.Getenv(EnvPrefix + name)
}

// applyEnvOverrides applies RENTDESK_* environment variables to the config.
// Environment variables always override file-based configuration.
func applyEnvOverrides(cfg *Config) {
	// API
	if v := env("API_URL"); v != "" {
		cfg.API.BaseURL = v
	}
	if v := env("API_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.API.Timeout = d
		}
	}
	domainPrefix := EnvPrefix + "API_DOMAIN_"
	for _, kv := range os.Environ() {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, domainPrefix) || value == "" {
			continue
		}
		if cfg.API.Domains == nil {
			cfg.API.Domains = make(map[string]string)
		}
		cfg.API.Domains[strings.ToLower(strings.TrimPrefix(name, domainPrefix))] = value
	}

	// Cache
	if v := env("CACHE_STALE_TIME"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.StaleTime = d
		}
	}
	if v := env("CACHE_GC_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Cache.GCDelay = d
		}
	}
	if v := env("CACHE_REFETCH"); v != "" {
		cfg.Cache.RefetchOnInvalidate = strings.ToLower(v)
	}

	// Session
	if v := env("SESSION_STORE"); v != "" {
		cfg.Session.Store = strings.ToLower(v)
	}
	if v := env("SESSION_SECRET"); v != "" {
		cfg.Session.Secret = v
	}
	if v := env("SESSION_SQLITE_DSN"); v != "" {
		cfg.Session.SQLite.DSN = v
	}
	if v := env("REDIS_ADDR"); v != "" {
		cfg.Session.Redis.Addr = v
	}
	if v := env("REDIS_PASSWORD"); v != "" {
		cfg.Session.Redis.Password = v
	}
	if v := env("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Session.Redis.DB = n
		}
	}

	// Logging
	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	// Metrics
	if v := env("METRICS_ENABLED"); v != "" {
		cfg.Metrics.Enabled = parseBool(v)
	}
	if v := env("METRICS_LISTEN"); v != "" {
		cfg.Metrics.Listen = v
	}
	if v := env("METRICS_PATH"); v != "" {
		cfg.Metrics.Path = v
	}
}

// parseBool parses a boolean from common string values.
func parseBool(v string) bool {
	v = strings.ToLower(strings.TrimSpace(v))
	return v == "true" || v == "1" || v == "yes" || v == "on"
}

func setDefaults(cfg *Config) {
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}

	if cfg.Cache.GCDelay == 0 {
		cfg.Cache.GCDelay = 60 * time.Second
	}
	if cfg.Cache.RefetchOnInvalidate == "" {
		cfg.Cache.RefetchOnInvalidate = RefetchSync
	}

	if cfg.Session.Store == "" {
		cfg.Session.Store = StoreMemory
	}
	if cfg.Session.SQLite.DSN == "" {
		cfg.Session.SQLite.DSN = "rentdesk.db"
	}
	if cfg.Session.Redis.Key == "" {
		cfg.Session.Redis.Key = "rentdesk:session"
	}

	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "console"
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = "127.0.0.1:9464"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

func validate(cfg *Config) error {
	if cfg.API.BaseURL == "" {
		return fmt.Errorf("api.base_url is required")
	}
	if err := validateURL("api.base_url", cfg.API.BaseURL); err != nil {
		return err
	}
	for domain, u := range cfg.API.Domains {
		if err := validateURL("api.domains."+domain, u); err != nil {
			return err
		}
	}
	if cfg.API.Timeout < 0 {
		return fmt.Errorf("api.timeout must not be negative")
	}

	if cfg.Cache.StaleTime < 0 {
		return fmt.Errorf("cache.stale_time must not be negative")
	}
	if cfg.Cache.GCDelay < 0 {
		return fmt.Errorf("cache.gc_delay must not be negative")
	}
	validRefetch := map[string]bool{RefetchSync: true, RefetchBackground: true}
	if !validRefetch[cfg.Cache.RefetchOnInvalidate] {
		return fmt.Errorf("cache.refetch_on_invalidate must be 'sync' or 'background', got %q", cfg.Cache.RefetchOnInvalidate)
	}

	switch cfg.Session.Store {
	case StoreMemory, StoreSQLite:
	case StoreRedis:
		if cfg.Session.Redis.Addr == "" {
			return fmt.Errorf("session.redis.addr is required when session.store is 'redis'")
		}
		if cfg.Session.Redis.TTL < 0 {
			return fmt.Errorf("session.redis.ttl must not be negative")
		}
	default:
		return fmt.Errorf("session.store must be one of: memory, sqlite, redis")
	}

	if _, err := zerolog.ParseLevel(strings.ToLower(cfg.Logging.Level)); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	if cfg.Logging.Format != "json" && cfg.Logging.Format != "console" {
		return fmt.Errorf("logging.format must be 'json' or 'console', got %q", cfg.Logging.Format)
	}

	if !strings.HasPrefix(cfg.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/'")
	}

	return nil
}

func validateURL(field, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%s must be an absolute http(s) URL, got %q", field, raw)
	}
	return nil
}
