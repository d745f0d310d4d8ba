// Package config provides configuration loading for onboardd.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/internal/logging"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "ONBOARD_"

// Config is the complete onboardd configuration.
type Config struct {
	Server     ServerConfig     `koanf:"server"`
	Remote     RemoteConfig     `koanf:"remote"`
	Session    SessionConfig    `koanf:"session"`
	Supabase   SupabaseConfig   `koanf:"supabase"`
	Qdrant     QdrantConfig     `koanf:"qdrant"`
	Logging    logging.Config   `koanf:"logging"`
	Onboarding OnboardingConfig `koanf:"onboarding"`
}

// ServerConfig configures the profile service listener.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// RemoteConfig configures the profile service client used by the engine.
type RemoteConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Token     string        `koanf:"token"`
	Timeout   time.Duration `koanf:"timeout"`
	RateLimit float64       `koanf:"rate_limit"`
	Burst     int           `koanf:"burst"`
}

// SessionConfig selects and configures the session store.
type SessionConfig struct {
	Driver        string        `koanf:"driver"`
	// Namespace scopes one device's sessions. Signing in as another user
	// wipes it, so devices sharing a Redis server need distinct namespaces.
	Namespace     string        `koanf:"namespace"`
	TTL           time.Duration `koanf:"ttl"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
}

// SupabaseConfig configures the profile repository. An empty URL keeps
// profiles in memory.
type SupabaseConfig struct {
	URL      string        `koanf:"url"`
	Key      string        `koanf:"key"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// QdrantConfig configures the trait index. An empty host disables it.
type QdrantConfig struct {
	Host       string `koanf:"host"`
	Port       int    `koanf:"port"`
	APIKey     string `koanf:"api_key"`
	UseTLS     bool   `koanf:"use_tls"`
	Collection string `koanf:"collection"`
}

// OnboardingConfig tunes the state machine.
type OnboardingConfig struct {
	WarningDelay      time.Duration `koanf:"warning_delay"`
	QuestionCacheSize int           `koanf:"question_cache_size"`
	QuestionCacheTTL  time.Duration `koanf:"question_cache_ttl"`
}

func defaults() map[string]any {
	return map[string]any{
		"server.addr":                    ":8080",
		"server.shutdown_timeout":        "10s",
		"remote.base_url":                "http://localhost:8080",
		"remote.timeout":                 "30s",
		"remote.rate_limit":              10.0,
		"remote.burst":                   5,
		"session.driver":                 "memory",
		"session.namespace":              "onboarding",
		"session.ttl":                    "720h",
		"session.redis_addr":             "localhost:6379",
		"supabase.cache_ttl":             "5m",
		"qdrant.port":                    6334,
		"qdrant.collection":              "onboarding_traits",
		"logging.level":                  "info",
		"logging.format":                 "json",
		"logging.caller":                 true,
		"onboarding.warning_delay":       "2s",
		"onboarding.question_cache_size": 128,
		"onboarding.question_cache_ttl":  "10m",
	}
}

// Load loads configuration from defaults, then the YAML file at path (when
// path is non-empty and the file exists), then environment variables.
//
// Environment variables carry the ONBOARD_ prefix and split on the first
// underscore after it:
//
//	ONBOARD_SERVER_ADDR        -> server.addr
//	ONBOARD_SESSION_REDIS_ADDR -> session.redis_addr
//	ONBOARD_REMOTE_BASE_URL    -> remote.base_url
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
			}
		} else if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to stat config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// envKey maps ONBOARD_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("%w: server.addr is required", onboarding.ErrInvalidConfig)
	}
	switch c.Session.Driver {
	case "memory":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("%w: session.redis_addr is required for the redis driver", onboarding.ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: session.driver must be memory or redis, got %q", onboarding.ErrInvalidStoreType, c.Session.Driver)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("%w: remote.timeout must be positive", onboarding.ErrInvalidConfig)
	}
	if c.Onboarding.WarningDelay < 0 {
		return fmt.Errorf("%w: onboarding.warning_delay must not be negative", onboarding.ErrInvalidConfig)
	}
	if c.Supabase.URL != "" && c.Supabase.Key == "" {
		return fmt.Errorf("%w: supabase.key is required with supabase.url", onboarding.ErrInvalidConfig)
	}
	if c.Qdrant.Host != "" && c.Qdrant.Collection == "" {
		return fmt.Errorf("%w: qdrant.collection is required with qdrant.host", onboarding.ErrInvalidConfig)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("%w: %v", onboarding.ErrInvalidConfig, err)
	}
	return nil
}
