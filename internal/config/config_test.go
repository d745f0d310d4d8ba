package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	onboarding "github.com/creastat/onboarding"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, "memory", cfg.Session.Driver)
	assert.Equal(t, 720*time.Hour, cfg.Session.TTL)
	assert.Equal(t, 2*time.Second, cfg.Onboarding.WarningDelay)
	assert.Equal(t, zapcore.InfoLevel, cfg.Logging.Level)
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "onboardd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session:
  driver: redis
  redis_addr: cache:6379
remote:
  base_url: https://profiles.example.com
logging:
  level: debug
  format: console
`), 0o600))

	t.Setenv("ONBOARD_SESSION_NAMESPACE", "staging")
	t.Setenv("ONBOARD_REMOTE_TIMEOUT", "5s")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "redis", cfg.Session.Driver)
	assert.Equal(t, "cache:6379", cfg.Session.RedisAddr)
	assert.Equal(t, "staging", cfg.Session.Namespace)
	assert.Equal(t, "https://profiles.example.com", cfg.Remote.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.Remote.Timeout)
	assert.Equal(t, zapcore.DebugLevel, cfg.Logging.Level)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Session.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"unknown driver", func(c *Config) { c.Session.Driver = "sqlite" }, onboarding.ErrInvalidStoreType},
		{"redis without addr", func(c *Config) { c.Session.Driver = "redis"; c.Session.RedisAddr = "" }, onboarding.ErrInvalidConfig},
		{"negative delay", func(c *Config) { c.Onboarding.WarningDelay = -time.Second }, onboarding.ErrInvalidConfig},
		{"supabase without key", func(c *Config) { c.Supabase.URL = "https://x.supabase.co" }, onboarding.ErrInvalidConfig},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, onboarding.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load("")
			require.NoError(t, err)
			tt.mutate(cfg)
			assert.ErrorIs(t, cfg.Validate(), tt.want)
		})
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "session.redis_addr", envKey("ONBOARD_SESSION_REDIS_ADDR"))
	assert.Equal(t, "server.addr", envKey("ONBOARD_SERVER_ADDR"))
}
