// Package main implements onboardd, the onboarding profile service and its
// operator tooling.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/creastat/onboarding/internal/config"
	"github.com/creastat/onboarding/internal/logging"
	"github.com/creastat/onboarding/session"
	"github.com/creastat/onboarding/session/drivers"
	"github.com/creastat/onboarding/supabase"
	"github.com/creastat/onboarding/vectorstore"
	"github.com/creastat/onboarding/vectorstore/qdrant"
)

var (
	// configPath is the optional YAML configuration file
	configPath string

	// Set via -ldflags at build time.
	version   = "dev"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "onboardd",
	Short: "Adaptive journaling onboarding service",
	Long: `onboardd runs the onboarding profile service and drives onboarding
sessions from the terminal.

Configuration is read from an optional YAML file and ONBOARD_* environment
variables, for example ONBOARD_SERVER_ADDR or ONBOARD_SESSION_DRIVER.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(walkCmd)
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig loads configuration and builds the logger. adjust may tweak
// the configuration before the logger is built.
func loadConfig(adjust func(*config.Config)) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	if adjust != nil {
		adjust(cfg)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return cfg, logger, nil
}

// openSessionStore builds the configured session store.
func openSessionStore(cfg config.SessionConfig) (session.Store, error) {
	opts := []session.StoreOption{
		session.WithNamespace(cfg.Namespace),
		session.WithTTL(cfg.TTL),
	}
	if session.StoreType(cfg.Driver) == session.StoreTypeRedis {
		opts = append(opts, session.WithRedisClient(redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})))
	}
	store, err := drivers.New(session.StoreType(cfg.Driver), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create session store: %w", err)
	}
	return store, nil
}

// openProfileStore connects to Supabase, or keeps profiles in memory when no
// project is configured.
func openProfileStore(cfg config.SupabaseConfig, logger *zap.Logger) (supabase.Store, error) {
	if cfg.URL == "" {
		logger.Warn("supabase is not configured, profiles are kept in memory")
		return supabase.NewMemoryStore(), nil
	}
	store, err := supabase.New(supabase.Config{
		URL:      cfg.URL,
		APIKey:   cfg.Key,
		CacheTTL: cfg.CacheTTL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to supabase: %w", err)
	}
	return store, nil
}

// openTraitIndex connects to Qdrant and ensures the collection exists, or
// indexes in memory when no host is configured.
func openTraitIndex(ctx context.Context, cfg config.QdrantConfig, logger *zap.Logger) (vectorstore.TraitIndex, error) {
	if cfg.Host == "" {
		logger.Warn("qdrant is not configured, trait vectors are indexed in memory")
		return vectorstore.NewMemoryIndex(), nil
	}
	index, err := qdrant.New(qdrant.Config{
		Host:           cfg.Host,
		Port:           cfg.Port,
		APIKey:         cfg.APIKey,
		UseTLS:         cfg.UseTLS,
		CollectionName: cfg.Collection,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to qdrant: %w", err)
	}
	if err := index.EnsureCollection(ctx); err != nil {
		_ = index.Close()
		return nil, err
	}
	return index, nil
}
