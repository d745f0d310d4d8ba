package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/creastat/onboarding/profileapi"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the onboarding profile service",
	Long: `Run the HTTP profile service the onboarding engine submits to.

Profiles go to Supabase and trait vectors to Qdrant when configured;
otherwise both are kept in memory.

Examples:
  # Serve with defaults on :8080
  onboardd serve

  # Serve with a config file
  onboardd serve --config onboardd.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(nil)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openProfileStore(cfg.Supabase, logger)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	index, err := openTraitIndex(ctx, cfg.Qdrant, logger)
	if err != nil {
		return err
	}
	defer func() { _ = index.Close() }()

	server, err := profileapi.NewServer(store, logger, &profileapi.Config{
		Addr:            cfg.Server.Addr,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, profileapi.WithTraitIndex(index))
	if err != nil {
		return err
	}

	logger.Info("onboardd starting",
		zap.String("version", version),
		zap.String("addr", cfg.Server.Addr))
	return server.Run(ctx)
}
