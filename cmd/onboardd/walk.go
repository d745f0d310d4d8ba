package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap/zapcore"

	"github.com/creastat/onboarding/internal/config"
	"github.com/creastat/onboarding/internal/metrics"
	"github.com/creastat/onboarding/internal/walkthrough"
	"github.com/creastat/onboarding/machine"
	"github.com/creastat/onboarding/questionbank"
	"github.com/creastat/onboarding/remote"
)

var (
	walkUser    string
	walkVerbose bool
)

func init() {
	walkCmd.Flags().StringVar(&walkUser, "user", "", "user id to onboard (required)")
	walkCmd.Flags().BoolVar(&walkVerbose, "verbose", false, "keep info logs on stderr")
	_ = walkCmd.MarkFlagRequired("user")
}

var walkCmd = &cobra.Command{
	Use:   "walk",
	Short: "Walk through onboarding in the terminal",
	Long: `Walk through onboarding in the terminal against the configured profile
service. Progress is saved after every answer; run walk again with the same
user to resume.

Examples:
  # Onboard a user against a local profile service
  onboardd walk --user 3f6c9a

  # Keep progress in Redis; each device needs its own namespace since
  # signing in as another user wipes the namespace
  ONBOARD_SESSION_DRIVER=redis ONBOARD_SESSION_NAMESPACE=kiosk-2 onboardd walk --user 3f6c9a`,
	RunE: runWalk,
}

func runWalk(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := loadConfig(func(c *config.Config) {
		if !walkVerbose && c.Logging.Level < zapcore.WarnLevel {
			c.Logging.Level = zapcore.WarnLevel
		}
	})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := remote.New(remote.Config{
		BaseURL:   cfg.Remote.BaseURL,
		Token:     cfg.Remote.Token,
		Timeout:   cfg.Remote.Timeout,
		RateLimit: cfg.Remote.RateLimit,
		Burst:     cfg.Remote.Burst,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to create profile service client: %w", err)
	}

	m := metrics.New()
	bank, err := questionbank.New(client, questionbank.Config{
		CacheSize: cfg.Onboarding.QuestionCacheSize,
		CacheTTL:  cfg.Onboarding.QuestionCacheTTL,
		Metrics:   m,
	}, logger)
	if err != nil {
		return err
	}

	store, err := openSessionStore(cfg.Session)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fsm, err := machine.Open(ctx, walkUser, machine.Config{
		Questions:    bank,
		Remote:       client,
		Store:        store,
		Logger:       logger,
		Metrics:      m,
		WarningDelay: cfg.Onboarding.WarningDelay,
	})
	if err != nil {
		return fmt.Errorf("failed to open onboarding session: %w", err)
	}

	return walkthrough.New(fsm, cmd.InOrStdin(), cmd.OutOrStdout(), logger).Run(ctx)
}
