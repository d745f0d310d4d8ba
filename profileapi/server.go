// Package profileapi is the HTTP profile service the onboarding engine talks
// to. It stores profiles through a supabase.Store and indexes trait vectors
// in a vectorstore.TraitIndex.
package profileapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/internal/metrics"
	"github.com/creastat/onboarding/supabase"
	"github.com/creastat/onboarding/vectorstore"
)

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
)

// Server provides the onboarding endpoints.
type Server struct {
	echo     *echo.Echo
	store    supabase.Store
	index    vectorstore.TraitIndex
	synth    *Synthesizer
	previews PreviewSource
	metrics  *metrics.Metrics
	logger   *zap.Logger
	config   *Config
	now      func() time.Time
}

// Config holds HTTP server configuration.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithTraitIndex indexes each user's trait vector on tier-1 submission and
// enables the similar-users endpoint.
func WithTraitIndex(index vectorstore.TraitIndex) Option {
	return func(s *Server) {
		s.index = index
	}
}

// WithPreviewSource replaces the static persona previews.
func WithPreviewSource(p PreviewSource) Option {
	return func(s *Server) {
		s.previews = p
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

// NewServer creates a new profile service.
func NewServer(store supabase.Store, logger *zap.Logger, cfg *Config, opts ...Option) (*Server, error) {
	if store == nil {
		return nil, fmt.Errorf("profile store cannot be nil")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required for request tracking and debugging")
	}
	if cfg == nil {
		cfg = &Config{}
	}
	if cfg.Addr == "" {
		cfg.Addr = defaultAddr
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = defaultShutdownTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	s := &Server{
		echo:     e,
		store:    store,
		synth:    NewSynthesizer(),
		previews: NewStaticPreviews(),
		metrics:  metrics.New(),
		logger:   logger,
		config:   cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(s.observe())

	s.registerRoutes()

	return s, nil
}

// registerRoutes sets up the HTTP endpoints.
func (s *Server) registerRoutes() {
	s.echo.GET("/health", s.handleHealth)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	s.echo.GET(api.PathQuestions, s.handleQuestions)
	s.echo.POST(api.PathTier1, s.handleTier1)
	s.echo.POST(api.PathTier2, s.handleTier2)
	s.echo.POST(api.PathTier3, s.handleTier3)
	s.echo.POST(api.PathVoicePreviews, s.handleVoicePreviews)
	s.echo.POST(api.PathVoiceSelection, s.handleVoiceSelection)
	s.echo.GET(api.PathSimilar, s.handleSimilar)
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// HealthResponse is the response body for GET /health.
type HealthResponse struct {
	Status string `json:"status"`
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{Status: "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting profile service", zap.String("addr", s.config.Addr))
	return s.echo.Start(s.config.Addr)
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down profile service")
	return s.echo.Shutdown(ctx)
}

// Run serves until ctx is cancelled, then shuts down within the configured
// timeout.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down profile service: %w", err)
	}
	return nil
}
