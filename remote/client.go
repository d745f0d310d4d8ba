// Package remote is the HTTP client of the onboarding profile service.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/goldenkey"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultRateLimit    = 10
	defaultBurst        = 5
	defaultMaxBodyBytes = 1 << 20
)

// Config holds profile service client configuration.
type Config struct {
	BaseURL string
	// Token is sent as a bearer token when set.
	Token string
	// Timeout bounds each call, including rate-limit waits.
	Timeout time.Duration
	// RateLimit is the sustained number of calls per second.
	RateLimit float64
	Burst     int
	// MaxBodyBytes bounds response bodies.
	MaxBodyBytes int64
	HTTPClient   *http.Client
}

// Error is a non-success answer of the profile service. It wraps
// onboarding.ErrRemote.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("profile service returned status %d", e.Status)
	}
	return fmt.Sprintf("profile service returned status %d: %s", e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return onboarding.ErrRemote
}

// ResponseTooLargeError reports that a response body exceeded the limit.
type ResponseTooLargeError struct {
	Limit int64
}

func (e ResponseTooLargeError) Error() string {
	return fmt.Sprintf("response body exceeded limit of %d bytes", e.Limit)
}

// Client calls the onboarding endpoints. Calls are never retried.
type Client struct {
	baseURL *url.URL
	token   string
	timeout time.Duration
	maxBody int64
	http    *http.Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// New creates a Client.
func New(cfg Config, logger *zap.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("%w: remote base url is required", onboarding.ErrInvalidConfig)
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid remote base url: %v", onboarding.ErrInvalidConfig, err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Burst <= 0 {
		cfg.Burst = defaultBurst
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		baseURL: base,
		token:   cfg.Token,
		timeout: cfg.Timeout,
		maxBody: cfg.MaxBodyBytes,
		http:    cfg.HTTPClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.Burst),
		logger:  logger,
	}, nil
}

// FetchQuestions loads the question set of a tier.
func (c *Client) FetchQuestions(ctx context.Context, tier int, userID string) (*api.QuestionsResponse, error) {
	q := url.Values{}
	q.Set("tier", strconv.Itoa(tier))
	q.Set("userId", userID)

	var out api.QuestionsResponse
	if err := c.do(ctx, http.MethodGet, api.PathQuestions, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTier1 submits tier-1 answers and pattern scores.
func (c *Client) SubmitTier1(ctx context.Context, sub api.Tier1Submission) (*api.Tier1Result, error) {
	var out api.Tier1Result
	if err := c.do(ctx, http.MethodPost, api.PathTier1, nil, sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTier2 submits domain answers and golden keys.
func (c *Client) SubmitTier2(ctx context.Context, sub api.Tier2Submission) (*api.Result, error) {
	if sub.GoldenKeys == nil {
		sub.GoldenKeys = []goldenkey.GoldenKey{}
	}
	var out api.Result
	if err := c.do(ctx, http.MethodPost, api.PathTier2, nil, sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SubmitTier3 submits the tier-3 answers.
func (c *Client) SubmitTier3(ctx context.Context, sub api.Tier3Submission) (*api.Result, error) {
	var out api.Result
	if err := c.do(ctx, http.MethodPost, api.PathTier3, nil, sub, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GeneratePreviews requests voice preview texts.
func (c *Client) GeneratePreviews(ctx context.Context, req api.PreviewRequest) (*api.PreviewResult, error) {
	var out api.PreviewResult
	if err := c.do(ctx, http.MethodPost, api.PathVoicePreviews, nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// FinalizeVoice stores the selected voice. A result with a Warning is a
// success.
func (c *Client) FinalizeVoice(ctx context.Context, sel api.VoiceSelection) (*api.VoiceSelectionResult, error) {
	var out api.VoiceSelectionResult
	if err := c.do(ctx, http.MethodPost, api.PathVoiceSelection, nil, sel, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// envelope holds the fields every response shares.
type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("%w: %s %s: rate limit wait: %w", onboarding.ErrRemote, method, path, err)
	}

	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error("profile service call failed",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("%w: %s %s: %w", onboarding.ErrRemote, method, path, err)
	}
	defer resp.Body.Close()

	data, err := readAllWithLimit(resp.Body, c.maxBody)
	if err != nil {
		return fmt.Errorf("%w: %s %s: %w", onboarding.ErrRemote, method, path, err)
	}

	c.logger.Debug("profile service call",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	var env envelope
	_ = json.Unmarshal(data, &env)

	if resp.StatusCode >= http.StatusBadRequest {
		msg := env.Error
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if !env.Success {
		return &Error{Status: resp.StatusCode, Message: env.Error}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %w", onboarding.ErrRemote, err)
	}
	return nil
}

func readAllWithLimit(r io.Reader, limit int64) ([]byte, error) {
	lr := &io.LimitedReader{R: r, N: limit + 1}
	data, err := io.ReadAll(lr)
	if err != nil {
		return nil, err
	}
	if int64(len(data)) > limit {
		return nil, ResponseTooLargeError{Limit: limit}
	}
	return data, nil
}

// IsResponseTooLarge reports whether err is a body limit violation.
func IsResponseTooLarge(err error) bool {
	var limitErr ResponseTooLargeError
	return errors.As(err, &limitErr)
}
