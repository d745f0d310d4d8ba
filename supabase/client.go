package supabase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/supabase-community/supabase-go"

	onboarding "github.com/creastat/onboarding"
)

// Config holds Supabase connection configuration
type Config struct {
	URL      string
	APIKey   string
	CacheTTL time.Duration // Default: 5 minutes
}

// Client implements the Store interface using Supabase
type Client struct {
	client   *supabase.Client
	cache    *cache
	cacheTTL time.Duration
}

// cache holds recently read or written profiles
type cache struct {
	mu       sync.RWMutex
	profiles map[string]*cacheEntry[Profile]
}

type cacheEntry[T any] struct {
	value     T
	expiresAt time.Time
}

// New creates a new Supabase client
func New(cfg Config) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: supabase URL is required", onboarding.ErrInvalidConfig)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: supabase API key is required", onboarding.ErrInvalidConfig)
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 5 * time.Minute
	}

	client, err := supabase.NewClient(cfg.URL, cfg.APIKey, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create supabase client: %w", err)
	}

	return &Client{
		client:   client,
		cacheTTL: cfg.CacheTTL,
		cache: &cache{
			profiles: make(map[string]*cacheEntry[Profile]),
		},
	}, nil
}

// GetProfile retrieves a profile by user ID
func (c *Client) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	if cached, ok := c.cachedProfile(userID); ok {
		return cached, nil
	}

	var profiles []Profile
	_, err := c.client.From(TableProfiles).
		Select("*", "", false).
		Eq("user_id", userID).
		ExecuteTo(&profiles)

	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	if len(profiles) == 0 {
		return nil, fmt.Errorf("%w: profile for user %s", onboarding.ErrNotFound, userID)
	}

	profile := profiles[0]
	c.cacheProfile(profile)

	return &profile, nil
}

// SaveProfile upserts a profile on user_id
func (c *Client) SaveProfile(ctx context.Context, profile *Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	_, _, err := c.client.From(TableProfiles).
		Upsert(profile, "user_id", "minimal", "").
		Execute()

	if err != nil {
		c.dropProfile(profile.UserID)
		return fmt.Errorf("failed to save profile: %w", err)
	}

	c.cacheProfile(*profile)
	return nil
}

// AddGoldenKeys inserts golden key rows
func (c *Client) AddGoldenKeys(ctx context.Context, keys []GoldenKey) error {
	if len(keys) == 0 {
		return nil
	}

	_, _, err := c.client.From(TableGoldenKeys).
		Insert(keys, false, "", "minimal", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to add golden keys: %w", err)
	}
	return nil
}

// CreateJournalEntry inserts a journal entry
func (c *Client) CreateJournalEntry(ctx context.Context, entry *JournalEntry) error {
	_, _, err := c.client.From(TableJournalEntries).
		Insert(entry, false, "", "minimal", "").
		Execute()

	if err != nil {
		return fmt.Errorf("failed to create journal entry: %w", err)
	}
	return nil
}

// Close closes the Supabase client
func (c *Client) Close() error {
	// Supabase client doesn't require explicit close
	return nil
}

// cachedProfile returns a copy of a cached profile
func (c *Client) cachedProfile(userID string) (*Profile, bool) {
	c.cache.mu.RLock()
	defer c.cache.mu.RUnlock()

	if e, ok := c.cache.profiles[userID]; ok {
		if time.Now().Before(e.expiresAt) {
			p := e.value
			return &p, true
		}
	}
	return nil, false
}

// cacheProfile adds a profile to cache
func (c *Client) cacheProfile(p Profile) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	c.cache.profiles[p.UserID] = &cacheEntry[Profile]{
		value:     p,
		expiresAt: time.Now().Add(c.cacheTTL),
	}
}

// dropProfile removes a profile from cache
func (c *Client) dropProfile(userID string) {
	c.cache.mu.Lock()
	defer c.cache.mu.Unlock()

	delete(c.cache.profiles, userID)
}

// Compile-time check that Client implements Store
var _ Store = (*Client)(nil)
