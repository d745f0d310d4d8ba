package supabase

import (
	"context"
	"fmt"
	"sync"
	"time"

	onboarding "github.com/creastat/onboarding"
)

// MemoryStore implements Store in memory. It backs the profile service when
// no Supabase project is configured.
type MemoryStore struct {
	mu         sync.RWMutex
	profiles   map[string]Profile
	goldenKeys []GoldenKey
	entries    []JournalEntry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{profiles: make(map[string]Profile)}
}

// GetProfile implements Store.
func (s *MemoryStore) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.profiles[userID]
	if !ok {
		return nil, fmt.Errorf("%w: profile for user %s", onboarding.ErrNotFound, userID)
	}
	return &p, nil
}

// SaveProfile implements Store.
func (s *MemoryStore) SaveProfile(ctx context.Context, profile *Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	profile.UpdatedAt = time.Now().UTC()
	s.profiles[profile.UserID] = *profile
	return nil
}

// AddGoldenKeys implements Store.
func (s *MemoryStore) AddGoldenKeys(ctx context.Context, keys []GoldenKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.goldenKeys = append(s.goldenKeys, keys...)
	return nil
}

// CreateJournalEntry implements Store.
func (s *MemoryStore) CreateJournalEntry(ctx context.Context, entry *JournalEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append(s.entries, *entry)
	return nil
}

// GoldenKeys returns the stored golden keys of userID.
func (s *MemoryStore) GoldenKeys(userID string) []GoldenKey {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []GoldenKey
	for _, k := range s.goldenKeys {
		if k.UserID == userID {
			out = append(out, k)
		}
	}
	return out
}

// JournalEntries returns the stored journal entries of userID.
func (s *MemoryStore) JournalEntries(userID string) []JournalEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []JournalEntry
	for _, e := range s.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out
}

// Close implements Store.
func (s *MemoryStore) Close() error {
	return nil
}

var _ Store = (*MemoryStore)(nil)
