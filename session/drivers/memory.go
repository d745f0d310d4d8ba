package drivers

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/creastat/onboarding/session"
)

// InMemoryStore implements session.Store using an in-memory map. Records are
// copied on the way in and out so callers never share state with the store.
type InMemoryStore struct {
	mu      sync.RWMutex
	owner   string
	records map[string]session.Record
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		records: make(map[string]session.Record),
	}
}

// Owner implements session.Store.
func (s *InMemoryStore) Owner(ctx context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.owner, nil
}

// Claim implements session.Store.
func (s *InMemoryStore) Claim(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.owner = userID
	return nil
}

// Load implements session.Store.
// Returns nil if the record is not found (not an error).
func (s *InMemoryStore) Load(ctx context.Context, userID string) (*session.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.records[userID]
	if !exists {
		return nil, nil
	}
	rec.Snapshot = slices.Clone(rec.Snapshot)
	return &rec, nil
}

// Save implements session.Store.
func (s *InMemoryStore) Save(ctx context.Context, rec *session.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	if stored, exists := s.records[rec.UserID]; exists {
		rec.CreatedAt = stored.CreatedAt
		rec.Revision = stored.Revision + 1
	} else {
		rec.CreatedAt = now
		rec.Revision = 1
	}
	rec.UpdatedAt = now

	stored := *rec
	stored.Snapshot = slices.Clone(rec.Snapshot)
	s.records[rec.UserID] = stored
	return nil
}

// Delete implements session.Store.
func (s *InMemoryStore) Delete(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records, userID)
	return nil
}

// Wipe implements session.Store.
func (s *InMemoryStore) Wipe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.owner = ""
	s.records = make(map[string]session.Record)
	return nil
}

// Close implements session.Store.
func (s *InMemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]session.Record)
	return nil
}

var _ session.Store = (*InMemoryStore)(nil)
