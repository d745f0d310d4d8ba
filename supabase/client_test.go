package supabase

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	onboarding "github.com/creastat/onboarding"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New(Config{URL: srv.URL, APIKey: "service-key", CacheTTL: time.Minute})
	require.NoError(t, err)
	return c
}

func TestGetProfileCaches(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/"+TableProfiles, r.URL.Path)
		assert.Equal(t, "eq.u1", r.URL.Query().Get("user_id"))
		assert.Equal(t, "service-key", r.Header.Get("apikey"))
		_ = json.NewEncoder(w).Encode([]Profile{{UserID: "u1", AdviceStyle: "tony"}})
	})

	p, err := c.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "tony", p.AdviceStyle)

	_, err = c.GetProfile(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGetProfileNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	_, err := c.GetProfile(context.Background(), "nobody")
	assert.ErrorIs(t, err, onboarding.ErrNotFound)
}

func TestSaveProfileUpserts(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "user_id", r.URL.Query().Get("on_conflict"))
		assert.Contains(t, r.Header.Get("Prefer"), "resolution=merge-duplicates")

		var p Profile
		require.NoError(t, json.NewDecoder(r.Body).Decode(&p))
		assert.Equal(t, "u1", p.UserID)
		assert.Equal(t, 4, p.DetectedPatterns["rumination"])
		w.WriteHeader(http.StatusCreated)
	})

	err := c.SaveProfile(context.Background(), &Profile{
		UserID:           "u1",
		DetectedPatterns: map[string]int{"rumination": 4},
	})
	require.NoError(t, err)

	cached, err := c.GetProfile(context.Background(), "u1")
	require.NoError(t, err, "saved profile is served from cache")
	assert.Equal(t, 4, cached.DetectedPatterns["rumination"])
}

func TestWriteErrors(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"code":"23505","message":"duplicate key value"}`))
	})

	err := c.CreateJournalEntry(context.Background(), &JournalEntry{ID: "e1", UserID: "u1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate key value")

	assert.NoError(t, c.AddGoldenKeys(context.Background(), nil), "nothing to insert")
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{APIKey: "k"})
	assert.ErrorIs(t, err, onboarding.ErrInvalidConfig)
	_, err = New(Config{URL: "http://localhost"})
	assert.ErrorIs(t, err, onboarding.ErrInvalidConfig)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetProfile(ctx, "u1")
	assert.ErrorIs(t, err, onboarding.ErrNotFound)

	require.NoError(t, s.SaveProfile(ctx, &Profile{UserID: "u1", SelectedVoice: "clara"}))
	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "clara", p.SelectedVoice)

	require.NoError(t, s.AddGoldenKeys(ctx, []GoldenKey{{ID: "g1", UserID: "u1"}, {ID: "g2", UserID: "u2"}}))
	assert.Len(t, s.GoldenKeys("u1"), 1)
}
