package vectorstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	onboarding "github.com/creastat/onboarding"
	"github.com/creastat/onboarding/patterns"
)

func scores(kv map[patterns.Trait]int) patterns.Scores {
	s := patterns.NewScores()
	for k, v := range kv {
		s[k] = v
	}
	return s
}

func TestPointID(t *testing.T) {
	assert.Equal(t, PointID("u1"), PointID("u1"))
	assert.NotEqual(t, PointID("u1"), PointID("u2"))
	assert.Len(t, PointID("u1"), 36)
}

func TestMemoryIndexSearch(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC)
	idx := NewMemoryIndex()
	require.NoError(t, idx.EnsureCollection(ctx))

	me := scores(map[patterns.Trait]int{patterns.Perfectionism: 4, patterns.Rumination: 3})
	require.NoError(t, idx.Upsert(ctx, NewPoint("me", me, "25-34", at)))
	require.NoError(t, idx.Upsert(ctx, NewPoint("twin", me, "25-34", at)))
	require.NoError(t, idx.Upsert(ctx, NewPoint("near", scores(map[patterns.Trait]int{patterns.Perfectionism: 3}), "35-44", at)))
	require.NoError(t, idx.Upsert(ctx, NewPoint("far", scores(map[patterns.Trait]int{patterns.SocialAnxiety: 5}), "25-34", at)))

	t.Run("ranked and excluding self", func(t *testing.T) {
		res, err := idx.Search(ctx, me.Vector(), SearchFilter{ExcludeUserID: "me"}, 10)
		require.NoError(t, err)
		require.Len(t, res, 3)
		assert.Equal(t, "twin", res[0].UserID)
		assert.InDelta(t, 1.0, res[0].Score, 1e-6)
		assert.Equal(t, "near", res[1].UserID)
		assert.Equal(t, "far", res[2].UserID)
		assert.Equal(t, int64(4), res[0].Metadata[string(patterns.Perfectionism)])
	})

	t.Run("filters", func(t *testing.T) {
		res, err := idx.Search(ctx, me.Vector(), SearchFilter{ExcludeUserID: "me", AgeRange: "25-34", MinScore: 0.5}, 10)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, "twin", res[0].UserID)
	})

	t.Run("limit", func(t *testing.T) {
		res, err := idx.Search(ctx, me.Vector(), SearchFilter{}, 2)
		require.NoError(t, err)
		assert.Len(t, res, 2)
	})

	t.Run("upsert replaces", func(t *testing.T) {
		require.NoError(t, idx.Upsert(ctx, NewPoint("far", me, "25-34", at)))
		res, err := idx.Search(ctx, me.Vector(), SearchFilter{ExcludeUserID: "me", MinScore: 0.99}, 10)
		require.NoError(t, err)
		assert.Len(t, res, 2)
	})
}

func TestMemoryIndexValidation(t *testing.T) {
	ctx := context.Background()
	idx := NewMemoryIndex()

	err := idx.Upsert(ctx, Point{UserID: "u1", Vector: []float32{1}})
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	err = idx.Upsert(ctx, Point{Vector: patterns.NewScores().Vector()})
	assert.ErrorIs(t, err, onboarding.ErrValidation)

	_, err = idx.Search(ctx, []float32{1, 2}, SearchFilter{}, 1)
	assert.ErrorIs(t, err, onboarding.ErrValidation)
}

func TestCosineZeroVector(t *testing.T) {
	assert.Zero(t, cosine(patterns.NewScores().Vector(), patterns.NewScores().Vector()))
}
