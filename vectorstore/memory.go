package vectorstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	onboarding "github.com/creastat/onboarding"
)

// MemoryIndex is an in-process TraitIndex used when no Qdrant host is
// configured, and in tests.
type MemoryIndex struct {
	mu     sync.RWMutex
	points map[string]Point
}

// NewMemoryIndex creates an empty index.
func NewMemoryIndex() *MemoryIndex {
	return &MemoryIndex{points: make(map[string]Point)}
}

// EnsureCollection implements TraitIndex.
func (m *MemoryIndex) EnsureCollection(context.Context) error {
	return nil
}

// Upsert implements TraitIndex.
func (m *MemoryIndex) Upsert(_ context.Context, p Point) error {
	if err := validatePoint(p); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.Vector = append([]float32(nil), p.Vector...)
	p.Scores = p.Scores.Clone()
	m.points[p.UserID] = p
	return nil
}

// Search implements TraitIndex.
func (m *MemoryIndex) Search(_ context.Context, vector []float32, filter SearchFilter, limit int) ([]SearchResult, error) {
	if len(vector) != Dimensions {
		return nil, fmt.Errorf("%w: vector has %d dimensions, want %d", onboarding.ErrValidation, len(vector), Dimensions)
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var results []SearchResult
	for _, p := range m.points {
		if p.UserID == filter.ExcludeUserID {
			continue
		}
		if filter.AgeRange != "" && p.AgeRange != filter.AgeRange {
			continue
		}
		score := cosine(vector, p.Vector)
		if filter.MinScore > 0 && score < filter.MinScore {
			continue
		}
		results = append(results, SearchResult{
			ID:       PointID(p.UserID),
			UserID:   p.UserID,
			AgeRange: p.AgeRange,
			Score:    score,
			Metadata: scoreMetadata(p),
		})
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].UserID < results[j].UserID
	})
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Close implements TraitIndex.
func (m *MemoryIndex) Close() error {
	return nil
}

// cosine is zero when either vector has no magnitude.
func cosine(a, b []float32) float32 {
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return float32(dot / (math.Sqrt(na) * math.Sqrt(nb)))
}

func validatePoint(p Point) error {
	if p.UserID == "" {
		return fmt.Errorf("%w: point user id is required", onboarding.ErrValidation)
	}
	if len(p.Vector) != Dimensions {
		return fmt.Errorf("%w: vector has %d dimensions, want %d", onboarding.ErrValidation, len(p.Vector), Dimensions)
	}
	return nil
}

func scoreMetadata(p Point) map[string]any {
	md := make(map[string]any, len(p.Scores))
	for trait, n := range p.Scores {
		md[string(trait)] = int64(n)
	}
	return md
}

var _ TraitIndex = (*MemoryIndex)(nil)
