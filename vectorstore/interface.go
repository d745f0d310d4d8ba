// Package vectorstore indexes onboarded users by their trait vector.
package vectorstore

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/creastat/onboarding/patterns"
)

// Dimensions is the length of a trait vector, one component per trait.
var Dimensions = len(patterns.Traits)

// TraitIndex stores one trait vector per user and finds similar users.
// Implementations can use Qdrant or an in-process index.
type TraitIndex interface {
	// EnsureCollection creates the backing collection when it is missing.
	EnsureCollection(ctx context.Context) error

	// Upsert replaces the point of p.UserID.
	Upsert(ctx context.Context, p Point) error

	// Search returns the users closest to vector, best match first.
	Search(ctx context.Context, vector []float32, filter SearchFilter, limit int) ([]SearchResult, error)

	// Close releases any resources held by the index.
	Close() error
}

// Point is a user's trait vector with its payload.
type Point struct {
	UserID    string
	Vector    []float32
	AgeRange  string
	Scores    patterns.Scores
	UpdatedAt time.Time
}

// NewPoint builds the point of userID from detected pattern scores.
func NewPoint(userID string, scores patterns.Scores, ageRange string, at time.Time) Point {
	return Point{
		UserID:    userID,
		Vector:    scores.Vector(),
		AgeRange:  ageRange,
		Scores:    scores.Clone(),
		UpdatedAt: at.UTC(),
	}
}

// SearchFilter defines filtering options for a search.
type SearchFilter struct {
	// ExcludeUserID drops the querying user from the results.
	ExcludeUserID string

	// AgeRange restricts results to one age bracket.
	AgeRange string

	// MinScore filters results below this similarity threshold.
	MinScore float32
}

// SearchResult is a single match.
type SearchResult struct {
	// ID is the point id.
	ID string

	UserID   string
	AgeRange string

	// Score is the cosine similarity, higher is more similar.
	Score float32

	// Metadata contains the remaining payload, such as per-trait scores.
	Metadata map[string]any
}

var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://creastat.com/onboarding/traits"))

// PointID returns the stable point id of userID.
func PointID(userID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(userID)).String()
}
