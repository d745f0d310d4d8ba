// Package qdrant implements vectorstore.TraitIndex on a Qdrant collection.
package qdrant

import (
	"context"
	"fmt"
	"time"

	"github.com/qdrant/go-client/qdrant"

	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/vectorstore"
)

// Payload keys.
const (
	keyUserID    = "user_id"
	keyAgeRange  = "age_range"
	keyUpdatedAt = "updated_at"
)

// Config holds Qdrant connection configuration.
type Config struct {
	Host string
	// Port is the gRPC port. Default: 6334
	Port   int
	APIKey string
	UseTLS bool

	// CollectionName is the collection holding trait vectors.
	CollectionName string
}

// Client implements vectorstore.TraitIndex for Qdrant.
type Client struct {
	client         *qdrant.Client
	collectionName string
}

// New creates a new Qdrant client.
func New(cfg Config) (*Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("qdrant host is required")
	}
	if cfg.CollectionName == "" {
		return nil, fmt.Errorf("qdrant collection name is required")
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	qdrantClient, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &Client{
		client:         qdrantClient,
		collectionName: cfg.CollectionName,
	}, nil
}

// EnsureCollection implements vectorstore.TraitIndex.
func (c *Client) EnsureCollection(ctx context.Context) error {
	exists, err := c.client.CollectionExists(ctx, c.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check qdrant collection: %w", err)
	}
	if exists {
		return nil
	}

	err = c.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: c.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(vectorstore.Dimensions),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create qdrant collection: %w", err)
	}
	return nil
}

// Upsert implements vectorstore.TraitIndex.
func (c *Client) Upsert(ctx context.Context, p vectorstore.Point) error {
	point, err := buildPoint(p)
	if err != nil {
		return err
	}

	wait := true
	_, err = c.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: c.collectionName,
		Wait:           &wait,
		Points:         []*qdrant.PointStruct{point},
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	return nil
}

// Search implements vectorstore.TraitIndex.
func (c *Client) Search(ctx context.Context, vector []float32, filter vectorstore.SearchFilter, limit int) ([]vectorstore.SearchResult, error) {
	limitUint64 := uint64(limit)
	points, err := c.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: c.collectionName,
		Query:          qdrant.NewQuery(vector...),
		Limit:          &limitUint64,
		Filter:         buildFilter(filter),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant search failed: %w", err)
	}

	results := make([]vectorstore.SearchResult, 0, len(points))
	for _, point := range points {
		if filter.MinScore > 0 && point.Score < filter.MinScore {
			continue
		}
		results = append(results, toResult(point.GetId(), point.Score, point.Payload))
	}
	return results, nil
}

// Close implements vectorstore.TraitIndex.
func (c *Client) Close() error {
	return c.client.Close()
}

func buildPoint(p vectorstore.Point) (*qdrant.PointStruct, error) {
	if p.UserID == "" {
		return nil, fmt.Errorf("point user id is required")
	}
	if len(p.Vector) != vectorstore.Dimensions {
		return nil, fmt.Errorf("vector has %d dimensions, want %d", len(p.Vector), vectorstore.Dimensions)
	}

	payload := map[string]*qdrant.Value{
		keyUserID:    stringValue(p.UserID),
		keyAgeRange:  stringValue(p.AgeRange),
		keyUpdatedAt: stringValue(p.UpdatedAt.UTC().Format(time.RFC3339)),
	}
	for trait, n := range p.Scores {
		payload[string(trait)] = &qdrant.Value{Kind: &qdrant.Value_IntegerValue{IntegerValue: int64(n)}}
	}

	return &qdrant.PointStruct{
		Id:      qdrant.NewIDUUID(vectorstore.PointID(p.UserID)),
		Vectors: qdrant.NewVectors(p.Vector...),
		Payload: payload,
	}, nil
}

// buildFilter converts SearchFilter to a Qdrant Filter.
func buildFilter(filter vectorstore.SearchFilter) *qdrant.Filter {
	var f qdrant.Filter
	if filter.AgeRange != "" {
		f.Must = append(f.Must, matchKeyword(keyAgeRange, filter.AgeRange))
	}
	if filter.ExcludeUserID != "" {
		f.MustNot = append(f.MustNot, matchKeyword(keyUserID, filter.ExcludeUserID))
	}
	if len(f.Must) == 0 && len(f.MustNot) == 0 {
		return nil
	}
	return &f
}

func matchKeyword(key, value string) *qdrant.Condition {
	return &qdrant.Condition{
		ConditionOneOf: &qdrant.Condition_Field{
			Field: &qdrant.FieldCondition{
				Key:   key,
				Match: &qdrant.Match{MatchValue: &qdrant.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func stringValue(s string) *qdrant.Value {
	return &qdrant.Value{Kind: &qdrant.Value_StringValue{StringValue: s}}
}

func toResult(id *qdrant.PointId, score float32, payload map[string]*qdrant.Value) vectorstore.SearchResult {
	result := vectorstore.SearchResult{
		Score:    score,
		Metadata: make(map[string]any),
	}

	if id != nil {
		if uuid := id.GetUuid(); uuid != "" {
			result.ID = uuid
		} else if num := id.GetNum(); num != 0 {
			result.ID = fmt.Sprintf("%d", num)
		}
	}

	for k, v := range payload {
		switch k {
		case keyUserID:
			result.UserID = v.GetStringValue()
		case keyAgeRange:
			result.AgeRange = v.GetStringValue()
		default:
			result.Metadata[k] = extractValue(v)
		}
	}
	return result
}

// ScoresFromMetadata reads per-trait scores back from a result's metadata.
func ScoresFromMetadata(md map[string]any) patterns.Scores {
	scores := patterns.NewScores()
	for _, trait := range patterns.Traits {
		if n, ok := md[string(trait)].(int64); ok {
			scores[trait] = int(n)
		}
	}
	return scores
}

// extractValue extracts a Go value from a Qdrant Value.
func extractValue(v *qdrant.Value) any {
	if v == nil {
		return nil
	}

	switch val := v.Kind.(type) {
	case *qdrant.Value_StringValue:
		return val.StringValue
	case *qdrant.Value_IntegerValue:
		return val.IntegerValue
	case *qdrant.Value_DoubleValue:
		return val.DoubleValue
	case *qdrant.Value_BoolValue:
		return val.BoolValue
	default:
		return nil
	}
}

// Compile-time check that Client implements TraitIndex.
var _ vectorstore.TraitIndex = (*Client)(nil)
