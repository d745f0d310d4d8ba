package qdrant

import (
	"testing"
	"time"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/vectorstore"
)

func TestNewRequiresHostAndCollection(t *testing.T) {
	_, err := New(Config{CollectionName: "c"})
	assert.Error(t, err)
	_, err = New(Config{Host: "localhost"})
	assert.Error(t, err)
}

func TestBuildPoint(t *testing.T) {
	s := patterns.NewScores()
	s[patterns.Avoidance] = 3
	p := vectorstore.NewPoint("u1", s, "18-24", time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC))

	point, err := buildPoint(p)
	require.NoError(t, err)
	assert.Equal(t, vectorstore.PointID("u1"), point.GetId().GetUuid())
	assert.Equal(t, "u1", point.Payload[keyUserID].GetStringValue())
	assert.Equal(t, "18-24", point.Payload[keyAgeRange].GetStringValue())
	assert.Equal(t, "2026-03-14T09:30:00Z", point.Payload[keyUpdatedAt].GetStringValue())
	assert.Equal(t, int64(3), point.Payload[string(patterns.Avoidance)].GetIntegerValue())

	_, err = buildPoint(vectorstore.Point{UserID: "u1", Vector: []float32{1}})
	assert.Error(t, err)
}

func TestBuildFilter(t *testing.T) {
	assert.Nil(t, buildFilter(vectorstore.SearchFilter{MinScore: 0.5}))

	f := buildFilter(vectorstore.SearchFilter{ExcludeUserID: "u1", AgeRange: "25-34"})
	require.NotNil(t, f)
	require.Len(t, f.Must, 1)
	require.Len(t, f.MustNot, 1)
	assert.Equal(t, keyAgeRange, f.Must[0].GetField().GetKey())
	assert.Equal(t, "25-34", f.Must[0].GetField().GetMatch().GetKeyword())
	assert.Equal(t, "u1", f.MustNot[0].GetField().GetMatch().GetKeyword())
}

func TestToResultRoundTripsScores(t *testing.T) {
	s := patterns.NewScores()
	s[patterns.Rumination] = 4
	point, err := buildPoint(vectorstore.NewPoint("u2", s, "45-54", time.Now()))
	require.NoError(t, err)

	res := toResult(point.GetId(), 0.9, point.Payload)
	assert.Equal(t, vectorstore.PointID("u2"), res.ID)
	assert.Equal(t, "u2", res.UserID)
	assert.Equal(t, "45-54", res.AgeRange)
	assert.Equal(t, float32(0.9), res.Score)
	assert.Equal(t, s, ScoresFromMetadata(res.Metadata))
}

func TestExtractValue(t *testing.T) {
	assert.Nil(t, extractValue(nil))
	assert.Equal(t, true, extractValue(&qdrant.Value{Kind: &qdrant.Value_BoolValue{BoolValue: true}}))
	assert.Equal(t, 1.5, extractValue(&qdrant.Value{Kind: &qdrant.Value_DoubleValue{DoubleValue: 1.5}}))
}
