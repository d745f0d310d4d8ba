package questionbank

import (
	"context"
	"errors"
	"math/rand"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creastat/onboarding/api"
	"github.com/creastat/onboarding/internal/metrics"
	"github.com/creastat/onboarding/patterns"
	"github.com/creastat/onboarding/question"
	"github.com/creastat/onboarding/voice"
)

func TestSelectTier1(t *testing.T) {
	pool := Tier1Pool()
	var required []string
	for _, q := range pool {
		if q.Required {
			required = append(required, q.ID)
		}
	}

	for seed := int64(1); seed <= 50; seed++ {
		got := SelectTier1(pool, rand.New(rand.NewSource(seed)))
		require.Len(t, got, len(required)+1)

		seen := map[string]int{}
		for _, q := range got {
			seen[q.ID]++
		}
		for _, id := range required {
			assert.Equal(t, 1, seen[id], "required question %s", id)
		}
		assert.False(t, got[len(got)-1].Required, "last item is the sampled optional")
	}
}

func TestSelectTier1DoesNotMutatePool(t *testing.T) {
	pool := Tier1Pool()
	before := make([]string, len(pool))
	for i, q := range pool {
		before[i] = q.ID
	}
	SelectTier1(pool, rand.New(rand.NewSource(7)))
	for i, q := range pool {
		assert.Equal(t, before[i], q.ID)
	}
}

func TestAdaptiveText(t *testing.T) {
	t.Run("default when nothing qualifies", func(t *testing.T) {
		assert.Equal(t, DefaultAdaptiveWording, AdaptiveText(patterns.NewScores()))
	})

	t.Run("first qualifying row wins", func(t *testing.T) {
		scores := patterns.NewScores()
		scores[patterns.Rumination] = 5
		scores[patterns.SocialAnxiety] = 3
		assert.Equal(t, AdaptiveTable[1].Text, AdaptiveText(scores))
	})

	t.Run("below threshold", func(t *testing.T) {
		scores := patterns.NewScores()
		scores[patterns.Perfectionism] = 2
		assert.Equal(t, DefaultAdaptiveWording, AdaptiveText(scores))
	})
}

func TestBuildTier2(t *testing.T) {
	t.Run("no scores means no adaptive question", func(t *testing.T) {
		domains := BuildTier2(nil, "", "")
		require.Len(t, domains, 4)
		assert.Equal(t, -1, domains[3].IndexOf(AdaptiveQuestionID))
	})

	t.Run("guidance overrides adaptive wording", func(t *testing.T) {
		domains := BuildTier2(patterns.NewScores(), "18-24", "What do you keep coming back to?")
		core := domains[3]
		require.Equal(t, 0, core.IndexOf(AdaptiveQuestionID))
		assert.Equal(t, "What do you keep coming back to?", core.Questions[0].Question)
	})

	t.Run("age bracket wording with fallback", func(t *testing.T) {
		rel := BuildTier2(nil, "18-24", "")[2]
		assert.Equal(t, EveningWording["18-24"], rel.Questions[0].Question)

		rel = BuildTier2(nil, "unknown", "")[2]
		assert.Equal(t, EveningWording[FallbackAgeBracket], rel.Questions[0].Question)
	})

	t.Run("golden key nodes close each domain", func(t *testing.T) {
		for _, d := range BuildTier2(patterns.NewScores(), "", "") {
			last := d.Questions[len(d.Questions)-1]
			assert.True(t, last.GoldenKey, d.Name)
			for _, q := range d.Questions[:len(d.Questions)-1] {
				assert.False(t, q.GoldenKey, q.ID)
			}
		}
	})

	t.Run("directives parse", func(t *testing.T) {
		for _, d := range BuildTier2(patterns.NewScores(), "", "") {
			for _, q := range d.Questions {
				for _, directive := range q.Logic {
					_, err := question.ParseDirective(directive)
					assert.NoError(t, err, q.ID)
				}
				for _, o := range q.Options {
					if o.Next != "" {
						_, err := question.ParseDirective(o.Next)
						assert.NoError(t, err, q.ID)
					}
				}
			}
		}
	})
}

func TestVoiceForAdviceStyle(t *testing.T) {
	for _, o := range Tier3(nil)[2].Options {
		id, ok := VoiceForAdviceStyle(o.Value)
		require.True(t, ok, o.Value)
		assert.Equal(t, voice.ID(o.Value), id)
	}

	id, ok := VoiceForAdviceStyle(" Gentle ")
	assert.True(t, ok)
	assert.Equal(t, voice.Clara, id)

	_, ok = VoiceForAdviceStyle("shouty")
	assert.False(t, ok)
}

type fakeFetcher struct {
	resp  *api.QuestionsResponse
	err   error
	calls int
}

func (f *fakeFetcher) FetchQuestions(_ context.Context, _ int, _ string) (*api.QuestionsResponse, error) {
	f.calls++
	return f.resp, f.err
}

func TestBankFetch(t *testing.T) {
	ctx := context.Background()

	t.Run("remote first and cached", func(t *testing.T) {
		remote := &api.QuestionsResponse{Success: true, Tier: 3, Questions: Tier3(&question.Synthesis{Statement: "s", Confidence: 0.8})}
		f := &fakeFetcher{resp: remote}
		b, err := New(f, DefaultConfig(), nil)
		require.NoError(t, err)

		resp, source, err := b.Fetch(ctx, Request{Tier: 3, UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, SourceRemote, source)
		assert.Equal(t, "s", resp.Questions[0].Synthesis.Statement)

		_, source, err = b.Fetch(ctx, Request{Tier: 3, UserID: "u1"})
		require.NoError(t, err)
		assert.Equal(t, SourceCache, source)
		assert.Equal(t, 1, f.calls)

		b.Invalidate("u1")
		_, source, _ = b.Fetch(ctx, Request{Tier: 3, UserID: "u1"})
		assert.Equal(t, SourceRemote, source)
		assert.Equal(t, 2, f.calls)
	})

	t.Run("fallback on error", func(t *testing.T) {
		b, err := New(&fakeFetcher{err: errors.New("connection refused")}, DefaultConfig(), nil)
		require.NoError(t, err)

		resp, source, err := b.Fetch(ctx, Request{Tier: 2, UserID: "u1", AgeBracket: "35-44"})
		require.NoError(t, err)
		assert.Equal(t, SourceStatic, source)
		assert.True(t, resp.Success)
		assert.Len(t, resp.Domains, 4)
	})

	t.Run("fallback on unsuccessful response", func(t *testing.T) {
		f := &fakeFetcher{resp: &api.QuestionsResponse{Success: false, Error: "boom"}}
		b, err := New(f, DefaultConfig(), nil)
		require.NoError(t, err)

		qs, err := b.Tier1(ctx, "u1")
		require.NoError(t, err)
		assert.NotEmpty(t, qs)
	})

	t.Run("records on the configured metrics", func(t *testing.T) {
		m := &metrics.Metrics{
			QuestionFetchesTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{Name: "test_question_fetches_total"},
				[]string{"tier", "source"},
			),
			QuestionCacheHits: prometheus.NewCounter(prometheus.CounterOpts{Name: "test_question_cache_hits_total"}),
		}
		cfg := DefaultConfig()
		cfg.Metrics = m
		b, err := New(nil, cfg, nil)
		require.NoError(t, err)
		assert.Same(t, m, b.metrics)

		_, _, err = b.Fetch(ctx, Request{Tier: 1, UserID: "u1"})
		require.NoError(t, err)

		var pb dto.Metric
		require.NoError(t, m.QuestionFetchesTotal.WithLabelValues("1", SourceStatic).Write(&pb))
		assert.Equal(t, 1.0, pb.GetCounter().GetValue())
	})

	t.Run("unknown tier", func(t *testing.T) {
		b, err := New(nil, DefaultConfig(), nil)
		require.NoError(t, err)
		_, _, err = b.Fetch(ctx, Request{Tier: 4})
		assert.Error(t, err)
	})

	t.Run("tier2 is ordered", func(t *testing.T) {
		b, err := New(nil, DefaultConfig(), nil)
		require.NoError(t, err)
		domains, err := b.Tier2(ctx, Request{UserID: "u1"})
		require.NoError(t, err)
		names := make([]string, len(domains))
		for i, d := range domains {
			names[i] = d.Name
		}
		assert.Equal(t, []string{DomainSleep, DomainRumination, DomainRelationships, DomainCore}, names)
	})
}
