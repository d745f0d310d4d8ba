// Package metrics holds the Prometheus collectors of the onboarding engine
// and the profile service.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for onboarding.
type Metrics struct {
	// State machine
	EventsTotal      *prometheus.CounterVec
	SubmissionsTotal *prometheus.CounterVec
	EvictionsTotal   prometheus.Counter

	// Detection
	GoldenKeysTotal prometheus.Counter

	// Question bank
	QuestionFetchesTotal *prometheus.CounterVec
	QuestionCacheHits    prometheus.Counter

	// Profile service
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
}

// New creates and registers the onboarding metrics.
//
// Registration happens once per process; later calls return the same set.
//
// Metrics:
//   - onboarding_events_total{event,result} - dispatched state machine events
//   - onboarding_submissions_total{tier,result} - tier and voice submissions
//   - onboarding_session_evictions_total - stale sessions wiped on open
//   - onboarding_golden_keys_total - golden keys detected in tier 2
//   - onboarding_question_fetches_total{tier,source} - question sets by origin
//   - onboarding_question_cache_hits_total - question sets served from cache
//   - onboarding_api_requests_total{route,status} - profile service requests
//   - onboarding_api_request_duration_seconds{route} - profile service latency
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			EventsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onboarding_events_total",
					Help: "Total number of dispatched onboarding events",
				},
				[]string{"event", "result"}, // result: "ok", "rejected", "error"
			),

			SubmissionsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onboarding_submissions_total",
					Help: "Total number of submissions to the profile service",
				},
				[]string{"tier", "result"},
			),

			EvictionsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "onboarding_session_evictions_total",
					Help: "Total number of stale sessions evicted",
				},
			),

			GoldenKeysTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "onboarding_golden_keys_total",
					Help: "Total number of golden keys detected",
				},
			),

			QuestionFetchesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onboarding_question_fetches_total",
					Help: "Total number of question sets loaded, by source",
				},
				[]string{"tier", "source"}, // "remote", "cache" or "static"
			),

			QuestionCacheHits: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "onboarding_question_cache_hits_total",
					Help: "Total number of question sets served from the cache",
				},
			),

			RequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "onboarding_api_requests_total",
					Help: "Total number of profile service requests",
				},
				[]string{"route", "status"},
			),

			RequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "onboarding_api_request_duration_seconds",
					Help:    "Duration of profile service requests in seconds",
					Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
				},
				[]string{"route"},
			),
		}
	})

	return globalMetrics
}

// RecordEvent records a dispatched event and its result.
func (m *Metrics) RecordEvent(event, result string) {
	m.EventsTotal.WithLabelValues(event, result).Inc()
}

// RecordSubmission records a submission outcome.
func (m *Metrics) RecordSubmission(tier, result string) {
	m.SubmissionsTotal.WithLabelValues(tier, result).Inc()
}

// RecordEviction records a stale-session eviction.
func (m *Metrics) RecordEviction() {
	m.EvictionsTotal.Inc()
}

// RecordGoldenKey records a detected golden key.
func (m *Metrics) RecordGoldenKey() {
	m.GoldenKeysTotal.Inc()
}

// RecordQuestionFetch records where a question set came from.
func (m *Metrics) RecordQuestionFetch(tier, source string) {
	m.QuestionFetchesTotal.WithLabelValues(tier, source).Inc()
	if source == "cache" {
		m.QuestionCacheHits.Inc()
	}
}

// RecordRequest records a profile service request.
func (m *Metrics) RecordRequest(route, status string, durationSeconds float64) {
	m.RequestsTotal.WithLabelValues(route, status).Inc()
	m.RequestDuration.WithLabelValues(route).Observe(durationSeconds)
}
