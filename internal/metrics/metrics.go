package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RecommendationRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillwise_recommendation_runs_total",
			Help: "Total number of recommendation runs by final state",
		},
		[]string{"state"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pillwise_stage_duration_seconds",
			Help:    "Duration of pipeline stages in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
		[]string{"stage", "status"},
	)

	ReasoningCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillwise_reasoning_calls_total",
			Help: "Total number of reasoning capability calls",
		},
		[]string{"stage", "status"},
	)

	ListingFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillwise_listing_fetches_total",
			Help: "Total number of listing fetches by outcome",
		},
		[]string{"outcome", "detection_src"},
	)

	ListingFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pillwise_listing_fetch_duration_seconds",
			Help:    "Duration of listing fetches in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 45, 60},
		},
	)

	ListingsExtracted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pillwise_listings_extracted_total",
			Help: "Total number of product listings extracted",
		},
	)

	ProxyFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pillwise_proxy_failures_total",
			Help: "Total number of listing fetches that failed through a proxy",
		},
		[]string{"proxy_host"},
	)
)

// RecordStage observes a finished pipeline stage
func RecordStage(stage string, err error, d time.Duration) {
	StageDuration.WithLabelValues(stage, statusLabel(err)).Observe(d.Seconds())
}

// RecordReasoningCall counts one call to the reasoning capability
func RecordReasoningCall(stage string, err error) {
	ReasoningCallsTotal.WithLabelValues(stage, statusLabel(err)).Inc()
}

// RecordFetch observes one listing fetch
func RecordFetch(outcome, detectionSrc string, listings int, d time.Duration) {
	ListingFetchesTotal.WithLabelValues(outcome, detectionSrc).Inc()
	ListingFetchDuration.Observe(d.Seconds())
	ListingsExtracted.Add(float64(listings))
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
