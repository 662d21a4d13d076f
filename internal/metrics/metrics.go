// Package metrics exposes Prometheus collectors for the import pipeline.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	fetchRequestsTotal   *prometheus.CounterVec
	fetchRetriesTotal    *prometheus.CounterVec
	fetchCacheHitsTotal  *prometheus.CounterVec
	fetchDurationSeconds *prometheus.HistogramVec
	recordsScrapedTotal  *prometheus.CounterVec
	recordsImportedTotal *prometheus.CounterVec
	sourceRotationsTotal *prometheus.CounterVec

	once sync.Once
)

// Init initializes the Prometheus collectors. Safe to call more than once.
func Init() {
	once.Do(func() {
		fetchRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrestlebot_fetch_requests_total",
				Help: "Total outbound fetches, labeled by source and outcome.",
			},
			[]string{"source", "outcome"},
		)

		fetchRetriesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrestlebot_fetch_retries_total",
				Help: "Total fetch retries, labeled by source.",
			},
			[]string{"source"},
		)

		fetchCacheHitsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrestlebot_fetch_cache_hits_total",
				Help: "Total response cache hits, labeled by source.",
			},
			[]string{"source"},
		)

		fetchDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "wrestlebot_fetch_duration_seconds",
				Help:    "Histogram of fetch latencies, labeled by source.",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"source"},
		)

		recordsScrapedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrestlebot_records_scraped_total",
				Help: "Raw records produced by adapters, labeled by source and kind.",
			},
			[]string{"source", "kind"},
		)

		recordsImportedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrestlebot_records_imported_total",
				Help: "Records committed, labeled by kind and outcome (created/merged/rejected).",
			},
			[]string{"kind", "outcome"},
		)

		sourceRotationsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wrestlebot_source_rotations_total",
				Help: "Source switches by the rotator, labeled by entity type and reason.",
			},
			[]string{"entity_type", "reason"},
		)
	})
}

// ObserveFetch records one completed fetch attempt.
func ObserveFetch(source, outcome string, duration time.Duration) {
	if fetchRequestsTotal == nil {
		return
	}
	fetchRequestsTotal.WithLabelValues(source, outcome).Inc()
	fetchDurationSeconds.WithLabelValues(source).Observe(duration.Seconds())
}

// IncFetchRetry counts one retry for source.
func IncFetchRetry(source string) {
	if fetchRetriesTotal == nil {
		return
	}
	fetchRetriesTotal.WithLabelValues(source).Inc()
}

// IncCacheHit counts one response cache hit for source.
func IncCacheHit(source string) {
	if fetchCacheHitsTotal == nil {
		return
	}
	fetchCacheHitsTotal.WithLabelValues(source).Inc()
}

// AddScraped counts raw records produced by an adapter.
func AddScraped(source, kind string, n int) {
	if recordsScrapedTotal == nil {
		return
	}
	recordsScrapedTotal.WithLabelValues(source, kind).Add(float64(n))
}

// IncImported counts one import decision.
func IncImported(kind, outcome string) {
	if recordsImportedTotal == nil {
		return
	}
	recordsImportedTotal.WithLabelValues(kind, outcome).Inc()
}

// IncRotation counts one source switch.
func IncRotation(entityType, reason string) {
	if sourceRotationsTotal == nil {
		return
	}
	sourceRotationsTotal.WithLabelValues(entityType, reason).Inc()
}
