// Package metrics exposes Prometheus metrics for the analysis pipeline.
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

// Metrics holds the pipeline's Prometheus instruments.
type Metrics struct {
	// Pipeline outcomes
	ProjectsTotal *prometheus.CounterVec // state label: persisted/skipped/failed
	StageDuration *prometheus.HistogramVec

	// Cache performance
	CacheHitsTotal   *prometheus.CounterVec // kind label: research/analysis
	CacheMissesTotal *prometheus.CounterVec

	// LLM spend
	LLMCallsTotal *prometheus.CounterVec // role label
	CostUSDTotal  prometheus.Counter

	// Degraded results
	DegradedResultsTotal *prometheus.CounterVec // reason label: timeout/upstream/parse/panic
}

// New creates and registers the pipeline metrics. sync.Once guards against
// duplicate collector registration when multiple components ask for metrics.
//
// All metrics are prefixed with "catalyst_":
//   - catalyst_projects_total{state}
//   - catalyst_stage_duration_seconds{stage}
//   - catalyst_cache_hits_total{kind} / catalyst_cache_misses_total{kind}
//   - catalyst_llm_calls_total{role}
//   - catalyst_llm_cost_usd_total
//   - catalyst_degraded_results_total{reason}
func New() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			ProjectsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "catalyst_projects_total",
					Help: "Projects processed by terminal state",
				},
				[]string{"state"},
			),
			StageDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "catalyst_stage_duration_seconds",
					Help:    "Wall time per pipeline stage",
					Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
				},
				[]string{"stage"},
			),
			CacheHitsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "catalyst_cache_hits_total",
					Help: "Cache hits by blob kind",
				},
				[]string{"kind"},
			),
			CacheMissesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "catalyst_cache_misses_total",
					Help: "Cache misses by blob kind",
				},
				[]string{"kind"},
			),
			LLMCallsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "catalyst_llm_calls_total",
					Help: "Completed LLM calls by role",
				},
				[]string{"role"},
			),
			CostUSDTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "catalyst_llm_cost_usd_total",
					Help: "Cumulative LLM spend in USD",
				},
			),
			DegradedResultsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "catalyst_degraded_results_total",
					Help: "Degraded question results by reason",
				},
				[]string{"reason"},
			),
		}
	})
	return globalMetrics
}
