package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Process-wide Prometheus metrics, namespaced "cadopt", registered at
// package init and scraped from /metrics via promhttp.
var (
	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cadopt",
		Subsystem: "queue",
		Name:      "depth",
		Help:      "Number of pending tasks currently held in the priority queue.",
	})

	CacheHitRatio = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "cadopt",
		Subsystem: "cache",
		Name:      "hit_ratio",
		Help:      "Lifetime cache hits / (hits + misses), recomputed after each Optimize call.",
	})

	StrategyIterations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadopt",
		Subsystem: "strategy",
		Name:      "iterations_total",
		Help:      "Cumulative optimization iterations run, by strategy and tool.",
	}, []string{"strategy", "tool"})

	OptimizationDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cadopt",
		Subsystem: "orchestrator",
		Name:      "optimize_duration_seconds",
		Help:      "Wall-clock time of a complete Optimize call, by strategy and outcome.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"strategy", "status"})

	EvaluatorFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cadopt",
		Subsystem: "evaluator",
		Name:      "failures_total",
		Help:      "Evaluator calls that timed out or errored, substituting worst-case metrics.",
	}, []string{"tool"})
)

// CacheRatio computes a hit ratio from raw counters, returning 0 when no
// lookups have occurred yet (avoids a divide-by-zero NaN reaching the gauge).
func CacheRatio(hits, misses int64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
