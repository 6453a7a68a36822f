/*
Package metrics defines the Prometheus collectors for the enrichment pipeline.

Collectors are registered on the default registry at init. The batch command
can dump them to a node-exporter textfile with WriteTextfile.
*/
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheRequests counts cache lookups by category and result (hit, miss, expired).
	CacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petcore_cache_requests_total",
			Help: "Cache store lookups by category and result",
		},
		[]string{"category", "result"},
	)

	// CacheFallbackWrites counts writes that went to the local fallback map.
	CacheFallbackWrites = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "petcore_cache_fallback_writes_total",
			Help: "Cache writes served by the in-process fallback map",
		},
	)

	// InferenceCalls counts external inference calls by operation and outcome.
	InferenceCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petcore_inference_calls_total",
			Help: "External inference calls by operation and outcome",
		},
		[]string{"operation", "outcome"},
	)

	// TokensUsed counts tokens billed per model.
	TokensUsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petcore_tokens_used_total",
			Help: "Tokens consumed by external inference per model",
		},
		[]string{"model"},
	)

	// GovernorDecisions counts Allow decisions by reason.
	GovernorDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petcore_governor_decisions_total",
			Help: "Budget governor decisions by reason",
		},
		[]string{"reason"},
	)

	// EnrichResults counts enrichment results by tier and whether they were served from cache.
	EnrichResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petcore_enrich_results_total",
			Help: "Enrichment results by tier and source",
		},
		[]string{"tier", "source"},
	)

	// BatchItems counts items processed by batch runs by outcome.
	BatchItems = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "petcore_batch_items_total",
			Help: "Items processed by batch enrichment runs",
		},
		[]string{"outcome"},
	)

	// InferenceBreakerState is 0 closed, 1 half-open, 2 open.
	InferenceBreakerState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "petcore_inference_breaker_state",
			Help: "Circuit breaker state for the inference client",
		},
	)
)

// WriteTextfile writes every registered collector to path in text exposition format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
