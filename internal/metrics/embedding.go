package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Embedding provider metrics, labeled by provider and model so multiple
// embedding backends can share the same series.
var (
	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "embedding_requests_total",
			Help:      "Embedding batch requests by outcome",
		},
		[]string{"provider", "model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skylens",
			Name:      "embedding_request_duration_seconds",
			Help:      "Embedding batch round-trip latency",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"provider", "model"},
	)

	EmbeddingTokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "embedding_tokens_total",
			Help:      "Tokens consumed by embedding requests",
		},
		[]string{"provider", "model", "type"},
	)

	EmbeddingErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "embedding_errors_total",
			Help:      "Embedding failures by error type",
		},
		[]string{"provider", "model", "error_type"},
	)

	// outcome is "ok" or "failed"
	EmbeddingItemsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "embedding_items_total",
			Help:      "Embedded items by per-item outcome",
		},
		[]string{"provider", "model", "outcome"},
	)

	// result is "hit" or "miss"
	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "embedding_cache_total",
			Help:      "Embedding cache lookups by result",
		},
		[]string{"result"},
	)
)

var registerEmbeddingOnce sync.Once

// RegisterEmbeddingMetrics registers the embedding metrics with the default
// registry. Safe to call more than once; test packages call it from TestMain.
func RegisterEmbeddingMetrics() {
	registerEmbeddingOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingItemsTotal,
			EmbeddingCacheTotal,
		)
	})
}
