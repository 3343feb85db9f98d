package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Analysis-run Prometheus metrics.
var (
	AnalysisRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "analysis_runs_total",
			Help:      "Total analysis runs by insight kind and outcome",
		},
		[]string{"insight", "status"}, // status: "ok" / "degraded" / "error"
	)

	AnalysisRunDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skylens",
			Name:      "analysis_run_duration_seconds",
			Help:      "Analysis run duration in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"insight"},
	)

	AnalysisRecordsExamined = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "analysis_records_examined_total",
			Help:      "Telemetry records pulled from the store by analysis runs",
		},
		[]string{"insight"},
	)

	ClusteringClustersProduced = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "skylens",
			Name:      "clustering_clusters_produced",
			Help:      "Clusters produced per clustering run",
			Buckets:   []float64{0, 1, 2, 3, 5, 8, 13, 21},
		},
	)
)

var registerAnalysisOnce sync.Once

// RegisterAnalysisMetrics registers the analysis metrics with the default
// registry. Safe to call more than once.
func RegisterAnalysisMetrics() {
	registerAnalysisOnce.Do(func() {
		prometheus.MustRegister(
			AnalysisRunsTotal,
			AnalysisRunDuration,
			AnalysisRecordsExamined,
			ClusteringClustersProduced,
		)
	})
}
