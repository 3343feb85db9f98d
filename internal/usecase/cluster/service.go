// Package cluster implements streaming semantic clustering of telemetry
// records: records are pulled page by page from the store, reduced to
// normalized text, embedded in rate-limited batches and grouped with
// two-pass k-means.
package cluster

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
	"github.com/skylens-io/skylens/internal/logger"
	"github.com/skylens-io/skylens/internal/metrics"
)

// Built-in parameter defaults, overridable per service via Defaults.
const (
	DefaultClusterCount    = 5
	DefaultMinClusterSize  = 3
	DefaultSamplingPercent = 10
	DefaultBatchSize       = 5
	DefaultMaxDocs         = 10000
)

// Defaults are the operator-configured parameter defaults applied when a
// request leaves a knob unset.
type Defaults struct {
	ClusterCount    int
	MinClusterSize  int
	SamplingPercent float64
	MaxDocs         int
	BatchSize       int
}

// Params configure one clustering run. Zero values mean "use the default";
// IncludeOutliers is a pointer so that an explicit false survives defaulting.
type Params struct {
	// AttributeKey names what is being clustered; echoed back in the result.
	AttributeKey string
	// Filters restrict which telemetry records enter the run.
	Filters filter.Expression

	ClusterCount    int
	MinClusterSize  int
	IncludeOutliers *bool
	ExcludeVectors  bool
	SamplingPercent float64
	MaxDocs         int
	BatchSize       int
	// Seed makes the run reproducible; 0 seeds from the clock.
	Seed int64
}

// Service is the clustering use case.
type Service struct {
	sources  SourceFactory
	embedder BatchEmbedder
	defaults Defaults
}

// New creates the clustering service. Zero fields in defaults fall back to
// the built-in values.
func New(sources SourceFactory, embedder BatchEmbedder, defaults Defaults) *Service {
	if defaults.ClusterCount <= 0 {
		defaults.ClusterCount = DefaultClusterCount
	}
	if defaults.MinClusterSize <= 0 {
		defaults.MinClusterSize = DefaultMinClusterSize
	}
	if defaults.SamplingPercent <= 0 {
		defaults.SamplingPercent = DefaultSamplingPercent
	}
	if defaults.MaxDocs <= 0 {
		defaults.MaxDocs = DefaultMaxDocs
	}
	if defaults.BatchSize <= 0 {
		defaults.BatchSize = DefaultBatchSize
	}
	return &Service{sources: sources, embedder: embedder, defaults: defaults}
}

// Cluster runs one clustering pass and always returns a structurally valid
// result. Collaborator failures degrade the result instead of surfacing as
// errors; a canceled context ends the run early the same way.
func (s *Service) Cluster(ctx context.Context, p Params) Result {
	p = s.normalize(p)

	start := time.Now()
	res := s.run(ctx, p)
	duration := time.Since(start)

	status := "ok"
	if res.Error != "" {
		status = "degraded"
	}
	metrics.AnalysisRunsTotal.WithLabelValues("clusters", status).Inc()
	metrics.AnalysisRunDuration.WithLabelValues("clusters").Observe(duration.Seconds())
	metrics.AnalysisRecordsExamined.WithLabelValues("clusters").Add(float64(res.TotalValues))
	metrics.ClusteringClustersProduced.Observe(float64(res.ClusterCount))

	logger.FromContext(ctx).Info("clustering run completed",
		zap.String("run_id", res.RunID),
		zap.Int("records_examined", res.TotalValues),
		zap.Int("values_embedded", res.SampledValues),
		zap.Int("clusters", res.ClusterCount),
		zap.Int("outliers", len(res.Outliers)),
		zap.Duration("duration", duration),
		zap.String("status", status),
	)

	return res
}

func (s *Service) normalize(p Params) Params {
	if p.AttributeKey == "" {
		p.AttributeKey = "record"
	}
	if p.ClusterCount <= 0 {
		p.ClusterCount = s.defaults.ClusterCount
	}
	if p.MinClusterSize <= 0 {
		p.MinClusterSize = s.defaults.MinClusterSize
	}
	if p.SamplingPercent <= 0 || p.SamplingPercent > 100 {
		p.SamplingPercent = s.defaults.SamplingPercent
	}
	if p.MaxDocs <= 0 {
		p.MaxDocs = s.defaults.MaxDocs
	}
	if p.BatchSize <= 0 {
		p.BatchSize = s.defaults.BatchSize
	}
	return p
}

// run executes the pipeline under a panic barrier: whatever happens, the
// caller gets a well-formed result.
func (s *Service) run(ctx context.Context, p Params) (result Result) {
	result = s.emptyResult(p)

	defer func() {
		if r := recover(); r != nil {
			logger.FromContext(ctx).Error("clustering run panicked", zap.Any("panic", r))
			result = s.emptyResult(p)
			result.Error = "clustering failed"
			result.Reason = fmt.Sprint(r)
		}
	}()

	source := s.sources.NewSource(SourceOptions{
		Filters:         p.Filters,
		SamplingPercent: p.SamplingPercent,
		MaxDocs:         p.MaxDocs,
		Seed:            p.Seed,
	})
	stream := newEmbeddingStream(source, s.embedder, p.BatchSize)

	seed := p.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	c := &clusterer{
		k:       p.ClusterCount,
		minSize: p.MinClusterSize,
		rng:     rand.New(rand.NewSource(seed)),
		logger:  logger.FromContext(ctx),
	}

	clusters, dissolved, stats, err := c.run(ctx, stream)
	result.TotalValues = source.Examined()
	if err != nil {
		logger.FromContext(ctx).Warn("clustering run aborted", zap.Error(err))
		result.Error = "clustering failed"
		result.Reason = err.Error()
		return result
	}

	result.SampledValues = stats.validValues

	if stats.validValues == 0 {
		result.Message = "No attribute values found"
		return result
	}

	includeOutliers := true
	if p.IncludeOutliers != nil {
		includeOutliers = *p.IncludeOutliers
	}
	if includeOutliers {
		result.Outliers = append(result.Outliers, dissolved...)
	}

	for i, members := range clusters {
		label := fmt.Sprintf("cluster_%d", i)
		result.Clusters = append(result.Clusters, Cluster{Label: label, Members: members})
		result.ClusterLabels = append(result.ClusterLabels, label)
		result.ClusterSizes = append(result.ClusterSizes, len(members))
	}
	result.ClusterCount = len(result.Clusters)

	if result.ClusterCount == 0 {
		result.Message = "No clusters met the minimum size"
	} else if stats.effectiveK < p.ClusterCount {
		result.Message = fmt.Sprintf(
			"Reduced cluster count from %d to %d to fit the available data",
			p.ClusterCount, stats.effectiveK)
	}

	if p.ExcludeVectors {
		stripVectors(&result)
	}

	return result
}

// emptyResult is the structurally valid zero outcome for these parameters.
func (s *Service) emptyResult(p Params) Result {
	return Result{
		RunID:           uuid.NewString(),
		AttributeKey:    p.AttributeKey,
		Clusters:        []Cluster{},
		Outliers:        []Value{},
		ClusterSizes:    []int{},
		ClusterLabels:   []string{},
		SamplingEnabled: p.SamplingPercent > 0 && p.SamplingPercent < 100,
		SamplingPercent: p.SamplingPercent,
	}
}
