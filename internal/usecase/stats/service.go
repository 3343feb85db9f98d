// Package stats implements descriptive statistics over bucketed telemetry
// series: z-score anomaly detection, regression trend classification and
// linear forecasting.
package stats

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
	"github.com/skylens-io/skylens/internal/logger"
	"github.com/skylens-io/skylens/internal/metrics"
)

// minSeriesLen is the minimum number of buckets any analysis needs.
const minSeriesLen = 3

// Params select the telemetry slice and resolution an analysis runs over.
type Params struct {
	Filters  filter.Expression
	From     time.Time
	Until    time.Time
	Interval time.Duration

	// ZScoreThreshold applies to anomaly detection only; 0 means default.
	ZScoreThreshold float64
	// Intervals is the forecast horizon; 0 means default.
	Intervals int
}

// Service computes statistics over record counts from the telemetry store.
type Service struct {
	counter RecordCounter
	now     func() time.Time
}

// New creates the statistics service.
func New(counter RecordCounter) *Service {
	return &Service{counter: counter, now: time.Now}
}

// Anomalies flags buckets deviating beyond the z-score threshold.
func (s *Service) Anomalies(ctx context.Context, p Params) (AnomalyReport, error) {
	series, err := s.series(ctx, "anomalies", p)
	if err != nil {
		return AnomalyReport{}, err
	}

	threshold := p.ZScoreThreshold
	if threshold <= 0 {
		threshold = DefaultZScoreThreshold
	}

	report := detectAnomalies(series, threshold)
	logger.FromContext(ctx).Info("anomaly analysis completed",
		zap.Int("buckets", len(series)),
		zap.Int("anomalies", len(report.Anomalies)),
		zap.Float64("threshold", threshold),
	)
	return report, nil
}

// Trend classifies the direction of the series with a least-squares fit.
func (s *Service) Trend(ctx context.Context, p Params) (TrendReport, error) {
	series, err := s.series(ctx, "trends", p)
	if err != nil {
		return TrendReport{}, err
	}

	report := analyzeTrend(series)
	logger.FromContext(ctx).Info("trend analysis completed",
		zap.Int("buckets", len(series)),
		zap.String("direction", report.Direction),
		zap.Float64("slope", report.Slope),
	)
	return report, nil
}

// Forecast projects the fitted trend line ahead of the observed window.
func (s *Service) Forecast(ctx context.Context, p Params) (ForecastReport, error) {
	series, err := s.series(ctx, "forecast", p)
	if err != nil {
		return ForecastReport{}, err
	}

	intervals := p.Intervals
	if intervals <= 0 {
		intervals = DefaultForecastIntervals
	}

	w := Window{From: p.From, Until: p.Until, Interval: p.Interval}.normalize(s.now())
	report := forecastSeries(series, w.Interval, intervals)
	logger.FromContext(ctx).Info("forecast completed",
		zap.Int("buckets", len(series)),
		zap.Int("horizon", intervals),
	)
	return report, nil
}

// series builds the bucketed count series for one analysis run, recording
// run metrics under the given insight name.
func (s *Service) series(ctx context.Context, insight string, p Params) ([]Bucket, error) {
	w := Window{From: p.From, Until: p.Until, Interval: p.Interval}.normalize(s.now())
	if err := w.validate(); err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues(insight, "error").Inc()
		return nil, err
	}

	start := time.Now()
	series, err := buildSeries(ctx, s.counter, p.Filters, w)
	metrics.AnalysisRunDuration.WithLabelValues(insight).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.AnalysisRunsTotal.WithLabelValues(insight, "error").Inc()
		return nil, err
	}
	if len(series) < minSeriesLen {
		metrics.AnalysisRunsTotal.WithLabelValues(insight, "error").Inc()
		return nil, fmt.Errorf("need at least %d buckets, got %d: %w",
			minSeriesLen, len(series), domain.ErrInsufficientData)
	}

	var examined float64
	for _, b := range series {
		examined += b.Value
	}
	metrics.AnalysisRecordsExamined.WithLabelValues(insight).Add(examined)
	metrics.AnalysisRunsTotal.WithLabelValues(insight, "ok").Inc()
	return series, nil
}
