package stats

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

// maxBuckets caps a series so a careless window/interval combination does not
// turn into thousands of store round-trips.
const maxBuckets = 500

// Bucket is one interval of a bucketed series.
type Bucket struct {
	Start time.Time `json:"start"`
	Value float64   `json:"value"`
}

// Window describes the time range and resolution of a series.
type Window struct {
	From     time.Time
	Until    time.Time
	Interval time.Duration
}

// normalize fills window defaults: last 24 hours at 1-hour resolution.
func (w Window) normalize(now time.Time) Window {
	if w.Interval <= 0 {
		w.Interval = time.Hour
	}
	if w.Until.IsZero() {
		w.Until = now
	}
	if w.From.IsZero() {
		w.From = w.Until.Add(-24 * time.Hour)
	}
	return w
}

func (w Window) validate() error {
	if !w.Until.After(w.From) {
		return fmt.Errorf("window end must be after start: %w", domain.ErrInvalidQuery)
	}
	if n := int(w.Until.Sub(w.From) / w.Interval); n > maxBuckets {
		return fmt.Errorf("window of %d buckets exceeds limit %d: %w", n, maxBuckets, domain.ErrInvalidQuery)
	}
	return nil
}

// buildSeries counts records per interval bucket of [From, Until). The last
// bucket may be shorter than the interval.
func buildSeries(ctx context.Context, counter RecordCounter, filters filter.Expression, w Window) ([]Bucket, error) {
	var series []Bucket
	for start := w.From; start.Before(w.Until); start = start.Add(w.Interval) {
		end := start.Add(w.Interval)
		if end.After(w.Until) {
			end = w.Until
		}

		cond, err := filter.NewTimeRange(start, end)
		if err != nil {
			return nil, fmt.Errorf("bucket range: %w", err)
		}
		n, err := counter.Count(ctx, filters.WithMust(cond))
		if err != nil {
			return nil, fmt.Errorf("count bucket at %s: %w", start.Format(time.RFC3339), err)
		}
		series = append(series, Bucket{Start: start, Value: float64(n)})
	}
	return series, nil
}

func mean(series []Bucket) float64 {
	var sum float64
	for _, b := range series {
		sum += b.Value
	}
	return sum / float64(len(series))
}

func stddev(series []Bucket, m float64) float64 {
	var sum float64
	for _, b := range series {
		d := b.Value - m
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(series)))
}

// linearFit is a least-squares fit of value against bucket index.
// Returns slope (per interval), intercept and R².
func linearFit(series []Bucket) (slope, intercept, r2 float64) {
	n := float64(len(series))
	var sumX, sumY, sumXY, sumXX float64
	for i, b := range series {
		x := float64(i)
		sumX += x
		sumY += b.Value
		sumXY += x * b.Value
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n, 0
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n

	meanY := sumY / n
	var ssTot, ssRes float64
	for i, b := range series {
		predicted := intercept + slope*float64(i)
		ssTot += (b.Value - meanY) * (b.Value - meanY)
		ssRes += (b.Value - predicted) * (b.Value - predicted)
	}
	if ssTot == 0 {
		// A flat series is a perfect fit for a flat line.
		if ssRes == 0 {
			return slope, intercept, 1
		}
		return slope, intercept, 0
	}
	return slope, intercept, 1 - ssRes/ssTot
}
