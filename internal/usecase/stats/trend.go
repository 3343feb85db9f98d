package stats

// Trend directions.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// stableChangeRatio is the relative change over the window below which a
// trend is reported as stable.
const stableChangeRatio = 0.05

// TrendReport is the outcome of a linear-regression trend analysis.
type TrendReport struct {
	// Slope is the fitted change in value per interval.
	Slope     float64  `json:"slope"`
	Intercept float64  `json:"intercept"`
	RSquared  float64  `json:"rSquared"`
	Direction string   `json:"direction"`
	Buckets   []Bucket `json:"buckets"`
}

// analyzeTrend fits a least-squares line through the series and classifies
// its direction. The direction is stable when the fitted change across the
// whole window is under stableChangeRatio of the series mean (or under one
// absolute unit for near-zero series).
func analyzeTrend(series []Bucket) TrendReport {
	slope, intercept, r2 := linearFit(series)

	change := slope * float64(len(series)-1)
	scale := mean(series)
	if scale < 1 {
		scale = 1
	}

	direction := TrendStable
	switch {
	case change > stableChangeRatio*scale:
		direction = TrendIncreasing
	case change < -stableChangeRatio*scale:
		direction = TrendDecreasing
	}

	return TrendReport{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		Direction: direction,
		Buckets:   series,
	}
}
