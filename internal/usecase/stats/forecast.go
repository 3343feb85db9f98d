package stats

import (
	"math"
	"time"
)

// DefaultForecastIntervals is how far ahead a forecast projects when the
// caller does not say.
const DefaultForecastIntervals = 6

// ForecastPoint is one projected interval with a naive confidence band of
// ±1.96 residual standard deviations around the fitted line.
type ForecastPoint struct {
	Interval time.Time `json:"interval"`
	Value    float64   `json:"value"`
	Lower    float64   `json:"lower"`
	Upper    float64   `json:"upper"`
}

// ForecastReport projects the fitted trend line beyond the observed window.
type ForecastReport struct {
	Slope     float64         `json:"slope"`
	Intercept float64         `json:"intercept"`
	RSquared  float64         `json:"rSquared"`
	Buckets   []Bucket        `json:"buckets"`
	Forecast  []ForecastPoint `json:"forecast"`
}

// forecastSeries fits a line through the series and extends it intervals
// steps ahead. Counts cannot go negative, so projections clamp at zero.
func forecastSeries(series []Bucket, interval time.Duration, intervals int) ForecastReport {
	slope, intercept, r2 := linearFit(series)

	var ssRes float64
	for i, b := range series {
		predicted := intercept + slope*float64(i)
		ssRes += (b.Value - predicted) * (b.Value - predicted)
	}
	residualSD := math.Sqrt(ssRes / float64(len(series)))
	band := 1.96 * residualSD

	last := series[len(series)-1].Start
	points := make([]ForecastPoint, 0, intervals)
	for step := 1; step <= intervals; step++ {
		x := float64(len(series) - 1 + step)
		value := intercept + slope*x
		point := ForecastPoint{
			Interval: last.Add(time.Duration(step) * interval),
			Value:    math.Max(0, value),
			Lower:    math.Max(0, value-band),
			Upper:    math.Max(0, value+band),
		}
		points = append(points, point)
	}

	return ForecastReport{
		Slope:     slope,
		Intercept: intercept,
		RSquared:  r2,
		Buckets:   series,
		Forecast:  points,
	}
}
