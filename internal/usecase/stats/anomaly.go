package stats

import "time"

// DefaultZScoreThreshold flags buckets more than three standard deviations
// from the mean.
const DefaultZScoreThreshold = 3.0

// Anomaly is one bucket whose value deviates beyond the z-score threshold.
type Anomaly struct {
	Interval time.Time `json:"interval"`
	Value    float64   `json:"value"`
	ZScore   float64   `json:"zScore"`
}

// AnomalyReport describes the deviation analysis over a bucketed series.
type AnomalyReport struct {
	Mean      float64   `json:"mean"`
	StdDev    float64   `json:"stdDev"`
	Threshold float64   `json:"threshold"`
	Buckets   []Bucket  `json:"buckets"`
	Anomalies []Anomaly `json:"anomalies"`
}

// detectAnomalies flags every bucket whose |z-score| exceeds the threshold.
// A zero standard deviation yields no anomalies: a constant series has no
// outliers by this measure.
func detectAnomalies(series []Bucket, threshold float64) AnomalyReport {
	m := mean(series)
	sd := stddev(series, m)

	report := AnomalyReport{
		Mean:      m,
		StdDev:    sd,
		Threshold: threshold,
		Buckets:   series,
		Anomalies: []Anomaly{},
	}
	if sd == 0 {
		return report
	}

	for _, b := range series {
		z := (b.Value - m) / sd
		if z >= threshold || z <= -threshold {
			report.Anomalies = append(report.Anomalies, Anomaly{
				Interval: b.Start,
				Value:    b.Value,
				ZScore:   z,
			})
		}
	}
	return report
}
