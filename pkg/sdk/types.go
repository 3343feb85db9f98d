package sdk

import "time"

// Range bounds a numeric filter condition. At least one bound must be set.
type Range struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// Condition is one filter clause: exactly one of Match or Range.
type Condition struct {
	Key   string `json:"key"`
	Match string `json:"match,omitempty"`
	Range *Range `json:"range,omitempty"`
}

// Filter selects telemetry records. Must conditions all apply, Should
// conditions require at least one hit, MustNot conditions exclude.
type Filter struct {
	Must    []Condition `json:"must,omitempty"`
	Should  []Condition `json:"should,omitempty"`
	MustNot []Condition `json:"must_not,omitempty"`
}

// ClustersRequest configures a semantic clustering run.
type ClustersRequest struct {
	AttributeKey    string     `json:"attribute_key,omitempty"`
	Filter          *Filter    `json:"filter,omitempty"`
	From            *time.Time `json:"from,omitempty"`
	Until           *time.Time `json:"until,omitempty"`
	ClusterCount    int        `json:"cluster_count,omitempty"`
	MinClusterSize  int        `json:"min_cluster_size,omitempty"`
	IncludeOutliers *bool      `json:"include_outliers,omitempty"`
	ExcludeVectors  bool       `json:"exclude_vectors,omitempty"`
	SamplingPercent float64    `json:"sampling_percent,omitempty"`
	MaxDocs         int        `json:"max_docs,omitempty"`
	BatchSize       int        `json:"embedding_batch_size,omitempty"`
	Seed            int64      `json:"seed,omitempty"`
}

// ClusterValue is one distinct attribute value with its embedding and the
// number of records that carried it.
type ClusterValue struct {
	ID     string    `json:"id"`
	Value  string    `json:"value"`
	Vector []float32 `json:"vector,omitempty"`
	Count  int       `json:"count"`
}

// Cluster is one group of semantically similar values.
type Cluster struct {
	Label   string         `json:"label"`
	Members []ClusterValue `json:"members"`
}

// ClusteringResult is the outcome of one clustering run. It is always
// structurally valid; degraded runs carry Error/Reason or Message instead of
// a transport error.
type ClusteringResult struct {
	RunID         string         `json:"runId"`
	AttributeKey  string         `json:"attributeKey"`
	TotalValues   int            `json:"totalValues"`
	SampledValues int            `json:"sampledValues"`
	ClusterCount  int            `json:"clusterCount"`
	Clusters      []Cluster      `json:"clusters"`
	Outliers      []ClusterValue `json:"outliers"`
	ClusterSizes  []int          `json:"clusterSizes"`
	ClusterLabels []string       `json:"clusterLabels"`

	SamplingEnabled bool    `json:"samplingEnabled"`
	SamplingPercent float64 `json:"samplingPercent"`

	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// SeriesRequest configures the anomalies, trends and forecast endpoints.
// Interval is a Go duration string such as "15m" or "1h".
type SeriesRequest struct {
	Filter          *Filter    `json:"filter,omitempty"`
	From            *time.Time `json:"from,omitempty"`
	Until           *time.Time `json:"until,omitempty"`
	Interval        string     `json:"interval,omitempty"`
	ZScoreThreshold float64    `json:"z_score_threshold,omitempty"`
	Intervals       int        `json:"intervals,omitempty"`
}

// Bucket is one interval of the bucketed record-count series.
type Bucket struct {
	Start time.Time `json:"start"`
	Value float64   `json:"value"`
}

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

// Trend directions reported by the trends endpoint.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// TrendReport is the outcome of a linear-regression trend analysis.
type TrendReport struct {
	Slope     float64  `json:"slope"`
	Intercept float64  `json:"intercept"`
	RSquared  float64  `json:"rSquared"`
	Direction string   `json:"direction"`
	Buckets   []Bucket `json:"buckets"`
}

// ForecastPoint is one projected interval with its confidence band.
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

// CountQuery selects records for GET /v1/records/count. Zero fields are
// omitted from the query string.
type CountQuery struct {
	Kind      string
	Service   string
	Operation string
	Status    string
	Severity  string
	From      time.Time
	Until     time.Time
}

// HealthReport aggregates per-component availability checks.
type HealthReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
