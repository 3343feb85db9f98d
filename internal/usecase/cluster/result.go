package cluster

// Cluster is one group of semantically similar values.
type Cluster struct {
	Label   string  `json:"label"`
	Members []Value `json:"members"`
}

// Result is the externally visible outcome of one clustering run. It is
// always structurally valid: on failure ClusterCount is 0, the collections
// are empty and Error/Reason carry what happened. Labels are per-run
// identifiers with no stability across runs.
type Result struct {
	RunID        string `json:"runId"`
	AttributeKey string `json:"attributeKey"`

	// TotalValues is the number of records examined before sampling;
	// SampledValues is the number of distinct values that were embedded.
	TotalValues   int `json:"totalValues"`
	SampledValues int `json:"sampledValues"`

	ClusterCount  int       `json:"clusterCount"`
	Clusters      []Cluster `json:"clusters"`
	Outliers      []Value   `json:"outliers"`
	ClusterSizes  []int     `json:"clusterSizes"`
	ClusterLabels []string  `json:"clusterLabels"`

	SamplingEnabled bool    `json:"samplingEnabled"`
	SamplingPercent float64 `json:"samplingPercent"`

	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Reason  string `json:"reason,omitempty"`
}

// stripVectors drops every vector from the result in place.
func stripVectors(r *Result) {
	for ci := range r.Clusters {
		for i := range r.Clusters[ci].Members {
			r.Clusters[ci].Members[i].Vector = nil
		}
	}
	for i := range r.Outliers {
		r.Outliers[i].Vector = nil
	}
}
