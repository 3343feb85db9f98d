package http

import (
	"fmt"
	"time"

	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
	"github.com/skylens-io/skylens/internal/usecase/cluster"
	"github.com/skylens-io/skylens/internal/usecase/stats"
)

// errorCode is the machine-readable error discriminator in error responses.
type errorCode string

const (
	codeBadRequest             errorCode = "bad_request"
	codeValidationFailed       errorCode = "validation_failed"
	codeIndexNotFound          errorCode = "index_not_found"
	codeInsufficientData       errorCode = "insufficient_data"
	codeRateLimited            errorCode = "rate_limited"
	codeStoreUnavailable       errorCode = "store_unavailable"
	codeEmbeddingProviderError errorCode = "embedding_provider_error"
	codeUnauthorized           errorCode = "unauthorized"
	codeInternalError          errorCode = "internal_error"
)

type errorResponse struct {
	Code    errorCode `json:"code"`
	Message string    `json:"message"`
}

// rangeDTO mirrors filter.Range on the wire.
type rangeDTO struct {
	GT  *float64 `json:"gt,omitempty"`
	GTE *float64 `json:"gte,omitempty"`
	LT  *float64 `json:"lt,omitempty"`
	LTE *float64 `json:"lte,omitempty"`
}

// conditionDTO is one filter clause: exactly one of match or range.
type conditionDTO struct {
	Key   string    `json:"key"`
	Match string    `json:"match,omitempty"`
	Range *rangeDTO `json:"range,omitempty"`
}

// filterDTO mirrors filter.Expression on the wire.
type filterDTO struct {
	Must    []conditionDTO `json:"must,omitempty"`
	Should  []conditionDTO `json:"should,omitempty"`
	MustNot []conditionDTO `json:"must_not,omitempty"`
}

func conditionFromDTO(dto conditionDTO) (filter.Condition, error) {
	switch {
	case dto.Match != "" && dto.Range != nil:
		return filter.Condition{}, fmt.Errorf("condition %q sets both match and range", dto.Key)
	case dto.Range != nil:
		r, err := filter.NewRangeFilter(dto.Range.GT, dto.Range.GTE, dto.Range.LT, dto.Range.LTE)
		if err != nil {
			return filter.Condition{}, fmt.Errorf("condition %q: %w", dto.Key, err)
		}
		return filter.NewRange(dto.Key, r)
	default:
		return filter.NewMatch(dto.Key, dto.Match)
	}
}

// filtersFromDTO converts the wire filter, appending a timestamp range when
// from/until are set.
func filtersFromDTO(dto *filterDTO, from, until *time.Time) (filter.Expression, error) {
	group := func(dtos []conditionDTO) ([]filter.Condition, error) {
		if len(dtos) == 0 {
			return nil, nil
		}
		conds := make([]filter.Condition, 0, len(dtos))
		for _, c := range dtos {
			cond, err := conditionFromDTO(c)
			if err != nil {
				return nil, err
			}
			conds = append(conds, cond)
		}
		return conds, nil
	}

	var must, should, mustNot []filter.Condition
	var err error
	if dto != nil {
		if must, err = group(dto.Must); err != nil {
			return filter.Expression{}, err
		}
		if should, err = group(dto.Should); err != nil {
			return filter.Expression{}, err
		}
		if mustNot, err = group(dto.MustNot); err != nil {
			return filter.Expression{}, err
		}
	}

	expr, err := filter.NewExpression(must, should, mustNot)
	if err != nil {
		return filter.Expression{}, err
	}

	if (from != nil && !from.IsZero()) || (until != nil && !until.IsZero()) {
		var f, u time.Time
		if from != nil {
			f = *from
		}
		if until != nil {
			u = *until
		}
		cond, err := filter.NewTimeRange(f, u)
		if err != nil {
			return filter.Expression{}, err
		}
		expr = expr.WithMust(cond)
	}

	return expr, nil
}

// clustersRequest is the POST /v1/insights/clusters body.
type clustersRequest struct {
	AttributeKey    string     `json:"attribute_key,omitempty"`
	Filter          *filterDTO `json:"filter,omitempty"`
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

func (req *clustersRequest) toParams() (cluster.Params, error) {
	filters, err := filtersFromDTO(req.Filter, req.From, req.Until)
	if err != nil {
		return cluster.Params{}, err
	}
	return cluster.Params{
		AttributeKey:    req.AttributeKey,
		Filters:         filters,
		ClusterCount:    req.ClusterCount,
		MinClusterSize:  req.MinClusterSize,
		IncludeOutliers: req.IncludeOutliers,
		ExcludeVectors:  req.ExcludeVectors,
		SamplingPercent: req.SamplingPercent,
		MaxDocs:         req.MaxDocs,
		BatchSize:       req.BatchSize,
		Seed:            req.Seed,
	}, nil
}

// seriesRequest is the body shared by the anomalies, trends and forecast
// endpoints. Interval is a Go duration string ("15m", "1h").
type seriesRequest struct {
	Filter          *filterDTO `json:"filter,omitempty"`
	From            *time.Time `json:"from,omitempty"`
	Until           *time.Time `json:"until,omitempty"`
	Interval        string     `json:"interval,omitempty"`
	ZScoreThreshold float64    `json:"z_score_threshold,omitempty"`
	Intervals       int        `json:"intervals,omitempty"`
}

func (req *seriesRequest) toParams() (stats.Params, error) {
	// The window boundaries go into stats.Params, not the filter: the stats
	// service slices the window into per-bucket time ranges itself.
	filters, err := filtersFromDTO(req.Filter, nil, nil)
	if err != nil {
		return stats.Params{}, err
	}

	var interval time.Duration
	if req.Interval != "" {
		interval, err = time.ParseDuration(req.Interval)
		if err != nil {
			return stats.Params{}, fmt.Errorf("invalid interval %q: %w", req.Interval, err)
		}
	}

	p := stats.Params{
		Filters:         filters,
		Interval:        interval,
		ZScoreThreshold: req.ZScoreThreshold,
		Intervals:       req.Intervals,
	}
	if req.From != nil {
		p.From = *req.From
	}
	if req.Until != nil {
		p.Until = *req.Until
	}
	return p, nil
}

// countResponse is the GET /v1/records/count body.
type countResponse struct {
	Count int `json:"count"`
}
