// Package health aggregates component availability checks for the readiness
// endpoint.
package health

import "context"

// Status is the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded indicates partial failure: the store answers but an optional
	// component does not.
	Degraded Status = "degraded"
	// Unhealthy indicates the telemetry store is unreachable.
	Unhealthy Status = "error"
)

// CheckResult is an individual component check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing check.
	CheckError CheckResult = "error"
)

// Report aggregates the component checks.
type Report struct {
	Status Status                 `json:"status"`
	Checks map[string]CheckResult `json:"checks"`
}

// Service coordinates the component checks.
type Service struct {
	store     StorePinger
	indexes   IndexChecker
	indexName string
	embedding EmbeddingChecker
}

// New creates the health service. indexes and embedding may be nil when the
// deployment does not carry them.
func New(store StorePinger, indexes IndexChecker, indexName string, embedding EmbeddingChecker) *Service {
	return &Service{store: store, indexes: indexes, indexName: indexName, embedding: embedding}
}

// Check probes every component. A failing store makes the report Unhealthy;
// any other failing component degrades it.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult)

	storeOK := s.store.Ping(ctx) == nil
	if storeOK {
		checks["store"] = CheckOK
	} else {
		checks["store"] = CheckError
	}

	if s.indexes != nil && storeOK {
		exists, err := s.indexes.IndexExists(ctx, s.indexName)
		if err == nil && exists {
			checks["index"] = CheckOK
		} else {
			checks["index"] = CheckError
		}
	}

	if s.embedding != nil {
		if err := s.embedding.HealthCheck(ctx); err != nil {
			checks["embedding"] = CheckError
		} else {
			checks["embedding"] = CheckOK
		}
	}

	status := Healthy
	if !storeOK {
		status = Unhealthy
	} else {
		for _, v := range checks {
			if v == CheckError {
				status = Degraded
				break
			}
		}
	}

	return Report{Status: status, Checks: checks}
}
