// Package http exposes the analysis API over chi.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
	clusteruc "github.com/skylens-io/skylens/internal/usecase/cluster"
	healthuc "github.com/skylens-io/skylens/internal/usecase/health"
	statsuc "github.com/skylens-io/skylens/internal/usecase/stats"
)

// RecordCounter counts records matching a filter.
type RecordCounter interface {
	Count(ctx context.Context, filters filter.Expression) (int, error)
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server is the analysis HTTP API.
type Server struct {
	clusters      *clusteruc.Service
	stats         *statsuc.Service
	health        *healthuc.Service
	records       RecordCounter
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates the API server.
func NewServer(
	clusters *clusteruc.Service,
	stats *statsuc.Service,
	health *healthuc.Service,
	records RecordCounter,
	logger *zap.Logger,
) *Server {
	s := &Server{
		clusters: clusters,
		stats:    stats,
		health:   health,
		records:  records,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrInvalidQuery, http.StatusBadRequest, codeValidationFailed),
		sentinelHandler(domain.ErrInsufficientData, http.StatusUnprocessableEntity, codeInsufficientData),
		sentinelHandler(domain.ErrIndexNotFound, http.StatusNotFound, codeIndexNotFound),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, codeRateLimited),
		sentinelHandler(domain.ErrEmbeddingProviderError, http.StatusBadGateway, codeEmbeddingProviderError),
		sentinelHandler(domain.ErrStoreUnavailable, http.StatusServiceUnavailable, codeStoreUnavailable),
	}
	return s
}

// Routes mounts every endpoint on the given router.
func (s *Server) Routes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/insights", func(r chi.Router) {
			r.Post("/clusters", s.Clusters)
			r.Post("/anomalies", s.Anomalies)
			r.Post("/trends", s.Trends)
			r.Post("/forecast", s.Forecast)
		})
		r.Get("/records/count", s.RecordsCount)
	})
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)
}

// Clusters handles POST /v1/insights/clusters. The response is always a
// structurally valid clustering result with status 200; failures degrade the
// body, not the status.
func (s *Server) Clusters(w http.ResponseWriter, r *http.Request) {
	var req clustersRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	ctx, usage := domain.NewContextWithUsage(r.Context())
	result := s.clusters.Cluster(ctx, params)

	if usage.Used {
		w.Header().Set("X-Embedding-Tokens", strconv.Itoa(usage.TotalTokens))
	}
	writeJSON(w, http.StatusOK, result)
}

// Anomalies handles POST /v1/insights/anomalies.
func (s *Server) Anomalies(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeSeriesParams(w, r)
	if !ok {
		return
	}

	report, err := s.stats.Anomalies(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Trends handles POST /v1/insights/trends.
func (s *Server) Trends(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeSeriesParams(w, r)
	if !ok {
		return
	}

	report, err := s.stats.Trend(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// Forecast handles POST /v1/insights/forecast.
func (s *Server) Forecast(w http.ResponseWriter, r *http.Request) {
	params, ok := s.decodeSeriesParams(w, r)
	if !ok {
		return
	}

	report, err := s.stats.Forecast(r.Context(), params)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) decodeSeriesParams(w http.ResponseWriter, r *http.Request) (statsuc.Params, bool) {
	var req seriesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid request body: "+err.Error())
		return statsuc.Params{}, false
	}

	params, err := req.toParams()
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return statsuc.Params{}, false
	}
	return params, true
}

// RecordsCount handles GET /v1/records/count.
func (s *Server) RecordsCount(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var must []filter.Condition
	for _, name := range []string{"kind", "service", "operation", "status", "severity"} {
		var value *string
		if err := runtime.BindQueryParameter("form", true, false, name, q, &value); err != nil {
			writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid parameter "+name)
			return
		}
		if value == nil || *value == "" {
			continue
		}
		cond, err := filter.NewMatch(name, *value)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		must = append(must, cond)
	}

	var from, until *time.Time
	if err := runtime.BindQueryParameter("form", true, false, "from", q, &from); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid parameter from: "+err.Error())
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "until", q, &until); err != nil {
		writeError(w, http.StatusBadRequest, codeBadRequest, "Invalid parameter until: "+err.Error())
		return
	}
	if from != nil || until != nil {
		var f, u time.Time
		if from != nil {
			f = *from
		}
		if until != nil {
			u = *until
		}
		cond, err := filter.NewTimeRange(f, u)
		if err != nil {
			writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
			return
		}
		must = append(must, cond)
	}

	expr, err := filter.NewExpression(must, nil, nil)
	if err != nil {
		writeError(w, http.StatusBadRequest, codeValidationFailed, err.Error())
		return
	}

	count, err := s.records.Count(r.Context(), expr)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, countResponse{Count: count})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	status := http.StatusOK
	if report.Status != healthuc.Healthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code errorCode, message string) {
	writeJSON(w, status, errorResponse{Code: code, Message: message})
}

// safeDomainMessage returns a sentinel error message for the client without
// exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrInvalidQuery,
		domain.ErrInsufficientData,
		domain.ErrIndexNotFound,
		domain.ErrRateLimited,
		domain.ErrEmbeddingProviderError,
		domain.ErrStoreUnavailable,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code errorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, codeInternalError, "internal error")
}
