package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
	clusteruc "github.com/skylens-io/skylens/internal/usecase/cluster"
	healthuc "github.com/skylens-io/skylens/internal/usecase/health"
	statsuc "github.com/skylens-io/skylens/internal/usecase/stats"
)

// --- Mocks ---

type stubSource struct {
	pages    [][]domain.Record
	next     int
	examined int
}

func (s *stubSource) Next(_ context.Context) ([]domain.Record, error) {
	if s.next >= len(s.pages) {
		return nil, io.EOF
	}
	page := s.pages[s.next]
	s.next++
	s.examined += len(page)
	return page, nil
}

func (s *stubSource) Examined() int { return s.examined }

type stubEmbedder struct{ dim int }

// BatchEmbed derives a deterministic vector from each text's length.
func (s *stubEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{
		Items:       make([]domain.EmbeddedItem, len(texts)),
		TotalTokens: len(texts),
	}
	for i, text := range texts {
		vec := make([]float32, s.dim)
		for d := range vec {
			vec[d] = float32(len(text)%7) + float32(d)
		}
		out.Items[i] = domain.EmbeddedItem{Embedding: vec}
	}
	return out, nil
}

type stubCounter struct {
	count int
	err   error
	last  filter.Expression
}

func (s *stubCounter) Count(_ context.Context, f filter.Expression) (int, error) {
	s.last = f
	return s.count, s.err
}

type stubPinger struct{ err error }

func (s *stubPinger) Ping(_ context.Context) error { return s.err }

func newTestServer(t *testing.T, counter *stubCounter, pinger *stubPinger) http.Handler {
	t.Helper()

	records := make([]domain.Record, 12)
	for i := range records {
		records[i] = domain.NewRecord(
			fmt.Sprintf("r%d", i), domain.KindLog, time.Time{},
			"svc", "op", "error", "", fmt.Sprintf("message %d", i), nil, nil,
		)
	}
	factory := clusteruc.SourceFactoryFunc(func(_ clusteruc.SourceOptions) clusteruc.RecordSource {
		return &stubSource{pages: [][]domain.Record{records}}
	})
	clusters := clusteruc.New(factory, &stubEmbedder{dim: 2}, clusteruc.Defaults{})

	srv := NewServer(
		clusters,
		statsuc.New(counter),
		healthuc.New(pinger, nil, "", nil),
		counter,
		zap.NewNop(),
	)

	r := chi.NewRouter()
	srv.Routes(r)
	return r
}

func postJSON(t *testing.T, h http.Handler, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

// --- Tests ---

func TestClusters_AlwaysStructurallyValid(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/clusters",
		`{"cluster_count": 2, "min_cluster_size": 1, "sampling_percent": 100, "seed": 7}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var result clusteruc.Result
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if result.RunID == "" {
		t.Error("expected run ID in response")
	}
	if result.Clusters == nil || result.Outliers == nil {
		t.Error("collections must never be null")
	}
	if rec.Header().Get("X-Embedding-Tokens") == "" {
		t.Error("expected X-Embedding-Tokens header after provider calls")
	}
}

func TestClusters_BadBody(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/clusters", `{not json`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}
}

func TestClusters_InvalidFilter(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/clusters",
		`{"filter": {"must": [{"key": "", "match": "x"}]}}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid filter, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Code != codeValidationFailed {
		t.Errorf("expected validation_failed, got %s", resp.Code)
	}
}

func TestAnomalies_OK(t *testing.T) {
	h := newTestServer(t, &stubCounter{count: 5}, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/anomalies",
		`{"from": "2026-08-01T00:00:00Z", "until": "2026-08-01T06:00:00Z", "interval": "1h"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var report statsuc.AnomalyReport
	if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if len(report.Buckets) != 6 {
		t.Errorf("expected 6 buckets, got %d", len(report.Buckets))
	}
}

func TestAnomalies_BadInterval(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/anomalies", `{"interval": "soon"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unparseable interval, got %d", rec.Code)
	}
}

func TestTrends_InsufficientData(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/trends",
		`{"from": "2026-08-01T00:00:00Z", "until": "2026-08-01T02:00:00Z", "interval": "1h"}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid error body: %v", err)
	}
	if resp.Code != codeInsufficientData {
		t.Errorf("expected insufficient_data, got %s", resp.Code)
	}
}

func TestForecast_StoreErrorMapsToStatus(t *testing.T) {
	counter := &stubCounter{err: fmt.Errorf("ping: %w", domain.ErrStoreUnavailable)}
	h := newTestServer(t, counter, &stubPinger{})

	rec := postJSON(t, h, "/v1/insights/forecast",
		`{"from": "2026-08-01T00:00:00Z", "until": "2026-08-01T06:00:00Z", "interval": "1h"}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestRecordsCount_OK(t *testing.T) {
	counter := &stubCounter{count: 42}
	h := newTestServer(t, counter, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet,
		"/v1/records/count?service=checkout&from=2026-08-01T00:00:00Z", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp countResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	if resp.Count != 42 {
		t.Errorf("expected count 42, got %d", resp.Count)
	}

	musts := counter.last.Must()
	if len(musts) != 2 {
		t.Fatalf("expected service match plus time range, got %d conditions", len(musts))
	}
	if musts[0].Key() != "service" || musts[0].Match() != "checkout" {
		t.Errorf("unexpected first condition: %s=%s", musts[0].Key(), musts[0].Match())
	}
	if musts[1].Key() != filter.TimestampField || !musts[1].IsRange() {
		t.Errorf("expected timestamp range, got %s", musts[1].Key())
	}
}

func TestRecordsCount_BadTime(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/v1/records/count?from=yesterday", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for unparseable time, got %d", rec.Code)
	}
}

func TestRecordsCount_IndexMissing(t *testing.T) {
	counter := &stubCounter{err: fmt.Errorf("count: %w", domain.ErrIndexNotFound)}
	h := newTestServer(t, counter, &stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/v1/records/count", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestHealth_StatusCodes(t *testing.T) {
	h := newTestServer(t, &stubCounter{}, &stubPinger{})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 when healthy, got %d", rec.Code)
	}

	h = newTestServer(t, &stubCounter{}, &stubPinger{err: errors.New("refused")})
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503 when store is down, got %d", rec.Code)
	}
}
