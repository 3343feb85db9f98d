package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

// Analysis runs can take tens of seconds, so the duration buckets stretch
// well past the defaults.
var (
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "skylens",
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   []float64{0.005, 0.025, 0.1, 0.5, 1, 2.5, 5, 15, 30, 60, 120},
		},
		[]string{"method", "path", "status"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "skylens",
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status",
		},
		[]string{"method", "path", "status"},
	)
)

func init() {
	prometheus.MustRegister(httpDuration, httpRequests)
}

// Middleware observes request count and latency per chi route pattern. Using
// the pattern instead of the raw URL keeps label cardinality bounded.
func Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			path := chi.RouteContext(r.Context()).RoutePattern()
			if path == "" {
				path = "unmatched"
			}
			status := strconv.Itoa(rec.status)

			httpRequests.WithLabelValues(r.Method, path, status).Inc()
			httpDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// responseRecorder remembers the first status code written.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written bool
}

func (rec *responseRecorder) WriteHeader(status int) {
	if !rec.written {
		rec.status = status
		rec.written = true
	}
	rec.ResponseWriter.WriteHeader(status)
}

func (rec *responseRecorder) Write(b []byte) (int, error) {
	rec.written = true
	return rec.ResponseWriter.Write(b)
}
