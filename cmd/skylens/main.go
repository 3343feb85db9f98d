package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/config"
	"github.com/skylens-io/skylens/internal/db"
	dbRedis "github.com/skylens-io/skylens/internal/db/redis"
	"github.com/skylens-io/skylens/internal/domain"
	logpkg "github.com/skylens-io/skylens/internal/logger"
	"github.com/skylens-io/skylens/internal/metrics"
	"github.com/skylens-io/skylens/internal/repository/embcache"
	telemetryrepo "github.com/skylens-io/skylens/internal/repository/telemetry"
	httpTransport "github.com/skylens-io/skylens/internal/transport/http"
	openaiEmb "github.com/skylens-io/skylens/internal/transport/openai"
	clusteruc "github.com/skylens-io/skylens/internal/usecase/cluster"
	healthuc "github.com/skylens-io/skylens/internal/usecase/health"
	statsuc "github.com/skylens-io/skylens/internal/usecase/stats"
	"github.com/skylens-io/skylens/internal/version"
)

func main() {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting skylens API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Username: cfg.Database.Username,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create telemetry store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Telemetry store not ready", zap.Error(err))
	}
	logger.Info("Connected to telemetry store")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterAnalysisMetrics()

	if err := ensureIndex(ctx, store, cfg.Telemetry); err != nil {
		logger.Fatal("Failed to ensure telemetry index", zap.Error(err))
	}

	embedder := buildEmbedder(cfg.Embedding, cfg.Telemetry.KeyPrefix, store, logger)
	logger.Info("Embedder created",
		zap.String("provider", cfg.Embedding.Provider),
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
		zap.Bool("cache", cfg.Embedding.CacheTTLSec > 0),
	)

	telemetryRepo := telemetryrepo.New(store, cfg.Telemetry.IndexName).
		WithPageSize(cfg.Telemetry.PageSize)

	sources := clusteruc.SourceFactoryFunc(func(opts clusteruc.SourceOptions) clusteruc.RecordSource {
		return telemetryRepo.NewPager(opts.Filters, telemetryrepo.PagerOptions{
			SamplingPercent: opts.SamplingPercent,
			MaxDocs:         opts.MaxDocs,
			Seed:            opts.Seed,
		})
	})

	clusterSvc := clusteruc.New(sources, embedder, clusteruc.Defaults{
		ClusterCount:    cfg.Analysis.ClusterCount,
		MinClusterSize:  cfg.Analysis.MinClusterSize,
		SamplingPercent: cfg.Analysis.SamplingPercent,
		MaxDocs:         cfg.Analysis.MaxDocsToProcess,
		BatchSize:       cfg.Embedding.BatchSize,
	})
	statsSvc := statsuc.New(telemetryRepo)
	healthSvc := healthuc.New(store, store, cfg.Telemetry.IndexName, newEmbeddingHealthChecker(embedder))

	server := httpTransport.NewServer(clusterSvc, statsSvc, healthSvc, telemetryRepo, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(httpTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// ensureIndex creates the telemetry FT index when it does not exist yet.
func ensureIndex(ctx context.Context, store db.Store, cfg config.TelemetryConfig) error {
	exists, err := store.IndexExists(ctx, cfg.IndexName)
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}
	def := telemetryrepo.Index(cfg.IndexName, cfg.KeyPrefix)
	if err := store.CreateIndex(ctx, def); err != nil {
		return fmt.Errorf("create index %s: %w", cfg.IndexName, err)
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached.
func buildEmbedder(cfg config.EmbeddingConfig, keyPrefix string, store db.Store, logger *zap.Logger) domain.BatchEmbedder {
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:            cfg.APIKey,
		BaseURL:           cfg.BaseURL,
		Model:             cfg.Model,
		Dimensions:        cfg.Dimensions,
		Provider:          cfg.Provider,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.Burst,
		Logger:            logger,
	})

	if cfg.CacheTTLSec <= 0 || store == nil {
		return base
	}
	return embcache.New(
		base, store, keyPrefix, cfg.Model,
		time.Duration(cfg.CacheTTLSec)*time.Second,
		metrics.EmbeddingCacheTotal, logger,
	)
}

// embeddingHealthChecker adapts the embedder chain to health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.BatchEmbedder
}

func newEmbeddingHealthChecker(embedder domain.BatchEmbedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
