// Package openai implements the embedding provider client on the
// OpenAI-compatible embeddings API.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/metrics"
)

// Embedder is a batched embedding provider using the OpenAI-compatible API.
// Provider calls are gated by a rate limiter so unbounded record streams do
// not exhaust the provider quota.
type Embedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	provider   string
	limiter    *rate.Limiter
	logger     *zap.Logger
}

// Config holds the embedding provider settings.
type Config struct {
	APIKey            string
	BaseURL           string
	Model             string
	Dimensions        int
	Provider          string
	RequestsPerSecond float64 // 0 = unlimited
	Burst             int
	Logger            *zap.Logger
}

// NewEmbedder creates an OpenAI-compatible embedding provider.
func NewEmbedder(cfg *Config) *Embedder {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Embedder{
		client:     openai.NewClientWithConfig(clientCfg),
		model:      openai.EmbeddingModel(cfg.Model),
		dimensions: cfg.Dimensions,
		provider:   cfg.Provider,
		limiter:    limiter,
		logger:     logger,
	}
}

// Embed implements domain.Embedder for single texts.
func (e *Embedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	batch, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return domain.EmbeddingResult{}, err
	}
	if len(batch.Items) != 1 || batch.Items[0].Err != nil {
		return domain.EmbeddingResult{}, fmt.Errorf("empty embedding response: %w", domain.ErrEmbeddingProviderError)
	}
	return domain.EmbeddingResult{
		Embedding:    batch.Items[0].Embedding,
		PromptTokens: batch.PromptTokens,
		TotalTokens:  batch.TotalTokens,
	}, nil
}

// BatchEmbed implements domain.BatchEmbedder. One API call per invocation;
// a missing vector in the response marks that item failed without failing
// the batch.
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if len(texts) == 0 {
		return domain.BatchEmbeddingResult{}, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return domain.BatchEmbeddingResult{}, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          e.model,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.dimensions > 0 {
		req.Dimensions = e.dimensions
	}

	start := time.Now()

	resp, err := e.client.CreateEmbeddings(ctx, req)

	duration := time.Since(start)
	model := string(e.model)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "error").Inc()
		metrics.EmbeddingErrorsTotal.WithLabelValues(e.provider, model, "api_error").Inc()
		return domain.BatchEmbeddingResult{}, parseAPIError(err)
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(e.provider, model, "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(e.provider, model).Observe(duration.Seconds())

	// Index-align response vectors with input texts; the API reports the
	// input position of each vector in Data[i].Index.
	byIndex := make(map[int][]float32, len(resp.Data))
	for _, d := range resp.Data {
		byIndex[d.Index] = d.Embedding
	}

	out := domain.BatchEmbeddingResult{
		Items:        make([]domain.EmbeddedItem, len(texts)),
		PromptTokens: resp.Usage.PromptTokens,
		TotalTokens:  resp.Usage.TotalTokens,
	}

	for i := range texts {
		vec, ok := byIndex[i]
		if !ok || len(vec) == 0 {
			metrics.EmbeddingItemsTotal.WithLabelValues(e.provider, model, "failed").Inc()
			out.Items[i] = domain.EmbeddedItem{
				Err: fmt.Errorf("no vector for batch item %d: %w", i, domain.ErrEmbeddingFailed),
			}
			continue
		}
		metrics.EmbeddingItemsTotal.WithLabelValues(e.provider, model, "ok").Inc()
		out.Items[i] = domain.EmbeddedItem{Embedding: vec}
	}

	if out.TotalTokens > 0 {
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "prompt").Add(float64(resp.Usage.PromptTokens))
		metrics.EmbeddingTokensTotal.WithLabelValues(e.provider, model, "total").Add(float64(resp.Usage.TotalTokens))
	}

	e.logger.Debug("embedding batch completed",
		zap.String("provider", e.provider),
		zap.String("model", model),
		zap.Duration("duration", duration),
		zap.Int("batch_size", len(texts)),
		zap.Int("failed_items", out.Failed()),
		zap.Int("total_tokens", out.TotalTokens),
	)

	return out, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (e *Embedder) HealthCheck(ctx context.Context) error {
	if _, err := e.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrEmbeddingProviderError.
func parseAPIError(err error) error {
	wrap := domain.ErrEmbeddingProviderError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		detail := extractDetail(reqErr.Body)
		if detail != "" {
			return fmt.Errorf("embedding API error %d: %s: %w",
				reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("embedding API error %d: %s: %w",
			reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("embedding API error %d: %s: %w",
			apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	return fmt.Errorf("embedding request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
