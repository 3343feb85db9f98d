package domain

import (
	"context"
	"fmt"
)

// Embedder is the shared text vectorization contract between layers.
type Embedder interface {
	Embed(ctx context.Context, text string) (EmbeddingResult, error)
}

// BatchEmbedder vectorizes multiple texts in a single API call.
// Implementations report per-item outcomes: a provider-side failure for one
// text must not fail the whole batch.
type BatchEmbedder interface {
	BatchEmbed(ctx context.Context, texts []string) (BatchEmbeddingResult, error)
}

// HealthChecker verifies embedding provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// EmbeddingResult carries a single embedding vector and token usage.
type EmbeddingResult struct {
	Embedding    []float32
	PromptTokens int
	TotalTokens  int
}

// EmbeddedItem is the outcome of embedding one text in a batch.
// Err is non-nil when the provider failed for this item; Embedding is nil then.
type EmbeddedItem struct {
	Embedding []float32
	Err       error
}

// BatchEmbeddingResult carries per-item outcomes and aggregate token usage.
// Items is index-aligned with the input texts.
type BatchEmbeddingResult struct {
	Items        []EmbeddedItem
	PromptTokens int
	TotalTokens  int
}

// Failed counts items that could not be embedded.
func (r BatchEmbeddingResult) Failed() int {
	n := 0
	for _, it := range r.Items {
		if it.Err != nil {
			n++
		}
	}
	return n
}

// BatchFallback embeds texts one by one through a plain Embedder.
// Per-item errors are captured in the result instead of aborting the batch.
func BatchFallback(ctx context.Context, e Embedder, texts []string) (BatchEmbeddingResult, error) {
	out := BatchEmbeddingResult{Items: make([]EmbeddedItem, len(texts))}

	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return out, fmt.Errorf("fallback embed [%d]: %w", i, err)
		}
		res, err := e.Embed(ctx, text)
		if err != nil {
			out.Items[i] = EmbeddedItem{Err: fmt.Errorf("%w: %w", ErrEmbeddingFailed, err)}
			continue
		}
		out.Items[i] = EmbeddedItem{Embedding: res.Embedding}
		out.PromptTokens += res.PromptTokens
		out.TotalTokens += res.TotalTokens
	}

	return out, nil
}
