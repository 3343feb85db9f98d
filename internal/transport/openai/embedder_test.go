package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/metrics"
)

func TestMain(m *testing.M) {
	metrics.RegisterEmbeddingMetrics()
	os.Exit(m.Run())
}

type embeddingData struct {
	Object    string    `json:"object"`
	Embedding []float32 `json:"embedding"`
	Index     int       `json:"index"`
}

// embeddingResponse mirrors the OpenAI-compatible API embedding response.
type embeddingResponse struct {
	Object string          `json:"object"`
	Data   []embeddingData `json:"data"`
	Model  string          `json:"model"`
	Usage  struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

func newTestEmbedder(t *testing.T, handler http.HandlerFunc) *Embedder {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewEmbedder(&Config{
		APIKey:   "test-key",
		BaseURL:  server.URL,
		Model:    "test-model",
		Provider: "test",
		Logger:   zap.NewNop(),
	})
}

func TestBatchEmbed_AlignsByResponseIndex(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/embeddings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("unexpected auth header: %s", r.Header.Get("Authorization"))
		}

		// Vectors intentionally out of input order.
		resp := embeddingResponse{
			Object: "list",
			Model:  "test-model",
			Data: []embeddingData{
				{Object: "embedding", Embedding: []float32{2, 2}, Index: 1},
				{Object: "embedding", Embedding: []float32{1, 1}, Index: 0},
			},
		}
		resp.Usage.PromptTokens = 8
		resp.Usage.TotalTokens = 8

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	res, err := emb.BatchEmbed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if len(res.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(res.Items))
	}
	if res.Items[0].Embedding[0] != 1 || res.Items[1].Embedding[0] != 2 {
		t.Errorf("vectors not aligned by index: %v, %v", res.Items[0].Embedding, res.Items[1].Embedding)
	}
	if res.TotalTokens != 8 {
		t.Errorf("expected 8 tokens, got %d", res.TotalTokens)
	}
}

func TestBatchEmbed_MissingVectorFailsItemOnly(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := embeddingResponse{
			Object: "list",
			Model:  "test-model",
			Data: []embeddingData{
				{Object: "embedding", Embedding: []float32{0.5}, Index: 0},
				// No vector for index 1.
			},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	})

	res, err := emb.BatchEmbed(context.Background(), []string{"ok", "dropped"})
	if err != nil {
		t.Fatalf("BatchEmbed failed: %v", err)
	}
	if res.Items[0].Err != nil {
		t.Errorf("unexpected error for item 0: %v", res.Items[0].Err)
	}
	if !errors.Is(res.Items[1].Err, domain.ErrEmbeddingFailed) {
		t.Errorf("expected ErrEmbeddingFailed for item 1, got %v", res.Items[1].Err)
	}
	if res.Failed() != 1 {
		t.Errorf("expected 1 failed item, got %d", res.Failed())
	}
}

func TestBatchEmbed_APIError(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"detail": "rate limit exceeded"}`))
	})

	_, err := emb.BatchEmbed(context.Background(), []string{"a"})
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, domain.ErrEmbeddingProviderError) {
		t.Errorf("expected ErrEmbeddingProviderError, got %v", err)
	}
}

func TestBatchEmbed_Empty(t *testing.T) {
	emb := newTestEmbedder(t, func(_ http.ResponseWriter, _ *http.Request) {
		t.Error("no API call expected for empty input")
	})

	res, err := emb.BatchEmbed(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Items) != 0 {
		t.Errorf("expected empty result, got %d items", len(res.Items))
	}
}

func TestHealthCheck(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/models" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object": "list", "data": []}`))
	})

	if err := emb.HealthCheck(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHealthCheck_Down(t *testing.T) {
	emb := newTestEmbedder(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	if err := emb.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected error when provider is down")
	}
}
