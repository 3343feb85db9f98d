package embcache

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/db"
	"github.com/skylens-io/skylens/internal/domain"
)

type mockEmbedder struct {
	vector      []float32
	tokens      int
	batchErr    error
	batchCalls  int
	batchInputs [][]string
}

func (m *mockEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.batchCalls++
	m.batchInputs = append(m.batchInputs, texts)
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	out := domain.BatchEmbeddingResult{
		Items:        make([]domain.EmbeddedItem, len(texts)),
		PromptTokens: m.tokens * len(texts),
		TotalTokens:  m.tokens * len(texts),
	}
	for i := range texts {
		out.Items[i] = domain.EmbeddedItem{Embedding: m.vector}
	}
	return out, nil
}

// failingItemEmbedder succeeds on the first text and fails on the rest,
// exercising per-item error passthrough.
type failingItemEmbedder struct{}

func (f *failingItemEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	out := domain.BatchEmbeddingResult{Items: make([]domain.EmbeddedItem, len(texts))}
	for i := range texts {
		if i == 0 {
			out.Items[i] = domain.EmbeddedItem{Embedding: []float32{1}}
		} else {
			out.Items[i] = domain.EmbeddedItem{Err: errors.New("provider rejected text")}
		}
	}
	return out, nil
}

func newNopLogger() *zap.Logger { return zap.NewNop() }

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	getFn func(ctx context.Context, key string) ([]byte, error)
	setFn func(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockKVStore) SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if m.setFn != nil {
		return m.setFn(ctx, key, value, ttl)
	}
	return nil
}

func newTestCachedEmbedder(t *testing.T, inner *mockEmbedder) (*CachedBatchEmbedder, *mockKVStore) {
	t.Helper()
	ms := &mockKVStore{}
	ce := New(inner, ms, "skylens:", "test-model", time.Hour, nil, zap.NewNop())
	return ce, ms
}
