package cluster

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/skylens-io/skylens/internal/domain"
)

// --- Mocks ---

// mockSource replays fixed pages of records and then io.EOF.
type mockSource struct {
	pages    [][]domain.Record
	err      error // returned instead of the first page when set
	next     int
	examined int
}

func (m *mockSource) Next(ctx context.Context) ([]domain.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.next >= len(m.pages) {
		return nil, io.EOF
	}
	page := m.pages[m.next]
	m.next++
	m.examined += len(page)
	return page, nil
}

func (m *mockSource) Examined() int { return m.examined }

func sourceFactory(src RecordSource) SourceFactory {
	return SourceFactoryFunc(func(_ SourceOptions) RecordSource { return src })
}

// mockBatchEmbedder returns precomputed vectors keyed by text. Texts listed
// in failTexts come back as per-item failures; batchErr fails whole calls,
// failFirstCall only the first one.
type mockBatchEmbedder struct {
	vectors       map[string][]float32
	failTexts     map[string]bool
	batchErr      error
	failFirstCall bool
	calls         int
	batchSizes    []int
	panicOnCall   bool
}

func (m *mockBatchEmbedder) BatchEmbed(_ context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	m.calls++
	m.batchSizes = append(m.batchSizes, len(texts))
	if m.panicOnCall {
		panic("embedder exploded")
	}
	if m.batchErr != nil {
		return domain.BatchEmbeddingResult{}, m.batchErr
	}
	if m.failFirstCall && m.calls == 1 {
		return domain.BatchEmbeddingResult{}, fmt.Errorf("provider unavailable")
	}

	out := domain.BatchEmbeddingResult{Items: make([]domain.EmbeddedItem, len(texts))}
	for i, text := range texts {
		if m.failTexts[text] {
			out.Items[i] = domain.EmbeddedItem{Err: domain.ErrEmbeddingFailed}
			continue
		}
		vec, ok := m.vectors[text]
		if !ok {
			out.Items[i] = domain.EmbeddedItem{Err: domain.ErrEmbeddingFailed}
			continue
		}
		out.Items[i] = domain.EmbeddedItem{Embedding: vec}
	}
	return out, nil
}

// sliceStream feeds precomputed value batches straight to the clusterer.
type sliceStream struct {
	batches [][]Value
	next    int
}

func (s *sliceStream) Next(_ context.Context) ([]Value, error) {
	if s.next >= len(s.batches) {
		return nil, io.EOF
	}
	b := s.batches[s.next]
	s.next++
	return b, nil
}

// --- Helpers ---

func makeRecord(id, message string) domain.Record {
	return domain.NewRecord(
		id, domain.KindLog,
		time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC),
		"", "", "", "", message, nil, nil,
	)
}

// group2D builds n values jittered around a 2-D center. Jitter offsets are
// fixed so tests are deterministic.
func group2D(prefix string, cx, cy float32, n int) []Value {
	offsets := []float32{-0.1, -0.03, 0.03, 0.1}
	values := make([]Value, n)
	for i := range values {
		off := offsets[i%len(offsets)]
		values[i] = Value{
			ID:     fmt.Sprintf("%s-%d", prefix, i),
			Value:  fmt.Sprintf("%s message %d", prefix, i),
			Vector: []float32{cx + off, cy + off},
			Count:  1,
		}
	}
	return values
}

// recordsAndVectors builds records plus the text->vector table the mock
// embedder serves them from.
func recordsAndVectors(groups ...[]Value) ([]domain.Record, map[string][]float32) {
	var records []domain.Record
	vectors := make(map[string][]float32)
	for _, group := range groups {
		for _, v := range group {
			r := makeRecord(v.ID, v.Value)
			records = append(records, r)
			vectors[ExtractText(r)] = v.Vector
		}
	}
	return records, vectors
}
