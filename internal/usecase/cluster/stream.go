package cluster

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/logger"
)

// Value is one embedded attribute value: the normalized text of one or more
// telemetry records plus its vector. Count carries how many records collapsed
// into this text. Vector is nil only after stripping for the response.
type Value struct {
	ID     string    `json:"id"`
	Value  string    `json:"value"`
	Vector []float32 `json:"vector,omitempty"`
	Count  int       `json:"count"`
}

// valueStream yields batches of embedded values until io.EOF.
type valueStream interface {
	Next(ctx context.Context) ([]Value, error)
}

// embeddingStream composes a record source, the text extractor and a batch
// embedder into a lazy sequence of embedded-value batches. It is finite and
// consumed exactly once; re-running an analysis opens a fresh stream.
type embeddingStream struct {
	source    RecordSource
	embedder  BatchEmbedder
	batchSize int

	pending   []Value        // texts collected but not yet embedded
	pendingIx map[string]int // text -> index in pending, for duplicate merging
	srcDone   bool
}

func newEmbeddingStream(source RecordSource, embedder BatchEmbedder, batchSize int) *embeddingStream {
	return &embeddingStream{
		source:    source,
		embedder:  embedder,
		batchSize: batchSize,
		pendingIx: make(map[string]int),
	}
}

// Next returns the next batch of embedded values, or io.EOF when the record
// source is exhausted and nothing is pending. A batch may come back smaller
// than the configured size (trailing records, failed items) or empty (a whole
// batch dropped after a provider failure); empty is not termination.
func (s *embeddingStream) Next(ctx context.Context) ([]Value, error) {
	log := logger.FromContext(ctx)

	for len(s.pending) < s.batchSize && !s.srcDone {
		page, err := s.source.Next(ctx)
		if errors.Is(err, io.EOF) {
			s.srcDone = true
			break
		}
		if err != nil {
			return nil, fmt.Errorf("fetch records: %w", err)
		}
		s.collect(page)
	}

	if len(s.pending) == 0 {
		if s.srcDone {
			return nil, io.EOF
		}
		return []Value{}, nil
	}

	n := s.batchSize
	if n > len(s.pending) {
		n = len(s.pending)
	}
	batch := s.pending[:n:n]
	s.pending = s.pending[n:]
	for text, i := range s.pendingIx {
		if i < n {
			delete(s.pendingIx, text)
		} else {
			s.pendingIx[text] = i - n
		}
	}

	texts := make([]string, len(batch))
	for i, v := range batch {
		texts[i] = v.Value
	}

	res, err := s.embedder.BatchEmbed(ctx, texts)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embed batch: %w", err)
		}
		// Provider failure for the whole batch: drop it and keep streaming.
		log.Warn("Dropping batch after embedding failure",
			zap.Int("batch_size", len(batch)), zap.Error(err))
		return []Value{}, nil
	}
	domain.UsageFromContext(ctx).AddTokens(res.TotalTokens)

	out := make([]Value, 0, len(batch))
	for i, item := range res.Items {
		if item.Err != nil {
			log.Warn("Dropping value after embedding failure",
				zap.String("value", batch[i].Value), zap.Error(item.Err))
			continue
		}
		v := batch[i]
		v.Vector = item.Embedding
		out = append(out, v)
	}

	return out, nil
}

// collect converts a page of records to pending texts, merging duplicates.
func (s *embeddingStream) collect(page []domain.Record) {
	for _, r := range page {
		text := ExtractText(r)
		if text == "" {
			continue
		}
		if i, ok := s.pendingIx[text]; ok {
			s.pending[i].Count++
			continue
		}
		s.pendingIx[text] = len(s.pending)
		s.pending = append(s.pending, Value{ID: r.ID(), Value: text, Count: 1})
	}
}
