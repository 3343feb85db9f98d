package cluster

import (
	"context"

	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

// RecordSource yields pages of telemetry records. Next returns io.EOF when the
// stream is exhausted; a returned page may be empty when sampling filtered out
// every record in a store round-trip. The service drives a source exclusively;
// sources are not safe for concurrent use.
type RecordSource interface {
	Next(ctx context.Context) ([]domain.Record, error)
	Examined() int
}

// SourceOptions configure one record stream.
type SourceOptions struct {
	Filters         filter.Expression
	SamplingPercent float64
	MaxDocs         int
	Seed            int64
}

// SourceFactory opens a fresh record stream per analysis run.
type SourceFactory interface {
	NewSource(opts SourceOptions) RecordSource
}

// SourceFactoryFunc adapts a function to the SourceFactory interface.
type SourceFactoryFunc func(opts SourceOptions) RecordSource

// NewSource implements SourceFactory.
func (f SourceFactoryFunc) NewSource(opts SourceOptions) RecordSource { return f(opts) }

// BatchEmbedder is the vectorization contract consumed by the stream.
type BatchEmbedder = domain.BatchEmbedder
