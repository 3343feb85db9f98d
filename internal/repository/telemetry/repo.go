// Package telemetry reads telemetry records from the document store and
// exposes them as filtered, sampled, capped page streams for analysis.
package telemetry

import (
	"context"
	"fmt"

	"github.com/skylens-io/skylens/internal/db"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

// DefaultPageSize is the number of documents fetched per store round-trip.
const DefaultPageSize = 100

// Index returns the FT index definition for telemetry documents.
func Index(name, keyPrefix string) *db.IndexDefinition {
	return db.NewIndex(name).
		Prefix(keyPrefix).
		Tag(FieldKind).
		Tag(FieldService).
		Tag(FieldOperation).
		Tag(FieldStatus).
		Tag(FieldSeverity).
		SortableNumeric(filter.TimestampField).
		Numeric(FieldDuration).
		Numeric(FieldValue).
		Text(FieldMessage).
		MustBuild()
}

// Repo reads telemetry records through the store's search interface.
type Repo struct {
	store    db.Searcher
	index    string
	pageSize int
}

// New creates a telemetry repository over the given index.
func New(store db.Searcher, index string) *Repo {
	return &Repo{store: store, index: index, pageSize: DefaultPageSize}
}

// WithPageSize overrides the per-fetch page size.
func (r *Repo) WithPageSize(n int) *Repo {
	if n > 0 {
		r.pageSize = n
	}
	return r
}

// Count returns the number of records matching the filters.
func (r *Repo) Count(ctx context.Context, filters filter.Expression) (int, error) {
	n, err := r.store.SearchCount(ctx, r.index, filters)
	if err != nil {
		return 0, fmt.Errorf("count records: %w", err)
	}
	return n, nil
}
