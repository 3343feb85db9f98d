package telemetry

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"github.com/skylens-io/skylens/internal/db"
	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

// PagerOptions bound a record stream.
type PagerOptions struct {
	// SamplingPercent keeps roughly this share of examined records (0 or 100 = all).
	SamplingPercent float64
	// MaxDocs caps the number of records examined, 0 = unlimited.
	MaxDocs int
	// Seed makes sampling reproducible; 0 seeds from entropy.
	Seed int64
}

// Pager is a forward-only page iterator over matching telemetry records.
// It is not safe for concurrent use; exactly one consumer drives it.
type Pager struct {
	repo     *Repo
	filters  filter.Expression
	sampling float64
	maxDocs  int
	rng      *rand.Rand

	offset   int
	examined int
	done     bool
}

// NewPager creates a page iterator over records matching the filters.
// Pages come back in ascending timestamp order, so re-running the same query
// traverses the same records in the same order.
func (r *Repo) NewPager(filters filter.Expression, opts PagerOptions) *Pager {
	sampling := opts.SamplingPercent
	if sampling <= 0 || sampling > 100 {
		sampling = 100
	}
	var rng *rand.Rand
	if sampling < 100 {
		if opts.Seed != 0 {
			rng = rand.New(rand.NewSource(opts.Seed))
		} else {
			rng = rand.New(rand.NewSource(rand.Int63()))
		}
	}
	return &Pager{
		repo:     r,
		filters:  filters,
		sampling: sampling,
		maxDocs:  opts.MaxDocs,
		rng:      rng,
	}
}

// Next returns the next page of records, or io.EOF when the stream is exhausted
// or the document cap is reached. A page may be empty when sampling filtered
// out every record fetched in this round-trip; io.EOF is never combined with
// records.
func (p *Pager) Next(ctx context.Context) ([]domain.Record, error) {
	if p.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fetch page: %w", err)
	}

	limit := p.repo.pageSize
	if p.maxDocs > 0 && p.examined+limit > p.maxDocs {
		limit = p.maxDocs - p.examined
	}
	if limit <= 0 {
		p.done = true
		return nil, io.EOF
	}

	res, err := p.repo.store.SearchList(ctx, &db.ListQuery{
		IndexName: p.repo.index,
		Filters:   p.filters,
		Offset:    p.offset,
		Limit:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch page at offset %d: %w", p.offset, err)
	}

	if len(res.Entries) == 0 {
		p.done = true
		return nil, io.EOF
	}

	p.offset += len(res.Entries)
	p.examined += len(res.Entries)

	records := make([]domain.Record, 0, len(res.Entries))
	for _, entry := range res.Entries {
		if p.rng != nil && p.rng.Float64()*100 >= p.sampling {
			continue
		}
		records = append(records, recordFromEntry(entry))
	}

	if len(res.Entries) < limit {
		// Short page: the store has nothing past this offset.
		p.done = true
	}
	if p.maxDocs > 0 && p.examined >= p.maxDocs {
		p.done = true
	}

	return records, nil
}

// Examined returns the number of records pulled from the store so far,
// before sampling.
func (p *Pager) Examined() int { return p.examined }
