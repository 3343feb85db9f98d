package stats

import (
	"context"

	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

// RecordCounter counts telemetry records matching a filter.
type RecordCounter interface {
	Count(ctx context.Context, filters filter.Expression) (int, error)
}
