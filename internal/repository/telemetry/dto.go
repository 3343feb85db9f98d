package telemetry

import (
	"strconv"
	"strings"
	"time"

	"github.com/skylens-io/skylens/internal/db"
	"github.com/skylens-io/skylens/internal/domain"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

// Store field names for telemetry hashes. Custom attributes carry the attr_
// prefix, custom numeric fields the num_ prefix.
const (
	FieldKind      = "kind"
	FieldService   = "service"
	FieldOperation = "operation"
	FieldStatus    = "status"
	FieldSeverity  = "severity"
	FieldMessage   = "message"
	FieldDuration  = "duration"
	FieldValue     = "value"

	attrPrefix = "attr_"
	numPrefix  = "num_"
)

// recordFromEntry maps a search hit onto a domain record.
func recordFromEntry(e db.SearchEntry) domain.Record {
	f := e.Fields

	var ts time.Time
	if raw, ok := f[filter.TimestampField]; ok {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
			ts = time.UnixMilli(ms).UTC()
		}
	}

	numerics := make(map[string]float64)
	for _, name := range []string{FieldDuration, FieldValue} {
		if raw, ok := f[name]; ok {
			if v, err := strconv.ParseFloat(raw, 64); err == nil {
				numerics[name] = v
			}
		}
	}

	attributes := make(map[string]string)
	for name, value := range f {
		switch {
		case strings.HasPrefix(name, attrPrefix):
			attributes[strings.TrimPrefix(name, attrPrefix)] = value
		case strings.HasPrefix(name, numPrefix):
			if v, err := strconv.ParseFloat(value, 64); err == nil {
				numerics[strings.TrimPrefix(name, numPrefix)] = v
			}
		}
	}

	return domain.NewRecord(
		e.Key,
		domain.RecordKind(f[FieldKind]),
		ts,
		f[FieldService],
		f[FieldOperation],
		f[FieldStatus],
		f[FieldSeverity],
		f[FieldMessage],
		attributes,
		numerics,
	)
}
