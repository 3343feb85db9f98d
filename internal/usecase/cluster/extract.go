package cluster

import (
	"sort"
	"strings"

	"github.com/skylens-io/skylens/internal/domain"
)

// ExtractText produces the normalized text a record is embedded under.
// The text captures the semantically relevant fields in a fixed order
// (kind, service, operation, status, severity, message, then attributes
// sorted by key) so that records describing the same situation map to the
// same string and aggregate into one embedded value.
func ExtractText(r domain.Record) string {
	parts := make([]string, 0, 8+len(r.Attributes()))

	appendPart := func(s string) {
		if s = normalize(s); s != "" {
			parts = append(parts, s)
		}
	}

	appendPart(string(r.Kind()))
	appendPart(r.Service())
	appendPart(r.Operation())
	appendPart(r.Status())
	appendPart(r.Severity())
	appendPart(r.Message())

	attrs := r.Attributes()
	if len(attrs) > 0 {
		keys := make([]string, 0, len(attrs))
		for k := range attrs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v := normalize(attrs[k]); v != "" {
				parts = append(parts, k+"="+v)
			}
		}
	}

	return strings.Join(parts, " ")
}

// normalize collapses runs of whitespace to single spaces and trims the ends.
func normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
