package db

import "github.com/skylens-io/skylens/internal/domain/telemetry/filter"

// QueryFilters narrows a query to a slice of the telemetry index.
type QueryFilters = filter.Expression

// ListQuery is the input for paginated document listing.
// Documents are returned sorted by SortBy ascending so repeated traversals of
// the same slice observe a stable order.
type ListQuery struct {
	IndexName    string
	Filters      QueryFilters
	Offset       int
	Limit        int
	SortBy       string // numeric field, defaults to the timestamp field when empty
	ReturnFields []string
}

// SearchResult is the output of a search operation.
type SearchResult struct {
	Total   int
	Entries []SearchEntry
}

// SearchEntry is a single document hit from a search.
type SearchEntry struct {
	Key    string
	Fields map[string]string
}
