package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/skylens-io/skylens/internal/db"
	"github.com/skylens-io/skylens/internal/domain/telemetry/filter"
)

const unknownIndexMsg = "unknown index name"

// SearchList runs a paginated FT.SEARCH over the telemetry index. Results are
// sorted ascending by q.SortBy (timestamp when unset) so repeated calls with a
// moving offset walk the match set in a stable order.
func (s *Store) SearchList(ctx context.Context, q *db.ListQuery) (*db.SearchResult, error) {
	if q.IndexName == "" {
		return nil, errors.New("index name is required")
	}
	if q.Limit <= 0 {
		return nil, errors.New("limit must be positive")
	}

	sortBy := q.SortBy
	if sortBy == "" {
		sortBy = filter.TimestampField
	}

	args := []string{q.IndexName, queryString(q.Filters)}
	if len(q.ReturnFields) > 0 {
		args = append(args, "RETURN", strconv.Itoa(len(q.ReturnFields)))
		args = append(args, q.ReturnFields...)
	}
	args = append(args,
		"SORTBY", sortBy, "ASC",
		"LIMIT", strconv.Itoa(q.Offset), strconv.Itoa(q.Limit),
		"DIALECT", "2",
	)

	raw, err := s.ftSearch(ctx, args)
	if err != nil {
		return nil, err
	}
	return parseListResult(raw)
}

// SearchCount returns how many documents match the filters. LIMIT 0 0 makes
// RediSearch return only the total.
func (s *Store) SearchCount(ctx context.Context, index string, filters db.QueryFilters) (int, error) {
	args := []string{index, queryString(filters), "LIMIT", "0", "0", "DIALECT", "2"}

	raw, err := s.ftSearch(ctx, args)
	if err != nil {
		return 0, err
	}
	if len(raw) == 0 {
		return 0, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return 0, fmt.Errorf("parse count: %w", err)
	}
	return int(total), nil
}

func (s *Store) ftSearch(ctx context.Context, args []string) ([]rueidis.RedisMessage, error) {
	cmd := s.client.B().Arbitrary("FT.SEARCH").Args(args...).Build()
	raw, err := s.client.Do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, unknownIndexMsg) {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}
	return raw, nil
}

func queryString(filters db.QueryFilters) string {
	if q := buildFilter(filters); q != "" {
		return q
	}
	return "*"
}

// parseListResult decodes the RESP2 FT.SEARCH reply. The shape is
// [total, key1, fields1, key2, fields2, ...] where each fields element is a
// flat name/value array. Entries that fail to decode are skipped.
func parseListResult(raw []rueidis.RedisMessage) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, fmt.Errorf("parse total: %w", err)
	}

	result := &db.SearchResult{Total: int(total)}
	if total == 0 {
		return result, nil
	}

	for rest := raw[1:]; len(rest) >= 2; rest = rest[2:] {
		key, err := rest[0].ToString()
		if err != nil {
			continue
		}
		fields, err := rest[1].ToArray()
		if err != nil {
			continue
		}
		result.Entries = append(result.Entries, db.SearchEntry{Key: key, Fields: fieldMap(fields)})
	}
	return result, nil
}

func fieldMap(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for ; len(fields) >= 2; fields = fields[2:] {
		name, nameErr := fields[0].ToString()
		value, valueErr := fields[1].ToString()
		if nameErr != nil || valueErr != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// buildFilter renders a filter expression as a RediSearch query string.
// Must conditions are space-joined (implicit AND), the should group becomes a
// parenthesized OR, and must_not conditions are negated with a leading dash.
func buildFilter(expr filter.Expression) string {
	if expr.IsEmpty() {
		return ""
	}

	var parts []string
	for _, cond := range expr.Must() {
		parts = append(parts, buildCondition(cond))
	}
	if should := expr.Should(); len(should) > 0 {
		group := make([]string, 0, len(should))
		for _, cond := range should {
			group = append(group, buildCondition(cond))
		}
		parts = append(parts, "("+strings.Join(group, " | ")+")")
	}
	for _, cond := range expr.MustNot() {
		parts = append(parts, "-"+buildCondition(cond))
	}
	return strings.Join(parts, " ")
}

func buildCondition(cond filter.Condition) string {
	switch {
	case cond.IsMatch():
		return "@" + cond.Key() + ":{" + tagEscaper.Replace(cond.Match()) + "}"
	case cond.IsRange():
		return numericCondition(cond.Key(), *cond.Range())
	default:
		return ""
	}
}

// numericCondition renders @key:[min max]. A paren prefix makes the bound
// exclusive in RediSearch syntax.
func numericCondition(key string, r filter.Range) string {
	lower := "-inf"
	if r.GT() != nil {
		lower = "(" + formatBound(*r.GT())
	} else if r.GTE() != nil {
		lower = formatBound(*r.GTE())
	}

	upper := "+inf"
	if r.LT() != nil {
		upper = "(" + formatBound(*r.LT())
	} else if r.LTE() != nil {
		upper = formatBound(*r.LTE())
	}

	return "@" + key + ":[" + lower + " " + upper + "]"
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// tagEscaper escapes the characters RediSearch treats as syntax inside tag
// queries.
var tagEscaper = strings.NewReplacer(
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)
