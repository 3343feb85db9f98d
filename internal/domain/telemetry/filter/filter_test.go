package filter

import (
	"strings"
	"testing"
	"time"
)

func floatPtr(f float64) *float64 { return &f }

// --- Range tests ---

func TestNewRangeFilter_Valid(t *testing.T) {
	tests := []struct {
		name             string
		gt, gte, lt, lte *float64
	}{
		{"gt only", floatPtr(1), nil, nil, nil},
		{"gte only", nil, floatPtr(0), nil, nil},
		{"lt only", nil, nil, floatPtr(10), nil},
		{"lte only", nil, nil, nil, floatPtr(100)},
		{"gt+lt", floatPtr(0), nil, floatPtr(10), nil},
		{"gte+lte", nil, floatPtr(0), nil, floatPtr(10)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := NewRangeFilter(tt.gt, tt.gte, tt.lt, tt.lte)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if (r.GT() == nil) != (tt.gt == nil) {
				t.Error("GT() mismatch")
			}
			if (r.GTE() == nil) != (tt.gte == nil) {
				t.Error("GTE() mismatch")
			}
			if (r.LT() == nil) != (tt.lt == nil) {
				t.Error("LT() mismatch")
			}
			if (r.LTE() == nil) != (tt.lte == nil) {
				t.Error("LTE() mismatch")
			}
		})
	}
}

func TestNewRangeFilter_NoBoundary(t *testing.T) {
	_, err := NewRangeFilter(nil, nil, nil, nil)
	if err == nil {
		t.Fatal("expected error for no boundary")
	}
	if !strings.Contains(err.Error(), "at least one") {
		t.Errorf("error = %q", err)
	}
}

func TestNewRangeFilter_BothGtAndGte(t *testing.T) {
	_, err := NewRangeFilter(floatPtr(1), floatPtr(1), nil, nil)
	if err == nil {
		t.Fatal("expected error for both gt and gte")
	}
}

func TestNewRangeFilter_BothLtAndLte(t *testing.T) {
	_, err := NewRangeFilter(nil, nil, floatPtr(1), floatPtr(1))
	if err == nil {
		t.Fatal("expected error for both lt and lte")
	}
}

// --- Condition tests ---

func TestNewMatch(t *testing.T) {
	c, err := NewMatch("service", "checkout")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != "service" || c.Match() != "checkout" {
		t.Errorf("unexpected condition: %s=%s", c.Key(), c.Match())
	}
	if !c.IsMatch() || c.IsRange() {
		t.Error("expected a match condition")
	}
}

func TestNewMatch_Invalid(t *testing.T) {
	if _, err := NewMatch("", "x"); err == nil {
		t.Error("expected error for empty key")
	}
	if _, err := NewMatch("service", ""); err == nil {
		t.Error("expected error for empty match value")
	}
}

func TestNewRange(t *testing.T) {
	r, err := NewRangeFilter(nil, floatPtr(1), nil, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, err := NewRange("duration", r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !c.IsRange() || c.IsMatch() {
		t.Error("expected a range condition")
	}
	if c.Range().GTE() == nil || *c.Range().GTE() != 1 {
		t.Errorf("unexpected range: %+v", c.Range())
	}
}

func TestNewTimeRange(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	until := time.Date(2026, 8, 2, 0, 0, 0, 0, time.UTC)

	c, err := NewTimeRange(from, until)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Key() != TimestampField {
		t.Errorf("expected timestamp key, got %q", c.Key())
	}
	// Inclusive lower bound, exclusive upper: [from, until).
	if got := *c.Range().GTE(); got != float64(from.UnixMilli()) {
		t.Errorf("unexpected gte %v", got)
	}
	if got := *c.Range().LT(); got != float64(until.UnixMilli()) {
		t.Errorf("unexpected lt %v", got)
	}
	if c.Range().GT() != nil || c.Range().LTE() != nil {
		t.Error("unexpected extra bounds")
	}
}

func TestNewTimeRange_OpenBoundaries(t *testing.T) {
	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	c, err := NewTimeRange(from, time.Time{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Range().GTE() == nil || c.Range().LT() != nil {
		t.Error("zero until must leave the upper bound open")
	}

	if _, err := NewTimeRange(time.Time{}, time.Time{}); err == nil {
		t.Error("fully open time range must be rejected")
	}
}

// --- Expression tests ---

func TestNewExpression_TooManyConditions(t *testing.T) {
	conds := make([]Condition, MaxConditionsPerGroup+1)
	for i := range conds {
		c, err := NewMatch("service", "s")
		if err != nil {
			t.Fatalf("NewMatch: %v", err)
		}
		conds[i] = c
	}

	if _, err := NewExpression(conds, nil, nil); err == nil {
		t.Error("expected error for too many must conditions")
	}
	if _, err := NewExpression(nil, conds, nil); err == nil {
		t.Error("expected error for too many should conditions")
	}
	if _, err := NewExpression(nil, nil, conds); err == nil {
		t.Error("expected error for too many must_not conditions")
	}
}

func TestExpression_WithMust(t *testing.T) {
	base, err := NewExpression([]Condition{mustCond(t, "service", "a")}, nil, nil)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}

	extended := base.WithMust(mustCond(t, "status", "error"))

	if len(base.Must()) != 1 {
		t.Errorf("WithMust must not mutate the original, got %d conditions", len(base.Must()))
	}
	if len(extended.Must()) != 2 {
		t.Fatalf("expected 2 conditions, got %d", len(extended.Must()))
	}
	if extended.Must()[1].Key() != "status" {
		t.Errorf("unexpected appended condition %q", extended.Must()[1].Key())
	}
}

func TestExpression_IsEmpty(t *testing.T) {
	if !(Expression{}).IsEmpty() {
		t.Error("zero expression must be empty")
	}

	expr, err := NewExpression([]Condition{mustCond(t, "service", "a")}, nil, nil)
	if err != nil {
		t.Fatalf("NewExpression: %v", err)
	}
	if expr.IsEmpty() {
		t.Error("expression with conditions must not be empty")
	}
}

func mustCond(t *testing.T, key, value string) Condition {
	t.Helper()
	c, err := NewMatch(key, value)
	if err != nil {
		t.Fatalf("NewMatch: %v", err)
	}
	return c
}
