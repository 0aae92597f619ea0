package table

import (
	"fmt"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Column type inference
// ---------------------------------------------------------------------------

// ColumnType is the inferred data type of a column.
type ColumnType string

const (
	TypeNumber ColumnType = "number"
	TypeTime   ColumnType = "time"
	TypeString ColumnType = "string"
)

// InferColumnType classifies a column from its current values: number when
// every non-missing value coerces to a number, time when every non-missing
// value parses as a timestamp, string otherwise. A column with no values at
// all is a string column. The result is computed fresh on every call so it
// always reflects the table at hand.
func InferColumnType(t *Table, column string) (ColumnType, error) {
	pos, ok := t.index[column]
	if !ok {
		return "", &SchemaError{Column: column, Reason: "not in table"}
	}
	seen := false
	allNum, allTime := true, true
	for _, row := range t.rows {
		v := row[pos]
		if IsMissing(v) {
			continue
		}
		seen = true
		if allNum {
			if _, ok := asNumber(v); !ok {
				allNum = false
			}
		}
		if allTime {
			if _, ok := asTime(v); !ok {
				allTime = false
			}
		}
		if !allNum && !allTime {
			break
		}
	}
	switch {
	case !seen:
		return TypeString, nil
	case allNum:
		return TypeNumber, nil
	case allTime:
		return TypeTime, nil
	default:
		return TypeString, nil
	}
}

// ---------------------------------------------------------------------------
// Filters
// ---------------------------------------------------------------------------

// FilterKind names a predicate shape.
type FilterKind string

const (
	// FilterRange keeps rows whose numeric value is within [Min, Max],
	// inclusive at both ends.
	FilterRange FilterKind = "range"
	// FilterTimeRange keeps rows whose timestamp is within [From, To],
	// inclusive at both ends.
	FilterTimeRange FilterKind = "timeRange"
	// FilterIn keeps rows whose canonical value is in Values.
	FilterIn FilterKind = "in"
	// FilterContains keeps rows whose value contains Substring,
	// case-insensitively.
	FilterContains FilterKind = "contains"
)

// KnownFilterKind reports whether k names a supported predicate.
func KnownFilterKind(k FilterKind) bool {
	switch k {
	case FilterRange, FilterTimeRange, FilterIn, FilterContains:
		return true
	}
	return false
}

// Filter is one (column, predicate) pair. Only the fields for its Kind are
// consulted: Min/Max for range, From/To for timeRange, Values for in,
// Substring for contains. A nil range bound is unbounded on that side.
type Filter struct {
	Column    string     `json:"column"`
	Kind      FilterKind `json:"kind"`
	Min       *float64   `json:"min,omitempty"`
	Max       *float64   `json:"max,omitempty"`
	From      *time.Time `json:"from,omitempty"`
	To        *time.Time `json:"to,omitempty"`
	Values    []string   `json:"values,omitempty"`
	Substring string     `json:"substring,omitempty"`
}

// ApplyFilters applies the filters in order, returning a new table holding
// the surviving rows. An "in" filter with no values and a "contains" filter
// with an empty substring keep every row: an empty selection means no
// filter, not an empty result.
func ApplyFilters(t *Table, filters []Filter) (*Table, error) {
	out := t
	for _, f := range filters {
		next, err := applyFilter(out, f)
		if err != nil {
			return nil, err
		}
		out = next
	}
	return out, nil
}

func applyFilter(t *Table, f Filter) (*Table, error) {
	pos, ok := t.index[f.Column]
	if !ok {
		return nil, &SchemaError{Column: f.Column, Reason: "filter column not in table"}
	}
	kind, err := InferColumnType(t, f.Column)
	if err != nil {
		return nil, err
	}

	var keep func(v any) bool
	switch f.Kind {
	case FilterRange:
		if kind != TypeNumber {
			return nil, &SchemaError{Column: f.Column, Reason: fmt.Sprintf("range filter on %s column", kind)}
		}
		keep = func(v any) bool {
			n, ok := asNumber(v)
			if !ok {
				return false
			}
			if f.Min != nil && n < *f.Min {
				return false
			}
			if f.Max != nil && n > *f.Max {
				return false
			}
			return true
		}
	case FilterTimeRange:
		if kind != TypeTime {
			return nil, &SchemaError{Column: f.Column, Reason: fmt.Sprintf("time range filter on %s column", kind)}
		}
		keep = func(v any) bool {
			ts, ok := asTime(v)
			if !ok {
				return false
			}
			if f.From != nil && ts.Before(*f.From) {
				return false
			}
			if f.To != nil && ts.After(*f.To) {
				return false
			}
			return true
		}
	case FilterIn:
		// Membership compares canonical string forms, so it works for any
		// scalar column.
		if len(f.Values) == 0 {
			return t, nil
		}
		set := make(map[string]struct{}, len(f.Values))
		for _, v := range f.Values {
			set[v] = struct{}{}
		}
		keep = func(v any) bool {
			s, ok := CanonicalString(v)
			if !ok {
				return false
			}
			_, hit := set[s]
			return hit
		}
	case FilterContains:
		if kind != TypeString {
			return nil, &SchemaError{Column: f.Column, Reason: fmt.Sprintf("contains filter on %s column", kind)}
		}
		if f.Substring == "" {
			return t, nil
		}
		needle := strings.ToLower(f.Substring)
		keep = func(v any) bool {
			s, ok := CanonicalString(v)
			if !ok {
				return false
			}
			return strings.Contains(strings.ToLower(s), needle)
		}
	default:
		return nil, fmt.Errorf("unknown filter kind %q", f.Kind)
	}

	out := New(t.cols...)
	for _, row := range t.rows {
		if keep(row[pos]) {
			out.rows = append(out.rows, row)
		}
	}
	return out, nil
}
