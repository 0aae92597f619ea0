package table

import (
	"sort"
	"time"
)

// SortByTime returns the table with rows in ascending order of the parsed
// timestamps in the given column. The sort is stable; rows whose cell does
// not parse as a timestamp keep their relative order after all rows that do.
func SortByTime(t *Table, column string) (*Table, error) {
	pos, ok := t.index[column]
	if !ok {
		return nil, &SchemaError{Column: column, Reason: "sort column not in table"}
	}
	type keyed struct {
		row []any
		ts  time.Time
		ok  bool
	}
	keys := make([]keyed, len(t.rows))
	for i, row := range t.rows {
		ts, ok := asTime(row[pos])
		keys[i] = keyed{row: row, ts: ts, ok: ok}
	}
	sort.SliceStable(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.ok != b.ok {
			return a.ok
		}
		if !a.ok {
			return false
		}
		return a.ts.Before(b.ts)
	})
	out := New(t.cols...)
	out.rows = make([][]any, len(keys))
	for i, k := range keys {
		out.rows[i] = k.row
	}
	return out, nil
}

// WithRelativeSeconds returns the table with outColumn holding each row's
// offset in seconds from the earliest parseable timestamp in timeColumn.
// Rows without a parseable timestamp get Missing. The column is appended,
// or replaced if it already exists.
func WithRelativeSeconds(t *Table, timeColumn, outColumn string) (*Table, error) {
	pos, ok := t.index[timeColumn]
	if !ok {
		return nil, &SchemaError{Column: timeColumn, Reason: "time column not in table"}
	}
	var base time.Time
	found := false
	for _, row := range t.rows {
		if ts, ok := asTime(row[pos]); ok {
			if !found || ts.Before(base) {
				base = ts
				found = true
			}
		}
	}
	values := make([]any, len(t.rows))
	for i, row := range t.rows {
		if ts, ok := asTime(row[pos]); ok && found {
			values[i] = ts.Sub(base).Seconds()
		} else {
			values[i] = Missing
		}
	}
	return WithColumn(t, outColumn, values), nil
}
