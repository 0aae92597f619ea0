// Package table implements the tabular core shared by the API and the CLI:
// flattening nested JSON records into flat rows, relational joins, predicate
// filtering, time sorting, and CSV encoding.
//
// Tables are immutable once produced: every operation returns a new Table and
// never modifies its inputs. Result rows may share backing slices with their
// source table, so callers must treat row contents as read-only.
package table

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ---------------------------------------------------------------------------
// Missing marker
// ---------------------------------------------------------------------------

// Missing marks a cell with no value: the source record had no field at that
// column, or a join left that side unmatched. JSON null flattens to Missing
// as well. It serializes as JSON null and as an empty CSV field.
var Missing = missingValue{}

type missingValue struct{}

func (missingValue) MarshalJSON() ([]byte, error) { return []byte("null"), nil }

func (missingValue) String() string { return "" }

// IsMissing reports whether a cell holds no value.
func IsMissing(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(missingValue)
	return ok
}

// ---------------------------------------------------------------------------
// Table
// ---------------------------------------------------------------------------

// Table is an ordered set of named columns over rows of cells.
type Table struct {
	cols  []string
	index map[string]int
	rows  [][]any
}

// New creates a table with the given column layout and no rows.
func New(columns ...string) *Table {
	t := &Table{
		cols:  append([]string(nil), columns...),
		index: make(map[string]int, len(columns)),
	}
	for i, c := range t.cols {
		t.index[c] = i
	}
	return t
}

// FromRows creates a table from a column layout and row data. Rows shorter
// than the column set are padded with Missing; nil cells become Missing.
func FromRows(columns []string, rows [][]any) *Table {
	t := New(columns...)
	for _, cells := range rows {
		row := make([]any, len(t.cols))
		for i := range row {
			if i < len(cells) && cells[i] != nil {
				row[i] = cells[i]
			} else {
				row[i] = Missing
			}
		}
		t.rows = append(t.rows, row)
	}
	return t
}

// Columns returns the column names in order. The slice is shared; callers
// must not modify it.
func (t *Table) Columns() []string { return t.cols }

// Rows returns the row data. Shared with the table; read-only by convention.
func (t *Table) Rows() [][]any { return t.rows }

// RowCount returns the number of rows.
func (t *Table) RowCount() int { return len(t.rows) }

// HasColumn reports whether the table has a column with the given name.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnIndex returns the position of a column, or -1 when absent.
func (t *Table) ColumnIndex(name string) int {
	i, ok := t.index[name]
	if !ok {
		return -1
	}
	return i
}

// At returns the cell at row r in the named column. Missing when the row is
// out of range or the column absent.
func (t *Table) At(r int, column string) any {
	i, ok := t.index[column]
	if !ok || r < 0 || r >= len(t.rows) {
		return Missing
	}
	return t.rows[r][i]
}

// addColumn registers a column, returning its position.
func (t *Table) addColumn(name string) int {
	if i, ok := t.index[name]; ok {
		return i
	}
	t.index[name] = len(t.cols)
	t.cols = append(t.cols, name)
	return len(t.cols) - 1
}

// Concat stacks tables vertically, unioning columns in first-seen order.
// Cells a source table does not have come out as Missing. Nil inputs and
// zero-column tables are skipped.
func Concat(tables ...*Table) *Table {
	out := &Table{index: make(map[string]int)}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.cols {
			out.addColumn(c)
		}
	}
	for _, t := range tables {
		if t == nil || len(t.cols) == 0 {
			continue
		}
		dst := make([]int, len(t.cols))
		for i, c := range t.cols {
			dst[i] = out.index[c]
		}
		for _, row := range t.rows {
			merged := missingRow(len(out.cols))
			for i, cell := range row {
				merged[dst[i]] = cell
			}
			out.rows = append(out.rows, merged)
		}
	}
	return out
}

// WithColumn returns a copy of the table with the named column set to the
// given values: appended when new, replaced when already present. Values
// shorter than the row count pad with Missing.
func WithColumn(t *Table, name string, values []any) *Table {
	out := New(t.cols...)
	pos := out.addColumn(name)
	out.rows = make([][]any, len(t.rows))
	for i, row := range t.rows {
		merged := make([]any, len(out.cols))
		copy(merged, row)
		var v any = Missing
		if i < len(values) && values[i] != nil {
			v = values[i]
		}
		merged[pos] = v
		out.rows[i] = merged
	}
	return out
}

func missingRow(n int) []any {
	row := make([]any, n)
	for i := range row {
		row[i] = Missing
	}
	return row
}

// ---------------------------------------------------------------------------
// SchemaError
// ---------------------------------------------------------------------------

// SchemaError reports an operation that referenced a column the table does
// not have, or a predicate that does not fit the column's type. It is raised
// before any row is visited.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema: column %q: %s", e.Column, e.Reason)
}

// ---------------------------------------------------------------------------
// Cell coercion
// ---------------------------------------------------------------------------

// CanonicalString renders a scalar cell in its canonical string form:
// strings as-is, numbers without exponent notation, booleans as true/false.
// ok is false for Missing and for non-scalar cells.
func CanonicalString(v any) (string, bool) {
	switch x := v.(type) {
	case missingValue:
		return "", false
	case nil:
		return "", false
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		return "", false
	}
}

// asNumber coerces a cell to float64. Strings are parsed; booleans and
// non-scalar cells do not coerce.
func asNumber(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// Timestamp layouts accepted in cells, tried in order.
var timeLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// asTime coerces a cell to a timestamp.
func asTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, s); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
