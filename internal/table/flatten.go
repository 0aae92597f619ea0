package table

import (
	"sort"
	"strconv"
)

// Flatten converts a sequence of nested records into a table.
//
// Nested object fields become parent<sep>child columns. Arrays of scalars
// expand into indexed columns (tags<sep>0, tags<sep>1, ...); arrays holding
// objects or nested arrays stay opaque single cells. Keys are visited in
// sorted order within each record, and columns appear in the order they are
// first seen across the sequence, so the same input always produces the same
// layout. A record without a value for some column carries Missing there,
// and the row count always equals len(records).
//
// Empty input yields a table with zero rows and zero columns.
func Flatten(records []map[string]any, sep string) *Table {
	if sep == "" {
		sep = "."
	}
	t := &Table{index: make(map[string]int)}

	// First pass registers every column; rows materialize after the full
	// layout is known so heterogeneous records line up.
	flat := make([]map[string]any, len(records))
	for i, rec := range records {
		cells := make(map[string]any)
		flattenInto(t, cells, "", rec, sep)
		flat[i] = cells
	}

	for _, cells := range flat {
		row := make([]any, len(t.cols))
		for j, col := range t.cols {
			if v, ok := cells[col]; ok {
				row[j] = v
			} else {
				row[j] = Missing
			}
		}
		t.rows = append(t.rows, row)
	}
	return t
}

func flattenInto(t *Table, cells map[string]any, prefix string, v any, sep string) {
	switch x := v.(type) {
	case map[string]any:
		// Empty objects and arrays have no leaves and contribute nothing.
		if len(x) == 0 {
			return
		}
		keys := make([]string, 0, len(x))
		for k := range x {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			flattenInto(t, cells, joinKey(prefix, k, sep), x[k], sep)
		}
	case []any:
		if len(x) == 0 {
			return
		}
		for _, el := range x {
			if !isScalar(el) {
				// Record-valued array: kept opaque.
				setCell(t, cells, prefix, x)
				return
			}
		}
		for i, el := range x {
			setCell(t, cells, joinKey(prefix, strconv.Itoa(i), sep), el)
		}
	case nil:
		setCell(t, cells, prefix, Missing)
	default:
		setCell(t, cells, prefix, x)
	}
}

func setCell(t *Table, cells map[string]any, col string, v any) {
	t.addColumn(col)
	if v == nil {
		v = Missing
	}
	cells[col] = v
}

func joinKey(prefix, key, sep string) string {
	if prefix == "" {
		return key
	}
	return prefix + sep + key
}

func isScalar(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return false
	}
	return true
}
