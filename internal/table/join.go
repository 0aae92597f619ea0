package table

import (
	"fmt"
	"strings"
)

// JoinMode selects which unmatched rows survive a join.
type JoinMode string

const (
	JoinInner JoinMode = "inner"
	JoinLeft  JoinMode = "left"
	JoinRight JoinMode = "right"
)

// ParseJoinMode validates a join mode string.
func ParseJoinMode(s string) (JoinMode, error) {
	switch m := JoinMode(strings.ToLower(s)); m {
	case JoinInner, JoinLeft, JoinRight:
		return m, nil
	}
	return "", fmt.Errorf("unknown join mode %q (want inner, left or right)", s)
}

// Suffixes disambiguates column names present on both sides of a join.
type Suffixes struct {
	Left  string
	Right string
}

// Join combines two tables on one key column from each side.
//
// Every output row is one (left, right) pair whose key cells are equal in
// canonical string form; duplicate keys produce the full cross-product of
// matches, never just the first. Inner drops unmatched rows on both sides;
// left keeps every left row, pairing unmatched ones with an all-Missing
// right half; right is symmetric. Any column name present on both sides is
// renamed with the suffix pair, except that when both sides join on the same
// key name that key appears once. Rows whose key cell is Missing never match
// anything.
//
// A key column absent from its table is a *SchemaError, detected before any
// rows are compared.
func Join(left, right *Table, leftKey, rightKey string, mode JoinMode, sfx Suffixes) (*Table, error) {
	li, ok := left.index[leftKey]
	if !ok {
		return nil, &SchemaError{Column: leftKey, Reason: "join key not in left table"}
	}
	ri, ok := right.index[rightKey]
	if !ok {
		return nil, &SchemaError{Column: rightKey, Reason: "join key not in right table"}
	}
	sharedKey := leftKey == rightKey

	// Output layout: left columns first, then right columns minus a shared
	// key. Collisions are suffixed on both sides.
	outCols := make([]string, 0, len(left.cols)+len(right.cols))
	for _, c := range left.cols {
		if right.HasColumn(c) && !(sharedKey && c == leftKey) {
			outCols = append(outCols, c+sfx.Left)
		} else {
			outCols = append(outCols, c)
		}
	}
	rightPos := make([]int, 0, len(right.cols)) // source index per right output column
	for j, c := range right.cols {
		if sharedKey && c == rightKey {
			continue
		}
		if left.HasColumn(c) {
			outCols = append(outCols, c+sfx.Right)
		} else {
			outCols = append(outCols, c)
		}
		rightPos = append(rightPos, j)
	}
	out := New(outCols...)

	switch mode {
	case JoinInner, JoinLeft:
		matches := keyIndex(right, ri)
		for _, lrow := range left.rows {
			var group []int
			if k, ok := CanonicalString(lrow[li]); ok {
				group = matches[k]
			}
			if len(group) == 0 {
				if mode == JoinLeft {
					out.rows = append(out.rows, combineRows(lrow, nil, rightPos))
				}
				continue
			}
			for _, r := range group {
				out.rows = append(out.rows, combineRows(lrow, right.rows[r], rightPos))
			}
		}
	case JoinRight:
		matches := keyIndex(left, li)
		for _, rrow := range right.rows {
			var group []int
			if k, ok := CanonicalString(rrow[ri]); ok {
				group = matches[k]
			}
			if len(group) == 0 {
				row := combineRows(missingRow(len(left.cols)), rrow, rightPos)
				if sharedKey {
					// The merged key column lives in the left half.
					row[li] = rrow[ri]
				}
				out.rows = append(out.rows, row)
				continue
			}
			for _, l := range group {
				out.rows = append(out.rows, combineRows(left.rows[l], rrow, rightPos))
			}
		}
	default:
		return nil, fmt.Errorf("unknown join mode %q", mode)
	}
	return out, nil
}

// keyIndex maps canonical key values to the row indexes holding them.
func keyIndex(t *Table, keyPos int) map[string][]int {
	idx := make(map[string][]int, len(t.rows))
	for i, row := range t.rows {
		if k, ok := CanonicalString(row[keyPos]); ok {
			idx[k] = append(idx[k], i)
		}
	}
	return idx
}

// combineRows lays out a left row followed by the selected right columns.
// A nil right row fills with Missing.
func combineRows(lrow, rrow []any, rightPos []int) []any {
	row := make([]any, 0, len(lrow)+len(rightPos))
	row = append(row, lrow...)
	for _, j := range rightPos {
		if rrow == nil {
			row = append(row, Missing)
		} else {
			row = append(row, rrow[j])
		}
	}
	return row
}
