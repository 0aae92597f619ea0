package table

import (
	"encoding/csv"
	"fmt"
	"io"
)

// WriteCSV encodes the table as CSV: a header row of column names, then one
// line per row. Missing cells become empty fields; quoting follows
// encoding/csv. A zero-column table writes nothing.
func WriteCSV(w io.Writer, t *Table) error {
	if len(t.cols) == 0 {
		return nil
	}
	cw := csv.NewWriter(w)
	if err := cw.Write(t.cols); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.cols))
	for _, row := range t.rows {
		for i, cell := range row {
			record[i] = cellString(cell)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func cellString(v any) string {
	if IsMissing(v) {
		return ""
	}
	if s, ok := CanonicalString(v); ok {
		return s
	}
	// Opaque cells (record-valued arrays) keep a readable fallback form.
	return fmt.Sprint(v)
}
