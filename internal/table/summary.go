package table

import "time"

// ColumnSummary describes one column for building filter widgets: the
// inferred type plus value bounds for numeric and time columns, or the
// distinct value set for discrete ones.
type ColumnSummary struct {
	Name    string     `json:"name"`
	Type    ColumnType `json:"type"`
	Min     *float64   `json:"min,omitempty"`
	Max     *float64   `json:"max,omitempty"`
	TimeMin *time.Time `json:"timeMin,omitempty"`
	TimeMax *time.Time `json:"timeMax,omitempty"`
	Values  []string   `json:"values,omitempty"`
}

// Summarize computes a ColumnSummary for every column. Distinct values are
// collected in first-seen order for string columns and omitted once a column
// exceeds maxDistinct distinct values (0 means no limit).
func Summarize(t *Table, maxDistinct int) []ColumnSummary {
	out := make([]ColumnSummary, 0, len(t.cols))
	for pos, name := range t.cols {
		kind, _ := InferColumnType(t, name)
		s := ColumnSummary{Name: name, Type: kind}
		switch kind {
		case TypeNumber:
			var lo, hi float64
			found := false
			for _, row := range t.rows {
				n, ok := asNumber(row[pos])
				if !ok {
					continue
				}
				if !found || n < lo {
					lo = n
				}
				if !found || n > hi {
					hi = n
				}
				found = true
			}
			if found {
				min, max := lo, hi
				s.Min, s.Max = &min, &max
			}
		case TypeTime:
			var lo, hi time.Time
			found := false
			for _, row := range t.rows {
				ts, ok := asTime(row[pos])
				if !ok {
					continue
				}
				if !found || ts.Before(lo) {
					lo = ts
				}
				if !found || ts.After(hi) {
					hi = ts
				}
				found = true
			}
			if found {
				from, to := lo, hi
				s.TimeMin, s.TimeMax = &from, &to
			}
		default:
			seen := make(map[string]struct{})
			var values []string
			for _, row := range t.rows {
				v, ok := CanonicalString(row[pos])
				if !ok {
					continue
				}
				if _, dup := seen[v]; dup {
					continue
				}
				seen[v] = struct{}{}
				values = append(values, v)
				if maxDistinct > 0 && len(values) > maxDistinct {
					values = nil
					break
				}
			}
			s.Values = values
		}
		out = append(out, s)
	}
	return out
}
