package table_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchboard/pitchboard/internal/table"
)

// records decodes a JSON array the way the API client does, so cells carry
// the same types tables see in production (numbers as float64).
func records(t *testing.T, s string) []map[string]any {
	t.Helper()
	var recs []map[string]any
	require.NoError(t, json.Unmarshal([]byte(s), &recs))
	return recs
}

func TestFlattenNestedObjects(t *testing.T) {
	recs := records(t, `[
		{"playID":"p1","pitcher":{"id":"12","name":"Alice"},"utcDateTime":"2024-05-01T18:00:00Z"}
	]`)

	tbl := table.Flatten(recs, ".")

	assert.Equal(t, []string{"pitcher.id", "pitcher.name", "playID", "utcDateTime"}, tbl.Columns())
	require.Equal(t, 1, tbl.RowCount())
	assert.Equal(t, "Alice", tbl.At(0, "pitcher.name"))
	assert.Equal(t, "12", tbl.At(0, "pitcher.id"))
	assert.Equal(t, "p1", tbl.At(0, "playID"))
}

func TestFlattenUnderscoreSeparator(t *testing.T) {
	recs := records(t, `[{"pitch":{"release":{"relSpeed":92.4,"spinRate":2310}}}]`)

	tbl := table.Flatten(recs, "_")

	assert.Equal(t, []string{"pitch_release_relSpeed", "pitch_release_spinRate"}, tbl.Columns())
	assert.Equal(t, 92.4, tbl.At(0, "pitch_release_relSpeed"))
	assert.Equal(t, 2310.0, tbl.At(0, "pitch_release_spinRate"))
}

func TestFlattenDeterministic(t *testing.T) {
	recs := records(t, `[
		{"b":{"y":2,"x":1},"a":"first","c":[1,2]},
		{"a":"second","d":{"deep":{"leaf":true}}}
	]`)

	first := table.Flatten(recs, ".")
	second := table.Flatten(recs, ".")

	assert.Equal(t, first.Columns(), second.Columns())
	assert.Equal(t, first.Rows(), second.Rows())
}

func TestFlattenHeterogeneousRecords(t *testing.T) {
	recs := records(t, `[
		{"kind":"Pitch","pitch":{"release":{"relSpeed":92.4}}},
		{"kind":"Hit","hit":{"launchSpeed":101.3}}
	]`)

	tbl := table.Flatten(recs, ".")

	require.Equal(t, 2, tbl.RowCount())
	assert.Equal(t, 92.4, tbl.At(0, "pitch.release.relSpeed"))
	assert.True(t, table.IsMissing(tbl.At(0, "hit.launchSpeed")))
	assert.Equal(t, 101.3, tbl.At(1, "hit.launchSpeed"))
	assert.True(t, table.IsMissing(tbl.At(1, "pitch.release.relSpeed")))
}

func TestFlattenLossless(t *testing.T) {
	recs := records(t, `[
		{"id":"a","nested":{"one":1,"two":"2"},"flag":false},
		{"id":"b","nested":{"one":3,"two":"4"},"flag":true}
	]`)

	tbl := table.Flatten(recs, ".")

	require.Equal(t, len(recs), tbl.RowCount())
	assert.Equal(t, 1.0, tbl.At(0, "nested.one"))
	assert.Equal(t, "2", tbl.At(0, "nested.two"))
	assert.Equal(t, false, tbl.At(0, "flag"))
	assert.Equal(t, 3.0, tbl.At(1, "nested.one"))
	assert.Equal(t, "4", tbl.At(1, "nested.two"))
	assert.Equal(t, true, tbl.At(1, "flag"))
}

func TestFlattenScalarArraysExpand(t *testing.T) {
	recs := records(t, `[{"tags":["fastball","high"]}]`)

	tbl := table.Flatten(recs, ".")

	assert.Equal(t, []string{"tags.0", "tags.1"}, tbl.Columns())
	assert.Equal(t, "fastball", tbl.At(0, "tags.0"))
	assert.Equal(t, "high", tbl.At(0, "tags.1"))
}

func TestFlattenRecordArrayStaysOpaque(t *testing.T) {
	recs := records(t, `[{"events":[{"x":1},{"x":2}]}]`)

	tbl := table.Flatten(recs, ".")

	require.Equal(t, []string{"events"}, tbl.Columns())
	assert.False(t, table.IsMissing(tbl.At(0, "events")))
}

func TestFlattenNullBecomesMissing(t *testing.T) {
	recs := records(t, `[{"sessionName":null,"sessionId":"s1"}]`)

	tbl := table.Flatten(recs, ".")

	assert.True(t, table.IsMissing(tbl.At(0, "sessionName")))
	assert.Equal(t, "s1", tbl.At(0, "sessionId"))
}

func TestFlattenEmptyInput(t *testing.T) {
	tbl := table.Flatten(nil, ".")

	assert.Equal(t, 0, tbl.RowCount())
	assert.Empty(t, tbl.Columns())
}

func TestFlattenRowCountMatchesInput(t *testing.T) {
	recs := records(t, `[{"a":1},{},{"b":2}]`)

	tbl := table.Flatten(recs, ".")

	assert.Equal(t, 3, tbl.RowCount())
}
