package table_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchboard/pitchboard/internal/table"
)

func TestSummarizeNumericBounds(t *testing.T) {
	tbl := table.FromRows([]string{"speed"}, [][]any{
		{92.4}, {nil}, {88.0}, {"95.1"},
	})

	sums := table.Summarize(tbl, 200)

	require.Len(t, sums, 1)
	s := sums[0]
	assert.Equal(t, "speed", s.Name)
	assert.Equal(t, table.TypeNumber, s.Type)
	require.NotNil(t, s.Min)
	require.NotNil(t, s.Max)
	assert.Equal(t, 88.0, *s.Min)
	assert.Equal(t, 95.1, *s.Max)
	assert.Nil(t, s.Values)
}

func TestSummarizeTimeBounds(t *testing.T) {
	tbl := table.FromRows([]string{"utcDateTime"}, [][]any{
		{"2024-05-01T18:30:00Z"},
		{"2024-05-01T18:00:00Z"},
		{nil},
		{"2024-05-01T19:15:00Z"},
	})

	sums := table.Summarize(tbl, 200)

	require.Len(t, sums, 1)
	s := sums[0]
	assert.Equal(t, table.TypeTime, s.Type)
	require.NotNil(t, s.TimeMin)
	require.NotNil(t, s.TimeMax)
	assert.Equal(t, time.Date(2024, 5, 1, 18, 0, 0, 0, time.UTC), s.TimeMin.UTC())
	assert.Equal(t, time.Date(2024, 5, 1, 19, 15, 0, 0, time.UTC), s.TimeMax.UTC())
	assert.Nil(t, s.Min)
}

func TestSummarizeDistinctValuesFirstSeen(t *testing.T) {
	tbl := table.FromRows([]string{"kind"}, [][]any{
		{"Pitch"}, {"Hit"}, {"Pitch"}, {nil}, {"Hit"},
	})

	sums := table.Summarize(tbl, 200)

	require.Len(t, sums, 1)
	s := sums[0]
	assert.Equal(t, table.TypeString, s.Type)
	assert.Equal(t, []string{"Pitch", "Hit"}, s.Values)
}

func TestSummarizeDropsValuesPastLimit(t *testing.T) {
	tbl := table.FromRows([]string{"name"}, [][]any{
		{"a"}, {"b"}, {"c"},
	})

	sums := table.Summarize(tbl, 2)

	require.Len(t, sums, 1)
	assert.Nil(t, sums[0].Values)

	sums = table.Summarize(tbl, 0)
	assert.Equal(t, []string{"a", "b", "c"}, sums[0].Values)
}

func TestSummarizeAllMissingColumn(t *testing.T) {
	tbl := table.FromRows([]string{"speed", "note"}, [][]any{
		{nil, nil},
		{nil, nil},
	})

	sums := table.Summarize(tbl, 200)

	require.Len(t, sums, 2)
	assert.Nil(t, sums[0].Min)
	assert.Nil(t, sums[0].Max)
	assert.Nil(t, sums[1].Values)
}

func TestSummarizeKeepsColumnOrder(t *testing.T) {
	tbl := table.FromRows([]string{"b", "a", "c"}, [][]any{{1.0, "x", "2024-05-01T00:00:00Z"}})

	sums := table.Summarize(tbl, 200)

	require.Len(t, sums, 3)
	assert.Equal(t, "b", sums[0].Name)
	assert.Equal(t, "a", sums[1].Name)
	assert.Equal(t, "c", sums[2].Name)
}
