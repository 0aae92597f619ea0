package main

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitchboard/pitchboard/internal/table"
)

func TestBuildFlagFiltersWhere(t *testing.T) {
	filters, err := buildFlagFilters([]string{"kind=Pitch,Hit", "pitcher.throws=Right"}, nil, nil, "", "", "", "")

	require.NoError(t, err)
	require.Len(t, filters, 2)
	assert.Equal(t, table.Filter{Column: "kind", Kind: table.FilterIn, Values: []string{"Pitch", "Hit"}}, filters[0])
	assert.Equal(t, table.Filter{Column: "pitcher.throws", Kind: table.FilterIn, Values: []string{"Right"}}, filters[1])
}

func TestBuildFlagFiltersRangeOpenBounds(t *testing.T) {
	filters, err := buildFlagFilters(nil, []string{"speed=90:95", "spin=2200:", "ext=:6.5"}, nil, "", "", "", "")

	require.NoError(t, err)
	require.Len(t, filters, 3)

	assert.Equal(t, table.FilterRange, filters[0].Kind)
	require.NotNil(t, filters[0].Min)
	require.NotNil(t, filters[0].Max)
	assert.Equal(t, 90.0, *filters[0].Min)
	assert.Equal(t, 95.0, *filters[0].Max)

	assert.Nil(t, filters[1].Max)
	require.NotNil(t, filters[1].Min)
	assert.Equal(t, 2200.0, *filters[1].Min)

	assert.Nil(t, filters[2].Min)
	require.NotNil(t, filters[2].Max)
	assert.Equal(t, 6.5, *filters[2].Max)
}

func TestBuildFlagFiltersContains(t *testing.T) {
	filters, err := buildFlagFilters(nil, nil, []string{"pitcher.name=rodr"}, "", "", "", "")

	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, table.Filter{Column: "pitcher.name", Kind: table.FilterContains, Substring: "rodr"}, filters[0])
}

func TestBuildFlagFiltersTimeWindowDefaultsToSortColumn(t *testing.T) {
	filters, err := buildFlagFilters(nil, nil, nil, "2025-05-01T18:00:00Z", "2025-05-01", "", "")

	require.NoError(t, err)
	require.Len(t, filters, 1)
	f := filters[0]
	assert.Equal(t, "utcDateTime", f.Column)
	assert.Equal(t, table.FilterTimeRange, f.Kind)
	require.NotNil(t, f.From)
	require.NotNil(t, f.To)
	assert.Equal(t, time.Date(2025, 5, 1, 18, 0, 0, 0, time.UTC), f.From.UTC())
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), f.To.UTC())

	filters, err = buildFlagFilters(nil, nil, nil, "2025-05-01", "", "pitchReleaseTime", "ignored")
	require.NoError(t, err)
	require.Len(t, filters, 1)
	assert.Equal(t, "pitchReleaseTime", filters[0].Column)
	assert.Nil(t, filters[0].To)
}

func TestBuildFlagFiltersOrderAcrossGroups(t *testing.T) {
	filters, err := buildFlagFilters(
		[]string{"kind=Pitch"},
		[]string{"speed=90:95"},
		[]string{"batter.name=an"},
		"2025-05-01", "", "", "custom",
	)

	require.NoError(t, err)
	require.Len(t, filters, 4)
	assert.Equal(t, table.FilterIn, filters[0].Kind)
	assert.Equal(t, table.FilterRange, filters[1].Kind)
	assert.Equal(t, table.FilterContains, filters[2].Kind)
	assert.Equal(t, table.FilterTimeRange, filters[3].Kind)
	assert.Equal(t, "custom", filters[3].Column)
}

func TestBuildFlagFiltersRejectsMalformed(t *testing.T) {
	cases := []struct {
		name                    string
		where, ranges, contains []string
		since                   string
	}{
		{name: "where missing equals", where: []string{"kindPitch"}},
		{name: "where empty column", where: []string{"=Pitch"}},
		{name: "range missing colon", ranges: []string{"speed=90"}},
		{name: "range both bounds open", ranges: []string{"speed=:"}},
		{name: "range non-numeric bound", ranges: []string{"speed=fast:95"}},
		{name: "contains missing equals", contains: []string{"name"}},
		{name: "bad since", since: "yesterday"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := buildFlagFilters(tc.where, tc.ranges, tc.contains, tc.since, "", "", "")
			assert.Error(t, err)
		})
	}
}
