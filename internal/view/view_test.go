package view

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrocket-mad/ns-school-map/internal/model"
)

func sample() []model.LocationRecord {
	return []model.LocationRecord{
		{ID: "1", School: "Elm PS", Address: "123 Main St, Halifax", Group: "HRCE", Lat: 44.65, Lon: -63.57, Status: model.StatusRecent},
		{ID: "2", School: "Oak PS", Address: "5 Oak Ave, Wolfville", Group: "AVRCE", Lat: 45.09, Lon: -64.36, Status: model.StatusCurrent},
		{ID: "3", School: "Pine PS", Address: "9 Pine Rd, Sydney", Group: "CBVRCE", Lat: 46.14, Lon: -60.18, Status: model.StatusNone},
		{ID: "4", School: "Ghost PS", Address: "Nowhere Rd", Group: "HRCE", Lat: model.NoCoordinate(), Lon: model.NoCoordinate(), Status: model.StatusNone},
	}
}

func TestDefaultFilterShowsAllPlaceable(t *testing.T) {
	visible := DefaultFilter().Apply(sample())
	require.Len(t, visible, 3)
	for _, rec := range visible {
		assert.True(t, rec.HasCoordinates())
	}
}

func TestFilter_AllStatusesOffHidesEverything(t *testing.T) {
	f := Filter{Statuses: map[model.Status]bool{}}
	assert.Empty(t, f.Apply(sample()))
}

func TestFilter_StatusSubset(t *testing.T) {
	f := DefaultFilter()
	f.Statuses = map[model.Status]bool{model.StatusCurrent: true}

	visible := f.Apply(sample())
	require.Len(t, visible, 1)
	assert.Equal(t, "Oak PS", visible[0].School)
}

func TestFilter_Groups(t *testing.T) {
	f := DefaultFilter()
	f.Groups = map[string]bool{"AVRCE": true, "CBVRCE": true}

	visible := f.Apply(sample())
	require.Len(t, visible, 2)
	assert.Equal(t, "Oak PS", visible[0].School)
	assert.Equal(t, "Pine PS", visible[1].School)
}

func TestFilter_QueryMatchesSchoolAndAddress(t *testing.T) {
	f := DefaultFilter()
	f.Query = "elm"
	visible := f.Apply(sample())
	require.Len(t, visible, 1)
	assert.Equal(t, "Elm PS", visible[0].School)

	f.Query = "sydney"
	visible = f.Apply(sample())
	require.Len(t, visible, 1)
	assert.Equal(t, "Pine PS", visible[0].School)
}

func TestFilter_ClearingRestoresFullSet(t *testing.T) {
	f := DefaultFilter()
	f.Query = "elm"
	f.Groups = map[string]bool{"HRCE": true}
	require.Len(t, f.Apply(sample()), 1)

	f.Query = ""
	f.Groups = nil
	assert.Len(t, f.Apply(sample()), 3)
}

func TestFilter_UngeocodedNeverVisible(t *testing.T) {
	f := DefaultFilter()
	f.Query = "ghost"
	assert.Empty(t, f.Apply(sample()))
}

func TestSortBySchool(t *testing.T) {
	records := []model.LocationRecord{
		{School: "oak PS"},
		{School: "École Beaubassin"},
		{School: "Ash PS"},
	}
	SortBySchool(records)
	assert.Equal(t, "Ash PS", records[0].School)
	assert.Equal(t, "École Beaubassin", records[1].School)
	assert.Equal(t, "oak PS", records[2].School)
}

func TestGroups(t *testing.T) {
	groups := Groups(sample())
	assert.Equal(t, []string{"AVRCE", "CBVRCE", "HRCE"}, groups)
}

func TestExportCSV_IgnoresFilterAndQuotesCommas(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ExportCSV(&buf, sample()))

	rows, err := csv.NewReader(bytes.NewReader(buf.Bytes())).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 5, "every record exports, placeable or not")

	assert.Equal(t, exportHeader, rows[0])
	assert.Equal(t, []string{"Elm PS", "123 Main St, Halifax", "HRCE", "44.65", "-63.57", "recent"}, rows[1])
	assert.Equal(t, []string{"Ghost PS", "Nowhere Rd", "HRCE", "", "", "none"}, rows[4])
}
