package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseStatus_Canonical(t *testing.T) {
	assert.Equal(t, StatusNone, ParseStatus("none"))
	assert.Equal(t, StatusRecent, ParseStatus("recent"))
	assert.Equal(t, StatusCurrent, ParseStatus("current"))
}

func TestParseStatus_LegacyValues(t *testing.T) {
	assert.Equal(t, StatusCurrent, ParseStatus("active"))
	assert.Equal(t, StatusCurrent, ParseStatus("both"))
	assert.Equal(t, StatusCurrent, ParseStatus("  Both "))
}

func TestParseStatus_UnrecognizedCoercesToNone(t *testing.T) {
	for _, raw := range []string{"", "  ", "maybe", "CURRENTLY", "n/a"} {
		assert.Equal(t, StatusNone, ParseStatus(raw), "input %q", raw)
	}
}

func TestParseStatus_CaseInsensitive(t *testing.T) {
	assert.Equal(t, StatusRecent, ParseStatus("RECENT"))
	assert.Equal(t, StatusCurrent, ParseStatus("Current"))
}

func TestDeriveStatus_ExplicitWins(t *testing.T) {
	assert.Equal(t, StatusRecent, DeriveStatus("recent", "", "yes"))
	assert.Equal(t, StatusNone, DeriveStatus("garbage", "yes", "yes"))
}

func TestDeriveStatus_LegacyColumns(t *testing.T) {
	assert.Equal(t, StatusCurrent, DeriveStatus("", "1", "true"))
	assert.Equal(t, StatusCurrent, DeriveStatus("", "", "y"))
	assert.Equal(t, StatusRecent, DeriveStatus("", "yes", ""))
	assert.Equal(t, StatusNone, DeriveStatus("", "no", "0"))
}

func TestLocationRecord_HasCoordinates(t *testing.T) {
	rec := LocationRecord{Lat: 44.65, Lon: -63.57}
	assert.True(t, rec.HasCoordinates())

	rec.Lat = NoCoordinate()
	assert.False(t, rec.HasCoordinates())

	rec = LocationRecord{Lat: 44.65, Lon: NoCoordinate()}
	assert.False(t, rec.HasCoordinates())
}
