package render

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docrocket-mad/ns-school-map/internal/model"
)

func TestLoadStyle_MissingFileUsesDefaults(t *testing.T) {
	style, err := LoadStyle(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.InDelta(t, 45.2, style.CenterLat, 1e-9)
	assert.Equal(t, 7, style.Zoom)
	assert.Equal(t, "#2ca02c", style.Colors["current"])
}

func TestLoadStyle_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zoom: 9\ncolors:\n  current: \"#ff0000\"\n"), 0o644))

	style, err := LoadStyle(path)
	require.NoError(t, err)
	assert.Equal(t, 9, style.Zoom)
	assert.Equal(t, "#ff0000", style.Colors["current"])
	assert.Equal(t, "#808080", style.Colors["none"], "unset colors filled from defaults")
}

func TestLoadStyle_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "style.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zoom: [not an int"), 0o644))
	_, err := LoadStyle(path)
	assert.Error(t, err)
}

func TestWritePage(t *testing.T) {
	records := []model.LocationRecord{
		{ID: "1", School: "Elm PS", Address: "123 Main St", Group: "HRCE", Lat: 44.65, Lon: -63.57, Status: model.StatusRecent},
		{ID: "2", School: "Ghost PS", Address: "Nowhere Rd", Lat: model.NoCoordinate(), Lon: model.NoCoordinate(), Status: model.StatusNone},
	}

	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, records, DefaultStyle(), false))

	html := buf.String()
	assert.Contains(t, html, "Elm PS")
	assert.NotContains(t, html, "Ghost PS", "ungeocoded records never render")
	assert.Contains(t, html, "leaflet")
	assert.Contains(t, html, "#1f77b4")
	assert.NotContains(t, html, "Add school", "view-only page has no edit controls")
}

func TestWritePage_Editable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePage(&buf, nil, DefaultStyle(), true))
	html := buf.String()
	assert.Contains(t, html, "Add school")
	assert.True(t, strings.Contains(html, "Undo delete"))
}
