// Package render produces the Leaflet map page from a record set and a
// style configuration.
package render

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// Style controls the look of the generated map: marker colors per status,
// the initial viewport, and the base tile layer.
type Style struct {
	Title       string            `yaml:"title"`
	CenterLat   float64           `yaml:"center_lat"`
	CenterLon   float64           `yaml:"center_lon"`
	Zoom        int               `yaml:"zoom"`
	TileURL     string            `yaml:"tile_url"`
	Attribution string            `yaml:"attribution"`
	Colors      map[string]string `yaml:"colors"`
}

// DefaultStyle centers on mainland Nova Scotia.
func DefaultStyle() Style {
	return Style{
		Title:       "NS School Map",
		CenterLat:   45.2,
		CenterLon:   -62.99,
		Zoom:        7,
		TileURL:     "https://tile.openstreetmap.org/{z}/{x}/{y}.png",
		Attribution: "&copy; OpenStreetMap contributors",
		Colors: map[string]string{
			"none":    "#808080",
			"recent":  "#1f77b4",
			"current": "#2ca02c",
		},
	}
}

// LoadStyle reads a YAML style file, filling unset fields from the default.
// A missing path returns the default style.
func LoadStyle(path string) (Style, error) {
	style := DefaultStyle()
	if path == "" {
		return style, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return style, nil
		}
		return style, eris.Wrap(err, "render: read style")
	}
	if err := yaml.Unmarshal(b, &style); err != nil {
		return style, eris.Wrap(err, "render: parse style")
	}
	for status, color := range DefaultStyle().Colors {
		if style.Colors[status] == "" {
			if style.Colors == nil {
				style.Colors = map[string]string{}
			}
			style.Colors[status] = color
		}
	}
	return style, nil
}
