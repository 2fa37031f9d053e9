package render

import (
	_ "embed"
	"encoding/json"
	"html/template"
	"io"

	"github.com/rotisserie/eris"

	"github.com/docrocket-mad/ns-school-map/internal/model"
	"github.com/docrocket-mad/ns-school-map/internal/view"
)

//go:embed page.html.tmpl
var pageSource string

var pageTemplate = template.Must(template.New("page").Parse(pageSource))

// PageData is what the map template consumes.
type PageData struct {
	Style   Style
	Records template.JS
	Groups  template.JS
	Colors  template.JS
	// Editable enables the session API controls; the static artifact from
	// the build command is view-only.
	Editable bool
}

// WritePage renders the Leaflet page. Records without coordinates are left
// out; they exist only in the CSV exports.
func WritePage(w io.Writer, records []model.LocationRecord, style Style, editable bool) error {
	placeable := make([]model.LocationRecord, 0, len(records))
	for _, rec := range records {
		if rec.HasCoordinates() {
			placeable = append(placeable, rec)
		}
	}

	recordsJSON, err := json.Marshal(placeable)
	if err != nil {
		return eris.Wrap(err, "render: marshal records")
	}
	groups := view.Groups(placeable)
	if groups == nil {
		groups = []string{}
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return eris.Wrap(err, "render: marshal groups")
	}
	colorsJSON, err := json.Marshal(style.Colors)
	if err != nil {
		return eris.Wrap(err, "render: marshal colors")
	}

	data := PageData{
		Style:    style,
		Records:  template.JS(recordsJSON),
		Groups:   template.JS(groupsJSON),
		Colors:   template.JS(colorsJSON),
		Editable: editable,
	}
	return eris.Wrap(pageTemplate.Execute(w, data), "render: execute page")
}
