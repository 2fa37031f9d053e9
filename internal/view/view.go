// Package view implements the read side of the marker collection: filtering,
// search, list ordering, and the CSV export.
package view

import (
	"encoding/csv"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/docrocket-mad/ns-school-map/internal/model"
)

// Filter selects which records are visible on the map and in the list. The
// zero value with DefaultFilter's statuses shows everything.
type Filter struct {
	// Statuses is the set of visible statuses. An empty set hides everything.
	Statuses map[model.Status]bool
	// Groups limits visibility to the named groups; empty means all groups.
	Groups map[string]bool
	// Query is a case-insensitive substring match over school and address.
	Query string
}

// DefaultFilter shows all three statuses, all groups, no search.
func DefaultFilter() Filter {
	return Filter{
		Statuses: map[model.Status]bool{
			model.StatusNone:    true,
			model.StatusRecent:  true,
			model.StatusCurrent: true,
		},
	}
}

// Visible reports whether a record passes the filter. Records without
// coordinates are never visible; they only live in exports.
func (f Filter) Visible(rec model.LocationRecord) bool {
	if !rec.HasCoordinates() {
		return false
	}
	if !f.Statuses[rec.Status] {
		return false
	}
	if len(f.Groups) > 0 && !f.Groups[rec.Group] {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(rec.School), q) &&
			!strings.Contains(strings.ToLower(rec.Address), q) {
			return false
		}
	}
	return true
}

// Apply returns the records passing the filter, in input order.
func (f Filter) Apply(records []model.LocationRecord) []model.LocationRecord {
	out := make([]model.LocationRecord, 0, len(records))
	for _, rec := range records {
		if f.Visible(rec) {
			out = append(out, rec)
		}
	}
	return out
}

// SortBySchool orders records by school name using locale-aware collation,
// so "École" sorts with the Es.
func SortBySchool(records []model.LocationRecord) {
	c := collate.New(language.English, collate.IgnoreCase)
	sort.SliceStable(records, func(i, j int) bool {
		return c.CompareString(records[i].School, records[j].School) < 0
	})
}

// Groups returns the distinct group names in sorted order.
func Groups(records []model.LocationRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range records {
		if rec.Group == "" || seen[rec.Group] {
			continue
		}
		seen[rec.Group] = true
		out = append(out, rec.Group)
	}
	sort.Strings(out)
	return out
}

// exportHeader is the stable column order of the map export.
var exportHeader = []string{"School", "Address", "Group", "lat", "lon", "Status"}

// ExportCSV writes every record, ignoring the active filter; the export is
// the durable artifact of an edit session. Missing coordinates export blank.
func ExportCSV(w io.Writer, records []model.LocationRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(exportHeader); err != nil {
		return eris.Wrap(err, "view: write export header")
	}
	for _, rec := range records {
		row := []string{rec.School, rec.Address, rec.Group, "", "", string(rec.Status)}
		if rec.HasCoordinates() {
			row[3] = strconv.FormatFloat(rec.Lat, 'f', -1, 64)
			row[4] = strconv.FormatFloat(rec.Lon, 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "view: write export row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "view: flush export")
}
