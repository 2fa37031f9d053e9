// Package dataset loads the tabular school list, joins it with the geocode
// cache and the geocoding client, and emits the exports.
package dataset

import (
	"context"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// Row is one input row before geocoding. Lat/Lon hold the raw cell text;
// non-numeric values are treated as absent downstream.
type Row struct {
	School      string
	Address     string
	Group       string
	Lat         string
	Lon         string
	Status      string
	RecentRel   string
	CurrentWork string
}

// LoadOptions configures column mapping for LoadTable.
type LoadOptions struct {
	SchoolCol   string // default "School"
	AddressCol  string // default "Address"
	DistrictCol string // explicit group column; empty = auto-detect
}

// groupCandidates are tried in order when no explicit group column is given.
var groupCandidates = []string{"Group", "Board", "System", "District"}

// LoadTable reads a CSV or XLSX file into rows. For workbooks every sheet is
// concatenated and the sheet name becomes the group when no group column
// exists. A missing School or Address column is fatal before any network use.
func LoadTable(ctx context.Context, path string, opts LoadOptions) ([]Row, error) {
	opts = applyLoadDefaults(opts)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return loadCSV(ctx, path, opts)
	case ".xlsx", ".xlsm":
		return loadWorkbook(ctx, path, opts)
	default:
		return nil, eris.Errorf("dataset: unsupported input %q (want .csv or .xlsx)", path)
	}
}

func applyLoadDefaults(opts LoadOptions) LoadOptions {
	if opts.SchoolCol == "" {
		opts.SchoolCol = "School"
	}
	if opts.AddressCol == "" {
		opts.AddressCol = "Address"
	}
	return opts
}

// columnIndex maps a header row to column positions, case-insensitively.
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, name := range header {
		idx[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return idx
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[strings.ToLower(name)]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

func (c columnIndex) has(name string) bool {
	_, ok := c[strings.ToLower(name)]
	return ok
}

// groupColumn picks the group column: the explicit one when set, otherwise
// the first candidate present in the header.
func groupColumn(idx columnIndex, opts LoadOptions) string {
	if opts.DistrictCol != "" {
		return opts.DistrictCol
	}
	for _, cand := range groupCandidates {
		if idx.has(cand) {
			return cand
		}
	}
	return ""
}

func requireColumns(idx columnIndex, opts LoadOptions, source string) error {
	for _, col := range []string{opts.SchoolCol, opts.AddressCol} {
		if !idx.has(col) {
			return eris.Errorf("dataset: required column %q not found in %s", col, source)
		}
	}
	return nil
}

func rowFromCells(cells []string, idx columnIndex, groupCol, fallbackGroup string, opts LoadOptions) Row {
	r := Row{
		School:      idx.get(cells, opts.SchoolCol),
		Address:     idx.get(cells, opts.AddressCol),
		Lat:         idx.get(cells, "lat"),
		Lon:         idx.get(cells, "lon"),
		Status:      idx.get(cells, "Status"),
		RecentRel:   idx.get(cells, "Recent Relationship"),
		CurrentWork: idx.get(cells, "Current Work"),
	}
	if groupCol != "" {
		r.Group = idx.get(cells, groupCol)
	}
	if r.Group == "" {
		r.Group = fallbackGroup
	}
	return r
}

func loadCSV(ctx context.Context, path string, opts LoadOptions) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return nil, eris.New("dataset: empty input")
	}
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read header")
	}

	idx := indexHeader(header)
	if err := requireColumns(idx, opts, path); err != nil {
		return nil, err
	}
	groupCol := groupColumn(idx, opts)

	var rows []Row
	for {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataset: load cancelled")
		}
		cells, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "dataset: read row")
		}
		if isBlank(cells) {
			continue
		}
		rows = append(rows, rowFromCells(cells, idx, groupCol, "", opts))
	}
	if len(rows) == 0 {
		return nil, eris.New("dataset: no data rows in input")
	}
	return rows, nil
}

func loadWorkbook(ctx context.Context, path string, opts LoadOptions) ([]Row, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrap(err, "dataset: open workbook")
	}
	if len(f.Sheets) == 0 {
		return nil, eris.New("dataset: no sheets in workbook")
	}

	var rows []Row
	for _, sheet := range f.Sheets {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataset: load cancelled")
		}
		if len(sheet.Rows) < 2 {
			continue
		}

		idx := indexHeader(rowToStrings(sheet.Rows[0]))
		if err := requireColumns(idx, opts, "sheet "+sheet.Name); err != nil {
			return nil, err
		}

		groupCol := groupColumn(idx, opts)
		fallbackGroup := ""
		if groupCol == "" {
			fallbackGroup = sheet.Name
		}

		for _, r := range sheet.Rows[1:] {
			cells := rowToStrings(r)
			if isBlank(cells) {
				continue
			}
			rows = append(rows, rowFromCells(cells, idx, groupCol, fallbackGroup, opts))
		}
	}
	if len(rows) == 0 {
		return nil, eris.New("dataset: no data rows in workbook")
	}
	return rows, nil
}

func rowToStrings(row *xlsx.Row) []string {
	cells := make([]string, len(row.Cells))
	for j, cell := range row.Cells {
		cells[j] = cell.String()
	}
	return cells
}

func isBlank(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
