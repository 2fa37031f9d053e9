package dataset

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"github.com/docrocket-mad/ns-school-map/internal/model"
)

// referenceHeader is the stable column order of the reference export.
var referenceHeader = []string{"School", "Address", "Group", "lat", "lon", "Status"}

// WriteReference writes the full reference table, ungeocoded rows included
// with blank coordinates.
func WriteReference(w io.Writer, records []model.LocationRecord) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(referenceHeader); err != nil {
		return eris.Wrap(err, "dataset: write reference header")
	}
	for _, rec := range records {
		row := []string{rec.School, rec.Address, rec.Group, "", "", string(rec.Status)}
		if rec.HasCoordinates() {
			row[3] = strconv.FormatFloat(rec.Lat, 'f', -1, 64)
			row[4] = strconv.FormatFloat(rec.Lon, 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			return eris.Wrap(err, "dataset: write reference row")
		}
	}
	writer.Flush()
	return eris.Wrap(writer.Error(), "dataset: flush reference")
}

// WriteFailed writes the failed-geocodes export.
func WriteFailed(w io.Writer, failed []FailedRow) error {
	b, err := csvutil.Marshal(failed)
	if err != nil {
		return eris.Wrap(err, "dataset: marshal failed rows")
	}
	_, err = w.Write(b)
	return eris.Wrap(err, "dataset: write failed rows")
}
