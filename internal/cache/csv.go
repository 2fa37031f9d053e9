package cache

import (
	"context"
	"encoding/csv"
	"os"
	"sort"
	"strconv"

	"github.com/rotisserie/eris"
)

// CSVStore persists the cache as the legacy three-column table
// address,lat,lon with blank coordinates marking a recorded failure.
type CSVStore struct {
	path string
}

// NewCSV returns a CSVStore backed by the file at path.
func NewCSV(path string) *CSVStore {
	return &CSVStore{path: path}
}

func (s *CSVStore) Load(ctx context.Context) (map[string]Entry, error) {
	f, err := os.Open(s.path)
	if os.IsNotExist(err) {
		return map[string]Entry{}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "cache: open csv")
	}
	defer f.Close() //nolint:errcheck

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, eris.Wrap(err, "cache: read csv")
	}

	entries := make(map[string]Entry, len(rows))
	for i, row := range rows {
		if i == 0 && len(row) > 0 && row[0] == "address" {
			continue // header
		}
		if len(row) < 3 || row[0] == "" {
			continue
		}
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "cache: load cancelled")
		}

		lat, latErr := strconv.ParseFloat(row[1], 64)
		lon, lonErr := strconv.ParseFloat(row[2], 64)
		if latErr != nil || lonErr != nil {
			entries[row[0]] = Entry{Failed: true}
			continue
		}
		entries[row[0]] = Entry{Lat: lat, Lon: lon}
	}
	return entries, nil
}

func (s *CSVStore) Save(ctx context.Context, entries map[string]Entry) error {
	if ctx.Err() != nil {
		return eris.Wrap(ctx.Err(), "cache: save cancelled")
	}

	tmp := s.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return eris.Wrap(err, "cache: create csv")
	}

	writer := csv.NewWriter(f)
	if err := writer.Write([]string{"address", "lat", "lon"}); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrap(err, "cache: write header")
	}

	// Stable output order keeps the file diffable between runs.
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, addr := range keys {
		e := entries[addr]
		row := []string{addr, "", ""}
		if !e.Failed {
			row[1] = strconv.FormatFloat(e.Lat, 'f', -1, 64)
			row[2] = strconv.FormatFloat(e.Lon, 'f', -1, 64)
		}
		if err := writer.Write(row); err != nil {
			f.Close() //nolint:errcheck,gosec
			return eris.Wrap(err, "cache: write row")
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		f.Close() //nolint:errcheck,gosec
		return eris.Wrap(err, "cache: flush csv")
	}
	if err := f.Close(); err != nil {
		return eris.Wrap(err, "cache: close csv")
	}
	return eris.Wrap(os.Rename(tmp, s.path), "cache: replace csv")
}

func (s *CSVStore) Close() error { return nil }
