// Package cache persists geocoding results across runs, keyed by normalized
// address. A recorded failure is distinct from an address never tried, so a
// run can skip known-bad addresses instead of re-querying the service.
package cache

import (
	"context"
	"strings"
)

// Entry is one cached geocoding outcome. Failed entries carry no coordinates.
type Entry struct {
	Lat    float64
	Lon    float64
	Failed bool
}

// Store is a durable query→coordinate mapping. Load on a missing store yields
// an empty map, not an error. Save overwrites the store wholesale; callers
// merge in-memory updates first and decide the flush cadence. Single-writer,
// single-process use per invocation — no internal locking.
type Store interface {
	Load(ctx context.Context) (map[string]Entry, error)
	Save(ctx context.Context, entries map[string]Entry) error
	Close() error
}

// Open picks a backend by path extension: .db/.sqlite/.sqlite3 opens a SQLite
// store, anything else the legacy CSV table.
func Open(path string) (Store, error) {
	lower := strings.ToLower(path)
	if strings.HasSuffix(lower, ".db") || strings.HasSuffix(lower, ".sqlite") || strings.HasSuffix(lower, ".sqlite3") {
		return NewSQLite(path)
	}
	return NewCSV(path), nil
}
