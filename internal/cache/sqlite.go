package cache

import (
	"context"
	"database/sql"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists the cache in a local SQLite database. Preferred over
// the CSV table for large datasets: Save rewrites the table in one
// transaction instead of rewriting a whole file.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS geocode_cache (
	address TEXT PRIMARY KEY,
	lat     REAL,
	lon     REAL
);
`

// NewSQLite opens (creating if needed) a SQLite cache at the given path.
func NewSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "cache: open sqlite")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck,gosec
			return nil, eris.Wrapf(err, "cache: exec %s", pragma)
		}
	}
	if _, err := db.Exec(sqliteMigration); err != nil {
		db.Close() //nolint:errcheck,gosec
		return nil, eris.Wrap(err, "cache: migrate")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load(ctx context.Context) (map[string]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT address, lat, lon FROM geocode_cache`)
	if err != nil {
		return nil, eris.Wrap(err, "cache: select")
	}
	defer rows.Close() //nolint:errcheck

	entries := make(map[string]Entry)
	for rows.Next() {
		var addr string
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&addr, &lat, &lon); err != nil {
			return nil, eris.Wrap(err, "cache: scan")
		}
		if !lat.Valid || !lon.Valid {
			entries[addr] = Entry{Failed: true}
			continue
		}
		entries[addr] = Entry{Lat: lat.Float64, Lon: lon.Float64}
	}
	return entries, eris.Wrap(rows.Err(), "cache: iterate")
}

func (s *SQLiteStore) Save(ctx context.Context, entries map[string]Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "cache: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	// Wholesale overwrite: the in-memory map is the source of truth.
	if _, err := tx.ExecContext(ctx, `DELETE FROM geocode_cache`); err != nil {
		return eris.Wrap(err, "cache: clear")
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO geocode_cache (address, lat, lon) VALUES (?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "cache: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for addr, e := range entries {
		var lat, lon any
		if !e.Failed {
			lat, lon = e.Lat, e.Lon
		}
		if _, err := stmt.ExecContext(ctx, addr, lat, lon); err != nil {
			return eris.Wrapf(err, "cache: insert %s", addr)
		}
	}
	return eris.Wrap(tx.Commit(), "cache: commit")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
