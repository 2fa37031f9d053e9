package dataset

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/docrocket-mad/ns-school-map/internal/address"
	"github.com/docrocket-mad/ns-school-map/internal/cache"
	"github.com/docrocket-mad/ns-school-map/internal/model"
	"github.com/docrocket-mad/ns-school-map/pkg/geocode"
)

// BuildOptions configures one Build run.
type BuildOptions struct {
	// RegeocodeFailed re-attempts addresses whose cached entry is a
	// recorded failure instead of reusing it.
	RegeocodeFailed bool

	// NoCache skips both cache reads and writes.
	NoCache bool

	// FlushEvery saves the cache after this many new entries, bounding how
	// much a mid-run crash can lose. 0 disables incremental saves; the
	// final save always happens.
	FlushEvery int

	// Max limits how many rows are processed (0 = all).
	Max int
}

// FailedRow is one row that never resolved to coordinates.
type FailedRow struct {
	School     string `csv:"School"`
	Address    string `csv:"Address"`
	Normalized string `csv:"Normalized"`
}

// BuildResult holds the three outputs of a run: records for the map, the
// failures, and the full reference table including ungeocoded rows.
type BuildResult struct {
	Records   []model.LocationRecord
	Failed    []FailedRow
	Reference []model.LocationRecord
}

// Builder joins normalized addresses, the cache, and the geocoding client
// into one row-per-location table. Sequential by design: the client's rate
// limit is the only temporal constraint.
type Builder struct {
	geo   geocode.Client
	store cache.Store
}

// NewBuilder creates a Builder over the given client and cache store.
func NewBuilder(geo geocode.Client, store cache.Store) *Builder {
	return &Builder{geo: geo, store: store}
}

// Build resolves coordinates for every row. Resolution order: trusted
// numeric coordinates on the row, cache hit, cached failure (reused unless
// RegeocodeFailed), fresh geocode written back to the cache either way.
func (b *Builder) Build(ctx context.Context, rows []Row, opts BuildOptions) (*BuildResult, error) {
	if opts.Max > 0 && len(rows) > opts.Max {
		rows = rows[:opts.Max]
	}

	entries := map[string]cache.Entry{}
	if !opts.NoCache {
		loaded, err := b.store.Load(ctx)
		if err != nil {
			return nil, eris.Wrap(err, "dataset: load cache")
		}
		entries = loaded
	}

	result := &BuildResult{}
	newEntries := 0

	for i, row := range rows {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "dataset: build cancelled")
		}

		query := address.Normalize(row.Address)
		lat, lon, ok := b.resolve(ctx, row, query, entries, opts, &newEntries)

		rec := model.LocationRecord{
			ID:      uuid.New().String(),
			School:  row.School,
			Address: row.Address,
			Group:   row.Group,
			Lat:     lat,
			Lon:     lon,
			Status:  model.DeriveStatus(row.Status, row.RecentRel, row.CurrentWork),
		}
		if !ok {
			rec.Lat = model.NoCoordinate()
			rec.Lon = model.NoCoordinate()
			result.Failed = append(result.Failed, FailedRow{
				School:     row.School,
				Address:    row.Address,
				Normalized: query,
			})
		} else {
			result.Records = append(result.Records, rec)
		}
		result.Reference = append(result.Reference, rec)

		if !opts.NoCache && opts.FlushEvery > 0 && newEntries >= opts.FlushEvery {
			if err := b.store.Save(ctx, entries); err != nil {
				return nil, eris.Wrap(err, "dataset: flush cache")
			}
			newEntries = 0
		}

		if (i+1)%25 == 0 {
			zap.L().Info("geocoding progress",
				zap.Int("done", i+1),
				zap.Int("total", len(rows)),
				zap.Int("failed", len(result.Failed)),
			)
		}
	}

	if !opts.NoCache {
		if err := b.store.Save(ctx, entries); err != nil {
			return nil, eris.Wrap(err, "dataset: save cache")
		}
	}

	zap.L().Info("build complete",
		zap.Int("records", len(result.Records)),
		zap.Int("failed", len(result.Failed)),
	)
	return result, nil
}

// resolve returns coordinates for one row, mutating entries and newEntries
// as cache writes happen. ok=false marks a definitive failure.
func (b *Builder) resolve(ctx context.Context, row Row, query string, entries map[string]cache.Entry, opts BuildOptions, newEntries *int) (lat, lon float64, ok bool) {
	// Pre-existing numeric coordinates are trusted as-is.
	if lat, lon, ok := parseCoords(row.Lat, row.Lon); ok {
		if !opts.NoCache {
			entries[query] = cache.Entry{Lat: lat, Lon: lon}
			*newEntries++
		}
		return lat, lon, true
	}

	if query == "" {
		return 0, 0, false // unaddressable
	}

	if !opts.NoCache {
		if e, hit := entries[query]; hit {
			if !e.Failed {
				return e.Lat, e.Lon, true
			}
			if !opts.RegeocodeFailed {
				return 0, 0, false // recorded failure reused
			}
		}
	}

	result, err := b.geo.Geocode(ctx, query)
	if err != nil {
		// Only cancellation reaches here; treat as failure and let the
		// outer loop notice the dead context.
		return 0, 0, false
	}

	if !opts.NoCache {
		e := cache.Entry{Lat: result.Lat, Lon: result.Lon, Failed: !result.Matched}
		if !result.Matched {
			e.Lat, e.Lon = 0, 0
		}
		entries[query] = e
		*newEntries++
	}

	if !result.Matched {
		return 0, 0, false
	}
	return result.Lat, result.Lon, true
}

// parseCoords validates pre-existing coordinate cells. Malformed values are
// treated as absent.
func parseCoords(latRaw, lonRaw string) (lat, lon float64, ok bool) {
	if latRaw == "" || lonRaw == "" {
		return 0, 0, false
	}
	lat, latErr := strconv.ParseFloat(latRaw, 64)
	lon, lonErr := strconv.ParseFloat(lonRaw, 64)
	if latErr != nil || lonErr != nil {
		return 0, 0, false
	}
	return lat, lon, true
}
