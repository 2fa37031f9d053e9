// Package markers holds the editable in-memory collection of location
// records and the operations the map UI drives: status changes, adds, moves,
// deletes with undo.
package markers

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/docrocket-mad/ns-school-map/internal/model"
	"github.com/docrocket-mad/ns-school-map/pkg/geocode"
)

// Renderer is the rendering surface the store reports mutations to. It is
// injected at construction; the store never goes looking for one.
type Renderer interface {
	AddMarker(rec model.LocationRecord)
	UpdateMarker(rec model.LocationRecord)
	RemoveMarker(id string)
	ResetMarkers(records []model.LocationRecord)
}

// NopRenderer discards all rendering calls; used when the surface draws
// itself from the record set (e.g. the session API).
type NopRenderer struct{}

func (NopRenderer) AddMarker(model.LocationRecord)      {}
func (NopRenderer) UpdateMarker(model.LocationRecord)   {}
func (NopRenderer) RemoveMarker(string)                 {}
func (NopRenderer) ResetMarkers([]model.LocationRecord) {}

var (
	// ErrNotFound means no record carries the given id.
	ErrNotFound = eris.New("markers: record not found")

	// ErrNothingToUndo means the undo stack is empty; surfaced to the user
	// as a notice, not a failure.
	ErrNothingToUndo = eris.New("markers: nothing to undo")

	// ErrNoPendingMove means CommitMove was called without BeginMove.
	ErrNoPendingMove = eris.New("markers: no pending move")

	// ErrLookupFailed means the interactive address lookup found nothing;
	// the caller may fall back to a clicked or map-center coordinate.
	ErrLookupFailed = eris.New("markers: address lookup failed")
)

// undoEntry records one delete for restoration at its original index.
type undoEntry struct {
	record model.LocationRecord
	index  int
}

// Store is the mutable record collection. All operations are synchronous;
// AddByAddress suspends only its caller on the network lookup while other
// operations stay usable.
type Store struct {
	mu          sync.Mutex
	records     []model.LocationRecord
	undoStack   []undoEntry
	pendingMove string // record id awaiting a new coordinate; "" = none

	geo      geocode.Client
	renderer Renderer
}

// NewStore creates a Store over the initial record set. The renderer and
// geocoding client are required collaborators.
func NewStore(initial []model.LocationRecord, geo geocode.Client, renderer Renderer) *Store {
	records := make([]model.LocationRecord, len(initial))
	copy(records, initial)
	for i := range records {
		if records[i].ID == "" {
			records[i].ID = uuid.New().String()
		}
		records[i].Status = model.ParseStatus(string(records[i].Status))
	}
	return &Store{records: records, geo: geo, renderer: renderer}
}

// Records returns a snapshot of the collection in insertion order.
func (s *Store) Records() []model.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.LocationRecord, len(s.records))
	copy(out, s.records)
	return out
}

// Get returns the record with the given id.
func (s *Store) Get(id string) (model.LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexOf(id); i >= 0 {
		return s.records[i], nil
	}
	return model.LocationRecord{}, ErrNotFound
}

// SetStatus mutates one record's status in place and re-renders only that
// record's marker.
func (s *Store) SetStatus(id string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.records[i].Status = model.ParseStatus(string(status))
	s.renderer.UpdateMarker(s.records[i])
	return nil
}

// Add appends a record, minting an id when absent, and renders its marker.
func (s *Store) Add(rec model.LocationRecord) model.LocationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	rec.Status = model.ParseStatus(string(rec.Status))
	s.records = append(s.records, rec)
	s.renderer.AddMarker(rec)
	return rec
}

// AddByAddress resolves a typed address with a single best-effort lookup and
// appends the record. On lookup failure it returns ErrLookupFailed without
// mutating the store; the caller can retry or fall back to Add with a
// captured coordinate.
func (s *Store) AddByAddress(ctx context.Context, school, addr, group string, status model.Status) (model.LocationRecord, error) {
	result, err := s.geo.Lookup(ctx, addr)
	if err != nil {
		return model.LocationRecord{}, eris.Wrap(err, "markers: lookup")
	}
	if !result.Matched {
		zap.L().Info("address lookup found nothing", zap.String("address", addr))
		return model.LocationRecord{}, ErrLookupFailed
	}

	return s.Add(model.LocationRecord{
		School:  school,
		Address: addr,
		Group:   group,
		Lat:     result.Lat,
		Lon:     result.Lon,
		Status:  status,
	}), nil
}

// BeginMove marks one record as awaiting a new coordinate. Only the next
// CommitMove is affected; everything else proceeds normally.
func (s *Store) BeginMove(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(id) < 0 {
		return ErrNotFound
	}
	s.pendingMove = id
	return nil
}

// CommitMove applies a captured coordinate to the pending record and clears
// the pending state.
func (s *Store) CommitMove(lat, lon float64) (model.LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pendingMove == "" {
		return model.LocationRecord{}, ErrNoPendingMove
	}
	i := s.indexOf(s.pendingMove)
	s.pendingMove = ""
	if i < 0 {
		return model.LocationRecord{}, ErrNotFound
	}
	s.records[i].Lat = lat
	s.records[i].Lon = lon
	s.renderer.UpdateMarker(s.records[i])
	return s.records[i], nil
}

// CancelMove clears any pending move.
func (s *Store) CancelMove() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingMove = ""
}

// PendingMove returns the id awaiting a coordinate, or "".
func (s *Store) PendingMove() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pendingMove
}

// Delete removes a record and pushes it onto the undo stack with its index.
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(id)
	if i < 0 {
		return ErrNotFound
	}
	s.undoStack = append(s.undoStack, undoEntry{record: s.records[i], index: i})
	s.records = append(s.records[:i], s.records[i+1:]...)
	s.renderer.RemoveMarker(id)
	return nil
}

// UndoDelete pops the most recent delete and reinserts the record at its
// original index, or the closest valid one if the collection has shrunk.
func (s *Store) UndoDelete() (model.LocationRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.undoStack) == 0 {
		return model.LocationRecord{}, ErrNothingToUndo
	}
	entry := s.undoStack[len(s.undoStack)-1]
	s.undoStack = s.undoStack[:len(s.undoStack)-1]

	pos := entry.index
	if pos > len(s.records) {
		pos = len(s.records)
	}
	s.records = append(s.records[:pos], append([]model.LocationRecord{entry.record}, s.records[pos:]...)...)
	s.renderer.ResetMarkers(s.records)
	return entry.record, nil
}

// UndoDepth reports how many deletes can currently be undone.
func (s *Store) UndoDepth() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.undoStack)
}

// indexOf must be called with the lock held.
func (s *Store) indexOf(id string) int {
	for i := range s.records {
		if s.records[i].ID == id {
			return i
		}
	}
	return -1
}
