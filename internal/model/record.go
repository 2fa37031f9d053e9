// Package model defines the location records manipulated by the pipeline and
// the interactive marker store.
package model

import (
	"math"
	"strings"
)

// Status classifies a location record and drives its marker color.
type Status string

const (
	StatusNone    Status = "none"
	StatusRecent  Status = "recent"
	StatusCurrent Status = "current"
)

// ParseStatus coerces arbitrary input to a canonical Status. The legacy
// vocabularies "active" and "both" collapse into StatusCurrent; anything
// unrecognized becomes StatusNone.
func ParseStatus(raw string) Status {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "recent":
		return StatusRecent
	case "current", "active", "both":
		return StatusCurrent
	default:
		return StatusNone
	}
}

// DeriveStatus resolves a record's status from an explicit value when present,
// falling back to the legacy boolean-ish relationship columns. Current work
// outranks a recent relationship.
func DeriveStatus(explicit, recentRel, currentWork string) Status {
	if strings.TrimSpace(explicit) != "" {
		return ParseStatus(explicit)
	}
	if truthy(currentWork) {
		return StatusCurrent
	}
	if truthy(recentRel) {
		return StatusRecent
	}
	return StatusNone
}

func truthy(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// LocationRecord is one mappable location. Lat/Lon are NaN when the record
// never geocoded; such records are kept for the reference export but excluded
// from rendering.
type LocationRecord struct {
	ID      string  `csv:"-" json:"id"`
	School  string  `csv:"School" json:"school"`
	Address string  `csv:"Address" json:"address"`
	Group   string  `csv:"Group" json:"group"`
	Lat     float64 `csv:"lat" json:"lat"`
	Lon     float64 `csv:"lon" json:"lon"`
	Status  Status  `csv:"Status" json:"status"`
}

// HasCoordinates reports whether the record can be placed on a map.
func (r LocationRecord) HasCoordinates() bool {
	return !math.IsNaN(r.Lat) && !math.IsNaN(r.Lon)
}

// NoCoordinate is the sentinel for a missing latitude or longitude.
func NoCoordinate() float64 { return math.NaN() }
