// Package address canonicalizes free-text postal addresses into
// geocoder-friendly queries.
package address

import (
	"regexp"
	"strings"
)

// Region and Country are appended to any query that lacks them; the geocoder
// is biased to this region and unanchored queries rarely resolve inside it.
const (
	Region  = "Nova Scotia"
	Country = "Canada"
)

var (
	poBoxRe  = regexp.MustCompile(`(?i)\b(P\.?\s*O\.?\s*Box|PO\s*Box|Box\s+\d+)\b`)
	ruralRe  = regexp.MustCompile(`(?i)\bRR\s*\d+\b`)
	stnRe    = regexp.MustCompile(`(?i)\bStn\.?\b`)
	nsAbbrRe = regexp.MustCompile(`\bNS\b`)
	spaceRe  = regexp.MustCompile(`\s+`)

	// Canadian postal code, e.g. "B3H 4R2".
	postalRe = regexp.MustCompile(`(?i)\b[ABCEGHJ-NPRSTVXY]\d[ABCEGHJ-NPRSTV-Z]\s?\d[ABCEGHJ-NPRSTV-Z]\d\b`)

	shortenRe = regexp.MustCompile(`,\s*` + Region + `.*$`)
)

// Normalize rewrites a raw address into a canonical geocoding query. It is
// total (never fails) and idempotent. Empty or whitespace-only input
// normalizes to "", which callers must treat as unaddressable.
func Normalize(raw string) string {
	s := strings.TrimSpace(raw)
	if s == "" {
		return ""
	}

	// Box and rural-route tokens confuse geocoders; drop them outright.
	s = poBoxRe.ReplaceAllString(s, "")
	s = ruralRe.ReplaceAllString(s, "")
	s = stnRe.ReplaceAllString(s, "Station")

	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, ", ")

	if !strings.Contains(s, Region) {
		s = nsAbbrRe.ReplaceAllString(s, Region)
	}
	if !strings.Contains(s, Region) {
		s += ", " + Region
	}
	if !strings.Contains(s, Country) {
		s += ", " + Country
	}
	return s
}

// StripPostal removes postal-code-shaped tokens from a query, producing the
// second lookup variant for addresses whose postal code misleads the geocoder.
func StripPostal(query string) string {
	s := postalRe.ReplaceAllString(query, "")
	s = spaceRe.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, " ,", ",")
	return strings.Trim(s, ", ")
}

// Shorten truncates everything after the region token down to
// "<region>, <country>", the coarsest lookup variant.
func Shorten(query string) string {
	if !strings.Contains(query, Region) {
		return query
	}
	return shortenRe.ReplaceAllString(query, ", "+Region+", "+Country)
}
