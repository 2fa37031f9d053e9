package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
)

const nominatimSearchURL = "https://nominatim.openstreetmap.org/search"

// nominatimPlace is one element of the jsonv2 search response. Nominatim
// returns coordinates as strings.
type nominatimPlace struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// searchOnce performs a single rate-limited search request for exactly one
// best match inside the bias box.
func (g *geocoder) searchOnce(ctx context.Context, query string) (*Result, error) {
	if query == "" {
		return &Result{Matched: false}, nil
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{
		"format":         {"jsonv2"},
		"q":              {query},
		"limit":          {"1"},
		"addressdetails": {"0"},
	}
	if g.countryCode != "" {
		params.Set("countrycodes", g.countryCode)
	}
	if g.bounds != nil {
		// west,north,east,south
		params.Set("viewbox", fmt.Sprintf("%g,%g,%g,%g",
			g.bounds.Min(0), g.bounds.Max(1), g.bounds.Max(0), g.bounds.Min(1)))
		params.Set("bounded", "1")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{code: resp.StatusCode}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var places []nominatimPlace
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	if len(places) == 0 {
		return &Result{Matched: false}, nil
	}

	lat, latErr := strconv.ParseFloat(places[0].Lat, 64)
	lon, lonErr := strconv.ParseFloat(places[0].Lon, 64)
	if latErr != nil || lonErr != nil {
		return nil, eris.Errorf("geocode: bad coordinates %q,%q", places[0].Lat, places[0].Lon)
	}

	return &Result{
		Lat:         lat,
		Lon:         lon,
		DisplayName: places[0].DisplayName,
		Matched:     true,
	}, nil
}

// statusError marks a non-200 response so the retry loop can classify it.
type statusError struct {
	code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("geocode: service returned status %d", e.code)
}

// isTransient reports whether an error is worth retrying the same variant:
// timeouts, connection failures, rate limiting, and 5xx responses.
func isTransient(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.code == http.StatusTooManyRequests || se.code >= 500
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}
