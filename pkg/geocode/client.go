// Package geocode resolves free-text addresses to coordinates via the
// Nominatim search API, biased to a fixed geographic bounding box.
package geocode

import (
	"context"
	"net/http"
	"time"

	"github.com/twpayne/go-geom"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/docrocket-mad/ns-school-map/internal/address"
)

// Client geocodes address queries.
type Client interface {
	// Geocode resolves a query trying variants with retries and backoff.
	// Remote failures degrade to an unmatched Result, never an error; the
	// only error returned is context cancellation.
	Geocode(ctx context.Context, query string) (*Result, error)

	// Lookup is a single best-effort attempt with no variants or retries,
	// for interactive use.
	Lookup(ctx context.Context, query string) (*Result, error)
}

// Result holds the outcome for one query. Matched=false is a definitive
// failure, not an error.
type Result struct {
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
	DisplayName string  `json:"display_name,omitempty"`
	Matched     bool    `json:"matched"`
}

// NSBounds returns the Nova Scotia bounding box used as the default region
// bias (west/south to east/north).
func NSBounds() *geom.Bounds {
	return geom.NewBounds(geom.XY).SetCoords(
		geom.Coord{-66.5, 43.0},
		geom.Coord{-59.0, 47.2},
	)
}

// Option configures the geocoder.
type Option func(*geocoder)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *geocoder) { g.httpClient = hc }
}

// WithBaseURL overrides the Nominatim endpoint (tests point this at a stub).
func WithBaseURL(u string) Option {
	return func(g *geocoder) { g.baseURL = u }
}

// WithBounds sets the region-bias bounding box.
func WithBounds(b *geom.Bounds) Option {
	return func(g *geocoder) { g.bounds = b }
}

// WithCountryCode restricts matches to one ISO country code.
func WithCountryCode(cc string) Option {
	return func(g *geocoder) { g.countryCode = cc }
}

// WithMinDelay sets the mandatory minimum delay between remote calls.
func WithMinDelay(d time.Duration) Option {
	return func(g *geocoder) { g.limiter = rate.NewLimiter(rate.Every(d), 1) }
}

// WithRetries sets the attempts per query variant.
func WithRetries(n int) Option {
	return func(g *geocoder) {
		if n > 0 {
			g.retries = n
		}
	}
}

// WithBackoff sets the base backoff; the sleep after attempt n is backoff×n.
func WithBackoff(d time.Duration) Option {
	return func(g *geocoder) { g.backoff = d }
}

// WithUserAgent sets the User-Agent header (Nominatim requires one).
func WithUserAgent(ua string) Option {
	return func(g *geocoder) { g.userAgent = ua }
}

type geocoder struct {
	httpClient  *http.Client
	baseURL     string
	bounds      *geom.Bounds
	countryCode string
	limiter     *rate.Limiter
	retries     int
	backoff     time.Duration
	userAgent   string
}

// NewClient creates a geocoding Client with the given options.
func NewClient(opts ...Option) Client {
	g := &geocoder{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		baseURL:     nominatimSearchURL,
		bounds:      NSBounds(),
		countryCode: "ca",
		limiter:     rate.NewLimiter(rate.Every(1500*time.Millisecond), 1),
		retries:     3,
		backoff:     2 * time.Second,
		userAgent:   "schoolmap/1.0",
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Geocode tries each query variant in order, retrying transient failures with
// linear backoff, and returns the first match.
func (g *geocoder) Geocode(ctx context.Context, query string) (*Result, error) {
	for _, variant := range queryVariants(query) {
		for attempt := 1; attempt <= g.retries; attempt++ {
			result, err := g.searchOnce(ctx, variant)
			if err == nil {
				if result.Matched {
					return result, nil
				}
				// No result is a normal outcome; try the next variant.
				break
			}
			if ctx.Err() != nil {
				return nil, err
			}
			if !isTransient(err) {
				zap.L().Debug("geocode: variant failed",
					zap.String("variant", variant),
					zap.Error(err),
				)
				break
			}

			zap.L().Debug("geocode: transient failure, backing off",
				zap.String("variant", variant),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			if err := sleep(ctx, g.backoff*time.Duration(attempt)); err != nil {
				return nil, err
			}
		}
	}
	return &Result{Matched: false}, nil
}

// Lookup is a single attempt against the raw query, no variants or retries.
func (g *geocoder) Lookup(ctx context.Context, query string) (*Result, error) {
	result, err := g.searchOnce(ctx, query)
	if err != nil {
		if ctx.Err() != nil {
			return nil, err
		}
		return &Result{Matched: false}, nil
	}
	return result, nil
}

// queryVariants builds the ordered, deduplicated lookup variants: the query
// as-is, the query without postal codes, and the region-shortened query.
func queryVariants(query string) []string {
	variants := []string{query}
	if noPostal := address.StripPostal(query); noPostal != query {
		variants = append(variants, noPostal)
	}
	short := address.Shorten(query)
	if short != query && short != variants[len(variants)-1] {
		variants = append(variants, short)
	}
	return variants
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
