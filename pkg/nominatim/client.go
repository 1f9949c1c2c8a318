// Package nominatim provides a client for the Nominatim geocoding and
// free-text place search API.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	geom "github.com/twpayne/go-geom"
	"golang.org/x/time/rate"

	"github.com/matlycreative/seo-prospects/internal/resilience"
)

// DefaultBaseURL is the public Nominatim instance.
const DefaultBaseURL = "https://nominatim.openstreetmap.org"

// Place is one search result.
type Place struct {
	Name      string
	Class     string
	Type      string
	Lat       *float64
	Lon       *float64
	ExtraTags map[string]string
}

// Website returns the place's website-ish extra tag, if any.
func (p Place) Website() string {
	for _, key := range []string{"website", "contact:website", "url"} {
		if v := strings.TrimSpace(p.ExtraTags[key]); v != "" {
			return v
		}
	}
	return ""
}

// Wikidata returns the place's knowledge-graph entity id, if tagged.
func (p Place) Wikidata() string {
	return strings.TrimSpace(p.ExtraTags["wikidata"])
}

// Client calls Nominatim with a shared min-interval throttle. The public
// instance requires at most one request per second.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
	limiter   *rate.Limiter
	retry     resilience.Policy
}

// Option configures the client.
type Option func(*Client)

// WithBaseURL points the client at a different instance (or a test server).
func WithBaseURL(base string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(base, "/") }
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithMinInterval sets the politeness interval between calls.
func WithMinInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.limiter = rate.NewLimiter(rate.Every(d), 1)
		}
	}
}

// WithRetryPolicy overrides the transient-failure retry policy.
func WithRetryPolicy(p resilience.Policy) Option {
	return func(c *Client) { c.retry = p }
}

// New creates a Nominatim client. The user agent identifies this scraper to
// the service operator, per the usage policy.
func New(userAgent string, opts ...Option) *Client {
	c := &Client{
		baseURL:   DefaultBaseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: 30 * time.Second},
		limiter:   rate.NewLimiter(rate.Every(1100*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type item struct {
	Lat         string            `json:"lat"`
	Lon         string            `json:"lon"`
	Class       string            `json:"class"`
	Type        string            `json:"type"`
	DisplayName string            `json:"display_name"`
	BoundingBox []string          `json:"boundingbox"`
	NameDetails map[string]string `json:"namedetails"`
	ExtraTags   map[string]string `json:"extratags"`
}

func (it item) name() string {
	if n := strings.TrimSpace(it.NameDetails["name"]); n != "" {
		return n
	}
	dn := strings.TrimSpace(it.DisplayName)
	if idx := strings.Index(dn, ","); idx > 0 {
		return strings.TrimSpace(dn[:idx])
	}
	return dn
}

func (it item) place() Place {
	p := Place{
		Name:      it.name(),
		Class:     strings.ToLower(it.Class),
		Type:      strings.ToLower(it.Type),
		ExtraTags: it.ExtraTags,
	}
	if p.ExtraTags == nil {
		p.ExtraTags = map[string]string{}
	}
	if lat, err := strconv.ParseFloat(it.Lat, 64); err == nil {
		p.Lat = &lat
	}
	if lon, err := strconv.ParseFloat(it.Lon, 64); err == nil {
		p.Lon = &lon
	}
	return p
}

func (c *Client) get(ctx context.Context, params url.Values) ([]item, error) {
	body, err := resilience.Do(ctx, "nominatim", c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "nominatim: throttle")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: create request")
		}
		req.Header.Set("User-Agent", c.userAgent)
		req.Header.Set("Referer", "https://nominatim.org")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: request")
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: read body")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.StatusError{Service: "nominatim", StatusCode: resp.StatusCode}
		}
		return body, nil
	})
	if err != nil {
		return nil, err
	}

	var items []item
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, eris.Wrap(err, "nominatim: unmarshal")
	}
	return items, nil
}

// Geocode resolves "city, country" to its bounding box, lon/lat order
// (X = lon, Y = lat).
func (c *Client) Geocode(ctx context.Context, city, country string) (*geom.Bounds, error) {
	params := url.Values{}
	params.Set("q", city+", "+country)
	params.Set("format", "json")
	params.Set("limit", "1")

	items, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, eris.Errorf("nominatim: no match for %s, %s", city, country)
	}
	bb := items[0].BoundingBox
	if len(bb) != 4 {
		return nil, eris.New("nominatim: malformed bounding box")
	}

	// Nominatim order: south, north, west, east.
	vals := make([]float64, 4)
	for i, s := range bb {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, eris.Wrap(err, "nominatim: parse bounding box")
		}
		vals[i] = v
	}
	south, north, west, east := vals[0], vals[1], vals[2], vals[3]

	b := geom.NewBounds(geom.XY)
	b.Set(west, south, east, north)
	return b, nil
}

// viewbox renders a bounds in Nominatim's west,north,east,south order.
func viewbox(b *geom.Bounds) string {
	return fmt.Sprintf("%g,%g,%g,%g", b.Min(0), b.Max(1), b.Max(0), b.Min(1))
}

// SearchBounded runs a free-text place search restricted to the given
// bounding box, with extended tags and name details.
func (c *Client) SearchBounded(ctx context.Context, query string, bounds *geom.Bounds, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("viewbox", viewbox(bounds))
	params.Set("bounded", "1")
	params.Set("dedupe", "1")
	params.Set("extratags", "1")
	params.Set("namedetails", "1")

	items, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	places := make([]Place, 0, len(items))
	for _, it := range items {
		places = append(places, it.place())
	}
	return places, nil
}

// Search runs an unbounded free-text place search with extended tags.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Place, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "jsonv2")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("extratags", "1")
	params.Set("namedetails", "1")

	items, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}
	places := make([]Place, 0, len(items))
	for _, it := range items {
		places = append(places, it.place())
	}
	return places, nil
}
