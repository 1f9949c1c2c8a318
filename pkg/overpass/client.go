// Package overpass provides a client for the Overpass API: batched tag-pair
// spatial queries and name-regex lookups over OSM entities.
package overpass

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/matlycreative/seo-prospects/internal/resilience"
)

// DefaultEndpoints are tried in order until one answers.
var DefaultEndpoints = []string{
	"https://overpass-api.de/api/interpreter",
	"https://overpass.kumi.systems/api/interpreter",
}

// TagFilter selects entities carrying key=value.
type TagFilter struct {
	Key   string
	Value string
}

// Element is one OSM entity from a query result.
type Element struct {
	Tags map[string]string
	Lat  *float64
	Lon  *float64
}

// Name returns the entity's name tag, trimmed.
func (e Element) Name() string {
	return strings.TrimSpace(e.Tags["name"])
}

// Website returns the entity's website-ish tag, preferring the canonical
// key over contact: and url variants.
func (e Element) Website() string {
	for _, key := range []string{"website", "contact:website", "url"} {
		if v := strings.TrimSpace(e.Tags[key]); v != "" {
			return v
		}
	}
	return ""
}

// Client issues Overpass QL queries with endpoint fallback and a
// min-interval throttle shared across all calls.
type Client struct {
	endpoints    []string
	http         *http.Client
	limiter      *rate.Limiter
	queryTimeout int // server-side [timeout:] in seconds
	retries      int // attempts per endpoint
	maxFilters   int // tag filters per query chunk
}

// Option configures the client.
type Option func(*Client)

// WithEndpoints overrides the endpoint list (first entry is primary).
func WithEndpoints(endpoints ...string) Option {
	return func(c *Client) {
		if len(endpoints) > 0 {
			c.endpoints = endpoints
		}
	}
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

// WithQueryTimeout sets the server-side query timeout in seconds.
func WithQueryTimeout(secs int) Option {
	return func(c *Client) {
		if secs > 0 {
			c.queryTimeout = secs
		}
	}
}

// WithRetries sets attempts per endpoint before moving to the next one.
func WithRetries(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.retries = n
		}
	}
}

// WithMaxFiltersPerQuery caps tag pairs per query chunk; large unions time
// out on public endpoints.
func WithMaxFiltersPerQuery(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxFilters = n
		}
	}
}

// New creates an Overpass client.
func New(opts ...Option) *Client {
	c := &Client{
		endpoints:    DefaultEndpoints,
		http:         &http.Client{Timeout: 45 * time.Second},
		limiter:      rate.NewLimiter(rate.Every(2*time.Second), 1),
		queryTimeout: 25,
		retries:      2,
		maxFilters:   40,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	Elements []struct {
		Lat    *float64 `json:"lat"`
		Lon    *float64 `json:"lon"`
		Center *struct {
			Lat *float64 `json:"lat"`
			Lon *float64 `json:"lon"`
		} `json:"center"`
		Tags map[string]string `json:"tags"`
	} `json:"elements"`
}

// post sends one Overpass QL query, walking endpoint alternates with bounded
// attempts each. A throttle wait precedes every network call.
func (c *Client) post(ctx context.Context, query string) (*response, error) {
	var lastErr error
	for _, endpoint := range c.endpoints {
		for attempt := 0; attempt < c.retries; attempt++ {
			if err := c.limiter.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "overpass: throttle")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(query))
			if err != nil {
				return nil, eris.Wrap(err, "overpass: create request")
			}
			req.Header.Set("Content-Type", "text/plain; charset=utf-8")

			resp, err := c.http.Do(req)
			if err != nil {
				lastErr = eris.Wrap(err, "overpass: request")
				continue
			}
			body, readErr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = eris.Wrap(readErr, "overpass: read body")
				continue
			}
			if resp.StatusCode != http.StatusOK {
				lastErr = &resilience.StatusError{Service: "overpass", StatusCode: resp.StatusCode}
				continue
			}

			var out response
			if err := json.Unmarshal(body, &out); err != nil {
				lastErr = eris.Wrap(err, "overpass: unmarshal")
				continue
			}
			return &out, nil
		}
	}
	if lastErr == nil {
		lastErr = eris.New("overpass: no endpoints configured")
	}
	return nil, lastErr
}

func (r *response) elements() []Element {
	out := make([]Element, 0, len(r.Elements))
	for _, el := range r.Elements {
		e := Element{Tags: el.Tags, Lat: el.Lat, Lon: el.Lon}
		if (e.Lat == nil || e.Lon == nil) && el.Center != nil {
			e.Lat, e.Lon = el.Center.Lat, el.Center.Lon
		}
		if e.Tags == nil {
			e.Tags = map[string]string{}
		}
		out = append(out, e)
	}
	return out
}

// TagQuery returns all entities within radiusM of (lat, lon) matching any
// of the tag filters. Filters are chunked so no single query exceeds the
// configured maximum pair count.
func (c *Client) TagQuery(ctx context.Context, lat, lon float64, radiusM int, filters []TagFilter) ([]Element, error) {
	var all []Element
	for start := 0; start < len(filters); start += c.maxFilters {
		end := min(start+c.maxFilters, len(filters))

		var parts []string
		for _, f := range filters[start:end] {
			for _, t := range []string{"node", "way", "relation"} {
				parts = append(parts, fmt.Sprintf(`%s(around:%d,%f,%f)[%q=%q];`, t, radiusM, lat, lon, f.Key, f.Value))
			}
		}
		query := fmt.Sprintf("[out:json][timeout:%d];(%s);out tags center;", c.queryTimeout, strings.Join(parts, " "))

		resp, err := c.post(ctx, query)
		if err != nil {
			return nil, err
		}
		all = append(all, resp.elements()...)
	}
	return all, nil
}

// NameQuery returns entities within radiusM of (lat, lon) whose name tag
// matches the given case-insensitive regex pattern.
func (c *Client) NameQuery(ctx context.Context, lat, lon float64, radiusM int, pattern string) ([]Element, error) {
	var parts []string
	for _, t := range []string{"node", "way", "relation"} {
		parts = append(parts, fmt.Sprintf(`%s(around:%d,%f,%f)["name"~%q,i];`, t, radiusM, lat, lon, pattern))
	}
	query := fmt.Sprintf("[out:json][timeout:%d];(%s);out tags center;", c.queryTimeout, strings.Join(parts, " "))

	resp, err := c.post(ctx, query)
	if err != nil {
		return nil, err
	}
	return resp.elements(), nil
}
