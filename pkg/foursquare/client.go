// Package foursquare provides a minimal Places v3 client used as the last
// resolver in the website waterfall.
package foursquare

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/matlycreative/seo-prospects/internal/resilience"
)

// DefaultBaseURL is the Places v3 API root.
const DefaultBaseURL = "https://api.foursquare.com"

// SearchRadiusM bounds the match search around the candidate's coordinates.
const SearchRadiusM = 50000

// Client calls the Places API with a single API key.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy
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

// New creates a Places client. The key is required; callers should not
// construct a client without one.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Every(600*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	body, err := resilience.Do(ctx, "foursquare", c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "foursquare: throttle")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+params.Encode(), nil)
		if err != nil {
			return nil, eris.Wrap(err, "foursquare: create request")
		}
		req.Header.Set("Authorization", c.apiKey)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "foursquare: request")
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "foursquare: read body")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.StatusError{Service: "foursquare", StatusCode: resp.StatusCode}
		}
		return body, nil
	})
	if err != nil {
		return err
	}
	if err := json.Unmarshal(body, out); err != nil {
		return eris.Wrap(err, "foursquare: unmarshal")
	}
	return nil
}

// FindWebsite searches for the best place match near (lat, lon) and returns
// its website. When the search hit lacks an inline website, one detail fetch
// by place id retrieves it. Returns "" when nothing matches.
func (c *Client) FindWebsite(ctx context.Context, name string, lat, lon float64) (string, error) {
	params := url.Values{}
	params.Set("query", name)
	params.Set("ll", fmt.Sprintf("%f,%f", lat, lon))
	params.Set("limit", "1")
	params.Set("radius", fmt.Sprintf("%d", SearchRadiusM))

	var search struct {
		Results []struct {
			FsqID   string `json:"fsq_id"`
			Website string `json:"website"`
		} `json:"results"`
	}
	if err := c.get(ctx, "/v3/places/search", params, &search); err != nil {
		return "", err
	}
	if len(search.Results) == 0 {
		return "", nil
	}

	first := search.Results[0]
	if w := strings.TrimSpace(first.Website); w != "" {
		return w, nil
	}
	if first.FsqID == "" {
		return "", nil
	}

	detailParams := url.Values{}
	detailParams.Set("fields", "website")
	var detail struct {
		Website string `json:"website"`
	}
	if err := c.get(ctx, "/v3/places/"+first.FsqID, detailParams, &detail); err != nil {
		return "", err
	}
	return strings.TrimSpace(detail.Website), nil
}
