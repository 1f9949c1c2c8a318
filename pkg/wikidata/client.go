// Package wikidata resolves knowledge-graph entity ids to their declared
// official website (property P856).
package wikidata

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/matlycreative/seo-prospects/internal/resilience"
)

// DefaultBaseURL is the public EntityData endpoint root.
const DefaultBaseURL = "https://www.wikidata.org"

// Client fetches entity claims with a shared min-interval throttle and an
// in-memory per-entity cache. Entity data is immutable enough for a run.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.Policy

	mu    sync.Mutex
	cache map[string]string
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

// New creates a Wikidata client.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		http:    &http.Client{Timeout: 20 * time.Second},
		limiter: rate.NewLimiter(rate.Every(600*time.Millisecond), 1),
		cache:   map[string]string{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type entityData struct {
	Entities map[string]struct {
		Claims map[string][]struct {
			MainSnak struct {
				DataValue struct {
					Value json.RawMessage `json:"value"`
				} `json:"datavalue"`
			} `json:"mainsnak"`
		} `json:"claims"`
	} `json:"entities"`
}

// OfficialWebsite returns the first P856 claim value for the entity, or ""
// when the id is not a Q-id or the entity declares no website.
func (c *Client) OfficialWebsite(ctx context.Context, qid string) (string, error) {
	qid = strings.TrimSpace(qid)
	if qid == "" || !strings.HasPrefix(qid, "Q") {
		return "", nil
	}

	c.mu.Lock()
	cached, ok := c.cache[qid]
	c.mu.Unlock()
	if ok {
		return cached, nil
	}

	body, err := resilience.Do(ctx, "wikidata", c.retry, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "wikidata: throttle")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/wiki/Special:EntityData/"+qid+".json", nil)
		if err != nil {
			return nil, eris.Wrap(err, "wikidata: create request")
		}
		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "wikidata: request")
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "wikidata: read body")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.StatusError{Service: "wikidata", StatusCode: resp.StatusCode}
		}
		return body, nil
	})
	if err != nil {
		return "", err
	}

	var ed entityData
	if err := json.Unmarshal(body, &ed); err != nil {
		return "", eris.Wrap(err, "wikidata: unmarshal")
	}

	website := ""
	for _, claim := range ed.Entities[qid].Claims["P856"] {
		var v string
		if err := json.Unmarshal(claim.MainSnak.DataValue.Value, &v); err != nil {
			continue
		}
		if v = strings.TrimSpace(v); v != "" {
			website = v
			break
		}
	}

	c.mu.Lock()
	c.cache[qid] = website
	c.mu.Unlock()
	return website, nil
}
