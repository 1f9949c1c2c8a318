// Package trello provides the card-board client used by the record store:
// card reads, description/name updates, list scans, and template clones.
package trello

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/matlycreative/seo-prospects/internal/resilience"
)

// DefaultBaseURL is the REST API root.
const DefaultBaseURL = "https://api.trello.com"

// Card is the subset of card fields the pipeline touches. Desc line endings
// are normalized to LF on read.
type Card struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Desc string `json:"desc"`
}

// CardUpdate carries the fields to change; nil fields are left untouched.
type CardUpdate struct {
	Name *string
	Desc *string
}

// Client authenticates with the key/token query-parameter scheme.
type Client struct {
	baseURL string
	key     string
	token   string
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

// New creates a board client.
func New(key, token string, opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		key:     key,
		token:   token,
		http:    &http.Client{Timeout: 30 * time.Second},
		limiter: rate.NewLimiter(rate.Every(500*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func normalizeNewlines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\r", "\n")
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, form url.Values, out any) error {
	params.Set("key", c.key)
	params.Set("token", c.token)

	// Card creation is not idempotent; a retried clone could leave a
	// duplicate card behind.
	policy := c.retry
	if method == http.MethodPost {
		policy.Attempts = 1
	}

	raw, err := resilience.Do(ctx, "trello", policy, func(ctx context.Context) ([]byte, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "trello: throttle")
		}

		var body io.Reader
		if form != nil {
			body = strings.NewReader(form.Encode())
		}
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), body)
		if err != nil {
			return nil, eris.Wrap(err, "trello: create request")
		}
		if form != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, eris.Wrap(err, "trello: request")
		}
		defer func() { _ = resp.Body.Close() }()

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, eris.Wrap(err, "trello: read body")
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &resilience.StatusError{Service: "trello", StatusCode: resp.StatusCode}
		}
		return raw, nil
	})
	if err != nil {
		return err
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return eris.Wrap(err, "trello: unmarshal")
		}
	}
	return nil
}

// GetCard fetches one card's name and description.
func (c *Client) GetCard(ctx context.Context, cardID string) (Card, error) {
	params := url.Values{}
	params.Set("fields", "name,desc")

	var card Card
	if err := c.do(ctx, http.MethodGet, "/1/cards/"+cardID, params, nil, &card); err != nil {
		return Card{}, err
	}
	card.Desc = normalizeNewlines(card.Desc)
	return card, nil
}

// UpdateCard applies the non-nil fields of upd to the card. A no-op update
// (both fields nil) returns without a network call.
func (c *Client) UpdateCard(ctx context.Context, cardID string, upd CardUpdate) error {
	form := url.Values{}
	if upd.Name != nil {
		form.Set("name", *upd.Name)
	}
	if upd.Desc != nil {
		form.Set("desc", *upd.Desc)
	}
	if len(form) == 0 {
		return nil
	}
	return c.do(ctx, http.MethodPut, "/1/cards/"+cardID, url.Values{}, form, nil)
}

// ListCards returns all cards in a list with name and description loaded.
func (c *Client) ListCards(ctx context.Context, listID string) ([]Card, error) {
	params := url.Values{}
	params.Set("fields", "id,name,desc")

	var cards []Card
	if err := c.do(ctx, http.MethodGet, "/1/lists/"+listID+"/cards", params, nil, &cards); err != nil {
		return nil, err
	}
	for i := range cards {
		cards[i].Desc = normalizeNewlines(cards[i].Desc)
	}
	return cards, nil
}

// CloneCard copies a source card into a list under a new name and returns
// the new card's id.
func (c *Client) CloneCard(ctx context.Context, sourceCardID, listID, name string) (string, error) {
	params := url.Values{}
	params.Set("idList", listID)
	params.Set("idCardSource", sourceCardID)
	params.Set("name", name)

	var created struct {
		ID string `json:"id"`
	}
	if err := c.do(ctx, http.MethodPost, "/1/cards", params, nil, &created); err != nil {
		return "", err
	}
	return created.ID, nil
}
