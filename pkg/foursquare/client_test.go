package foursquare

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matlycreative/seo-prospects/internal/resilience"
)

func testClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("fsq-test-key",
		WithBaseURL(srv.URL),
		WithMinInterval(time.Millisecond),
		WithRetryPolicy(resilience.Policy{Backoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
}

func TestFindWebsiteInline(t *testing.T) {
	var gotAuth string
	var gotQuery string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.Query().Get("query")
		w.Write([]byte(`{"results": [{"fsq_id": "abc", "website": "https://ace.co"}]}`))
	})

	got, err := c.FindWebsite(context.Background(), "Ace Plumbing", 47.37, 8.54)
	require.NoError(t, err)
	assert.Equal(t, "https://ace.co", got)
	assert.Equal(t, "fsq-test-key", gotAuth)
	assert.Equal(t, "Ace Plumbing", gotQuery)
}

func TestFindWebsiteDetailFetch(t *testing.T) {
	var paths []string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		switch r.URL.Path {
		case "/v3/places/search":
			w.Write([]byte(`{"results": [{"fsq_id": "abc"}]}`))
		case "/v3/places/abc":
			assert.Equal(t, "website", r.URL.Query().Get("fields"))
			w.Write([]byte(`{"website": "https://from-detail.co"}`))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	got, err := c.FindWebsite(context.Background(), "Ace", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "https://from-detail.co", got)
	assert.Equal(t, []string{"/v3/places/search", "/v3/places/abc"}, paths)
}

func TestFindWebsiteNoResults(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"results": []}`))
	})
	got, err := c.FindWebsite(context.Background(), "Nobody", 1, 2)
	require.NoError(t, err)
	assert.Equal(t, "", got)
}

func TestFindWebsiteServerError(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.FindWebsite(context.Background(), "Ace", 1, 2)
	require.Error(t, err)
	assert.Equal(t, 1, calls, "auth failures are not retried")
}

func TestFindWebsiteRetriesTransientStatus(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"results": [{"fsq_id": "abc", "website": "https://ace.co"}]}`))
	})

	got, err := c.FindWebsite(context.Background(), "Ace Plumbing", 47.37, 8.54)
	require.NoError(t, err)
	assert.Equal(t, "https://ace.co", got)
	assert.Equal(t, 2, calls)
}
