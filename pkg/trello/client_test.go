package trello

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
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
	return New("k", "tok",
		WithBaseURL(srv.URL),
		WithMinInterval(time.Millisecond),
		WithRetryPolicy(resilience.Policy{Backoff: time.Millisecond, MaxBackoff: time.Millisecond}),
	)
}

func TestGetCardNormalizesNewlines(t *testing.T) {
	var gotQuery url.Values
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		w.Write([]byte(`{"id": "c1", "name": "Lead", "desc": "Company: A  \r\nFirst:  \r"}`))
	})

	card, err := c.GetCard(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "k", gotQuery.Get("key"))
	assert.Equal(t, "tok", gotQuery.Get("token"))
	assert.Equal(t, "name,desc", gotQuery.Get("fields"))
	assert.Equal(t, "Company: A  \nFirst:  \n", card.Desc)
}

func TestUpdateCard(t *testing.T) {
	var gotMethod string
	var gotForm url.Values
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		body, _ := io.ReadAll(r.Body)
		gotForm, _ = url.ParseQuery(string(body))
		w.Write([]byte(`{}`))
	})

	desc := "Company: B  \n"
	err := c.UpdateCard(context.Background(), "c1", CardUpdate{Desc: &desc})
	require.NoError(t, err)
	assert.Equal(t, http.MethodPut, gotMethod)
	assert.Equal(t, desc, gotForm.Get("desc"))
	assert.False(t, gotForm.Has("name"))
}

func TestUpdateCardNoopSkipsNetwork(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(`{}`))
	})
	require.NoError(t, c.UpdateCard(context.Background(), "c1", CardUpdate{}))
	assert.Equal(t, 0, calls)
}

func TestListCards(t *testing.T) {
	var gotPath string
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`[
			{"id": "c1", "name": "A", "desc": "Company:  \r\nWebsite:  \r\n"},
			{"id": "c2", "name": "B", "desc": "Company: Taken  \n"}
		]`))
	})

	cards, err := c.ListCards(context.Background(), "list9")
	require.NoError(t, err)
	assert.Equal(t, "/1/lists/list9/cards", gotPath)
	require.Len(t, cards, 2)
	assert.Equal(t, "Company:  \nWebsite:  \n", cards[0].Desc)
}

func TestCloneCard(t *testing.T) {
	var gotQuery url.Values
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		assert.Equal(t, http.MethodPost, r.Method)
		w.Write([]byte(`{"id": "new-card"}`))
	})

	id, err := c.CloneCard(context.Background(), "tmpl", "list9", "Lead (auto)")
	require.NoError(t, err)
	assert.Equal(t, "new-card", id)
	assert.Equal(t, "tmpl", gotQuery.Get("idCardSource"))
	assert.Equal(t, "list9", gotQuery.Get("idList"))
	assert.Equal(t, "Lead (auto)", gotQuery.Get("name"))
}

func TestServerError(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	})
	_, err := c.GetCard(context.Background(), "c1")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "auth failures are not retried")
}

func TestGetCardRetriesTransientStatus(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"id": "c1", "name": "Lead", "desc": "Company: A  \n"}`))
	})

	card, err := c.GetCard(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Lead", card.Name)
	assert.Equal(t, 2, calls)
}

func TestCloneCardNeverRetries(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.CloneCard(context.Background(), "tmpl", "list9", "Lead (auto)")
	require.Error(t, err)
	assert.Equal(t, 1, calls, "card creation must not run twice")
}
