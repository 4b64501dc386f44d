package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testWindow() v1.FetchWindow {
	return v1.FetchWindow{
		Tenant: "acme",
		Feed:   v1.FeedUpdated,
		Low:    time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		High:   time.Date(2024, 3, 1, 1, 0, 0, 0, time.UTC),
	}
}

func newTestClient(srv *httptest.Server, retries int) *Client {
	c := New(Options{
		BaseURL:             srv.URL,
		AccessToken:         "tok",
		PageSize:            2,
		RequestsPerSecond:   1000,
		MaxRateLimitRetries: retries,
		Timeout:             5 * time.Second,
	})
	c.sleep = func(ctx context.Context, _ time.Duration) error { return ctx.Err() }
	return c
}

func TestClient_Fetch_FollowsLinkPagination(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "tok", r.Header.Get("X-Shopify-Access-Token"))
		switch r.URL.Query().Get("page_info") {
		case "":
			q := r.URL.Query()
			assert.Equal(t, "any", q.Get("status"))
			assert.Equal(t, "2", q.Get("limit"))
			assert.Equal(t, "2024-03-01T00:00:00Z", q.Get("updated_at_min"))
			assert.Equal(t, "2024-03-01T01:00:00Z", q.Get("updated_at_max"))
			assert.Contains(t, q.Get("fields"), "refunds")
			w.Header().Set("Link", `<`+srvURL+`/orders.json?page_info=p2>; rel="next"`)
			_, _ = w.Write([]byte(`{"orders":[{"id":1},{"id":2}]}`))
		case "p2":
			w.Header().Set("Link", `<`+srvURL+`/orders.json?page_info=p1>; rel="previous"`)
			_, _ = w.Write([]byte(`{"orders":[{"id":3}]}`))
		default:
			t.Errorf("unexpected page %q", r.URL.RawQuery)
		}
	}))
	defer srv.Close()
	srvURL = srv.URL

	orders, err := newTestClient(srv, 3).Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, orders, 3)
	assert.Equal(t, int64(3), orders[2].ID)
}

func TestClient_Fetch_RetriesOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.Header().Set("Retry-After", "2.0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"orders":[{"id":7}]}`))
	}))
	defer srv.Close()

	var waits []time.Duration
	c := newTestClient(srv, 3)
	c.sleep = func(_ context.Context, d time.Duration) error {
		waits = append(waits, d)
		return nil
	}

	orders, err := c.Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, []time.Duration{2 * time.Second, 2 * time.Second}, waits)
}

func TestClient_Fetch_RateLimitExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := newTestClient(srv, 2).Fetch(context.Background(), testWindow())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_Fetch_NonSuccessIsTerminal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"errors":"Invalid API key"}`))
	}))
	defer srv.Close()

	orders, err := newTestClient(srv, 3).Fetch(context.Background(), testWindow())
	require.Error(t, err)
	assert.Nil(t, orders)

	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusUnauthorized, statusErr.StatusCode)
	assert.Contains(t, statusErr.Body, "Invalid API key")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Fetch_FailureMidPaginationReturnsNothing(t *testing.T) {
	var srvURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page_info") == "" {
			w.Header().Set("Link", `<`+srvURL+`/orders.json?page_info=p2>; rel="next"`)
			_, _ = w.Write([]byte(`{"orders":[{"id":1}]}`))
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()
	srvURL = srv.URL

	orders, err := newTestClient(srv, 3).Fetch(context.Background(), testWindow())
	require.Error(t, err)
	assert.Nil(t, orders)
}

func TestClient_Fetch_HardTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	c := newTestClient(srv, 0)
	c.opts.Timeout = 50 * time.Millisecond

	_, err := c.Fetch(context.Background(), testWindow())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
}

func TestClient_Fetch_UsesCreatedFieldForNewFeed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.URL.Query().Get("created_at_min"))
		assert.Empty(t, r.URL.Query().Get("updated_at_min"))
		_, _ = w.Write([]byte(`{"orders":[]}`))
	}))
	defer srv.Close()

	w := testWindow()
	w.Feed = v1.FeedNew
	orders, err := newTestClient(srv, 0).Fetch(context.Background(), w)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestNextLink(t *testing.T) {
	tests := []struct {
		header string
		want   string
	}{
		{"", ""},
		{`<https://x/orders.json?page_info=a>; rel="next"`, "https://x/orders.json?page_info=a"},
		{`<https://x/p>; rel="previous", <https://x/n>; rel="next"`, "https://x/n"},
		{`<https://x/p>; rel="previous"`, ""},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, NextLink(tc.header), tc.header)
	}
}

func TestRetryAfter(t *testing.T) {
	assert.Equal(t, defaultRetryAfter, retryAfter(""))
	assert.Equal(t, 3*time.Second, retryAfter("3"))
	assert.Equal(t, 1500*time.Millisecond, retryAfter("1.5"))
	assert.Equal(t, defaultRetryAfter, retryAfter("soon"))
	assert.True(t, strings.HasPrefix(retryAfter("-1").String(), "2s"))
}

func TestClient_Fetch_MistypedFieldsKeepThePage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"orders":[
			{"id":1,"total_price":"100.00","line_items":[{"price":"100.00","quantity":1}]},
			{"id":2,"total_price":250,"refunds":[{"created_at":"2024-03-01T00:30:00Z",
				"transactions":[{"kind":"refund","amount":150.5},{"kind":"refund","amount":{"bad":true}}]}],
				"line_items":[{"price":"9.99","quantity":"3"},{"price":false,"quantity":"many"}]}
		]}`))
	}))
	defer srv.Close()

	orders, err := newTestClient(srv, 0).Fetch(context.Background(), testWindow())
	require.NoError(t, err)
	require.Len(t, orders, 2)

	assert.Equal(t, v1.Amount("100.00"), orders[0].TotalPrice)
	second := orders[1]
	assert.Equal(t, v1.Amount("250"), second.TotalPrice)
	require.Len(t, second.Refunds[0].Transactions, 2)
	assert.Equal(t, v1.Amount("150.5"), second.Refunds[0].Transactions[0].Amount)
	assert.Equal(t, v1.NewQuantity(3), second.LineItems[0].Quantity)
	assert.False(t, second.LineItems[1].Quantity.Valid)
}
