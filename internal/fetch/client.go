// Package fetch retrieves order snapshots for a time window from the upstream
// orders API, following its cursor pagination.
package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"golang.org/x/time/rate"
)

const (
	defaultRetryAfter = 2 * time.Second
	maxErrorBody      = 512
)

// Fields is the projection requested from upstream: exactly what flattening,
// reconciliation and range tracking read.
var Fields = []string{
	"id", "name", "created_at", "updated_at", "cancelled_at",
	"currency", "financial_status", "fulfillment_status",
	"payment_gateway_names", "app_id", "tags",
	"total_price", "total_discounts", "current_total_tax", "total_shipping_price_set",
	"customer", "discount_codes", "line_items",
	"refunds", "refunds/created_at", "refunds/transactions",
	"refunds/transactions/amount", "refunds/transactions/kind", "refunds/transactions/status",
}

// ErrRateLimited is returned once the rate-limit retry budget is spent.
var ErrRateLimited = errors.New("upstream rate limit retries exhausted")

// StatusError is a terminal non-success response.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream returned %d: %s", e.StatusCode, e.Body)
}

// Options configures a Client for one tenant.
type Options struct {
	BaseURL             string
	AccessToken         string
	PageSize            int
	RequestsPerSecond   float64
	MaxRateLimitRetries int
	Timeout             time.Duration
	HTTPClient          *http.Client
}

// Client fetches order snapshots for one tenant. It never writes to storage.
type Client struct {
	opts    Options
	http    *http.Client
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// New returns a Client with its own HTTP client and page limiter.
func New(opts Options) *Client {
	if opts.PageSize <= 0 || opts.PageSize > 250 {
		opts.PageSize = 250
	}
	if opts.RequestsPerSecond <= 0 {
		opts.RequestsPerSecond = 2
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Minute
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 5,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &Client{
		opts:    opts,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		sleep:   sleepCtx,
	}
}

type ordersPage struct {
	Orders []v1.Order `json:"orders"`
}

// Fetch returns every snapshot whose filter field lies in the window.
// Any failure is terminal for the window; no partial result is returned.
func (c *Client) Fetch(ctx context.Context, w v1.FetchWindow) ([]v1.Order, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.Timeout)
	defer cancel()

	started := time.Now()
	next := c.firstPageURL(w)
	var (
		orders []v1.Order
		pages  int
	)

	for next != "" {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("fetch orders: wait for page slot: %w", err)
		}

		page, link, err := c.getPage(ctx, next)
		if err != nil {
			return nil, fmt.Errorf("fetch orders: page %d: %w", pages+1, err)
		}
		pages++
		if len(page) == 0 {
			break
		}
		orders = append(orders, page...)
		next = link
	}

	slog.Info("[EventFetcher] Fetched window",
		"tenant", w.Tenant,
		"feed", w.Feed,
		"low", w.Low,
		"high", w.High,
		"orders", len(orders),
		"pages", pages,
		"duration", time.Since(started),
	)
	return orders, nil
}

func (c *Client) firstPageURL(w v1.FetchWindow) string {
	field := w.Feed.FilterField()
	q := url.Values{}
	q.Set("status", "any")
	q.Set("limit", strconv.Itoa(c.opts.PageSize))
	q.Set(field+"_min", w.Low.Format(time.RFC3339))
	q.Set(field+"_max", w.High.Format(time.RFC3339))
	q.Set("fields", strings.Join(Fields, ","))
	return c.opts.BaseURL + "/orders.json?" + q.Encode()
}

// getPage performs one page request, repeating it while the server answers 429.
func (c *Client) getPage(ctx context.Context, pageURL string) ([]v1.Order, string, error) {
	for attempt := 0; ; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
		if err != nil {
			return nil, "", fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("X-Shopify-Access-Token", c.opts.AccessToken)
		req.Header.Set("Accept", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, "", fmt.Errorf("request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp.Header.Get("Retry-After"))
			drainAndClose(resp.Body)
			if attempt >= c.opts.MaxRateLimitRetries {
				return nil, "", fmt.Errorf("%w after %d attempts", ErrRateLimited, attempt+1)
			}
			slog.Warn("[EventFetcher] Rate limited, waiting", "retry_after", wait, "attempt", attempt+1)
			if err := c.sleep(ctx, wait); err != nil {
				return nil, "", fmt.Errorf("wait for rate limit: %w", err)
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			drainAndClose(resp.Body)
			return nil, "", &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		var page ordersPage
		err = json.NewDecoder(resp.Body).Decode(&page)
		link := resp.Header.Get("Link")
		drainAndClose(resp.Body)
		if err != nil {
			return nil, "", fmt.Errorf("decode page: %w", err)
		}
		return page.Orders, NextLink(link), nil
	}
}

// NextLink extracts the rel="next" target of a Link header; empty when absent.
func NextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		segs := strings.Split(part, ";")
		if len(segs) < 2 {
			continue
		}
		for _, attr := range segs[1:] {
			if strings.TrimSpace(attr) == `rel="next"` {
				return strings.Trim(strings.TrimSpace(segs[0]), "<>")
			}
		}
	}
	return ""
}

// retryAfter parses delta-seconds (integer or fractional) or an HTTP date.
func retryAfter(v string) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return defaultRetryAfter
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs >= 0 {
		return time.Duration(secs * float64(time.Second))
	}
	if at, err := http.ParseTime(v); err == nil {
		if d := time.Until(at); d > 0 {
			return d
		}
		return 0
	}
	return defaultRetryAfter
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, io.LimitReader(body, 64<<10))
	_ = body.Close()
}
