// Package sessions keeps the hourly and daily session counters of a tenant
// current from the collector's cumulative counters.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// SlotLayout is the slot timestamp form the collector expects in the path.
const SlotLayout = "2006-01-02T15:04:05-07:00"

const atcEvent = "product_added_to_cart"

var defaultBackoff = []time.Duration{time.Second, 2 * time.Second, 4 * time.Second}

// Counter holds cumulative counts from a slot start until now.
type Counter struct {
	Sessions int64 `json:"totalSessions"`
	Events   int64 `json:"totalEvents"`
}

// Client queries the session collector.
type Client struct {
	baseURL      string
	brand        string
	collectorKey string
	http         *http.Client
	backoff      []time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewClient(baseURL, brand, collectorKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		brand:        brand,
		collectorKey: collectorKey,
		http:         httpClient,
		backoff:      defaultBackoff,
		sleep:        sleepCtx,
	}
}

// SlotURL is the request URL for a slot; the offset sign is percent-encoded.
func (c *Client) SlotURL(slot time.Time) string {
	ts := strings.ReplaceAll(slot.Format(SlotLayout), "+", "%2B")
	return fmt.Sprintf("%s/%s/?eventName=%s", c.baseURL, ts, atcEvent)
}

// Cumulative returns the counters from slot until now. 429 and 5xx responses
// are retried with backoff; anything else non-2xx fails at once.
func (c *Client) Cumulative(ctx context.Context, slot time.Time) (Counter, error) {
	url := c.SlotURL(slot)
	for attempt := 0; ; attempt++ {
		counter, retry, err := c.get(ctx, url)
		if err == nil {
			return counter, nil
		}
		if !retry || attempt >= len(c.backoff) {
			return Counter{}, fmt.Errorf("session counters for %s: %w", slot.Format(SlotLayout), err)
		}
		slog.Warn("[Sessions] Retrying collector request",
			"slot", slot.Format(SlotLayout),
			"attempt", attempt+1,
			"backoff", c.backoff[attempt],
			"error", err,
		)
		if err := c.sleep(ctx, c.backoff[attempt]); err != nil {
			return Counter{}, fmt.Errorf("session counters for %s: %w", slot.Format(SlotLayout), err)
		}
	}
}

func (c *Client) get(ctx context.Context, url string) (Counter, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Counter{}, false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Brand", c.brand)
	req.Header.Set("X-Collector-Key", c.collectorKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return Counter{}, ctx.Err() == nil, fmt.Errorf("request: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return Counter{}, true, fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Counter{}, false, fmt.Errorf("collector returned %d", resp.StatusCode)
	}

	var counter Counter
	if err := json.NewDecoder(resp.Body).Decode(&counter); err != nil {
		return Counter{}, false, fmt.Errorf("decode counters: %w", err)
	}
	return counter, false, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
