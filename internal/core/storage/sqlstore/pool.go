package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/orderpulse/internal/core/storage"
)

// AcquireOptions bounds how long a feed waits for an exclusive connection.
type AcquireOptions struct {
	Attempts int
	Interval time.Duration
	Timeout  time.Duration // per attempt
}

func (o AcquireOptions) withDefaults() AcquireOptions {
	if o.Attempts <= 0 {
		o.Attempts = 10
	}
	if o.Interval < 0 {
		o.Interval = 0
	}
	if o.Timeout <= 0 {
		o.Timeout = 2 * time.Second
	}
	return o
}

// conn takes a dedicated connection out of the pool, retrying while the pool
// is saturated. Caller must Close it.
func (s *Store) conn(ctx context.Context) (*sql.Conn, error) {
	var lastErr error
	for attempt := 1; attempt <= s.acquire.Attempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, s.acquire.Timeout)
		c, err := s.db.Conn(attemptCtx)
		cancel()
		if err == nil {
			return c, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		slog.Debug("[SQLStore] Connection acquire attempt failed",
			"attempt", attempt,
			"error", err)

		if attempt == s.acquire.Attempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.acquire.Interval):
		}
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", storage.ErrPoolExhausted, s.acquire.Attempts, lastErr)
}
