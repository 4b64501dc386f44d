package storage

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
)

// ErrPoolExhausted is returned when no connection could be acquired within
// the configured attempts. It is fatal to the current tenant run only.
var ErrPoolExhausted = errors.New("database connection pool exhausted")

// FeedSession is an exclusive connection used for one feed's
// window-to-reconcile sequence.
type FeedSession interface {
	// LastEventTime returns the feed's high-water-mark. Without a recorded
	// checkpoint it falls back to the newest stored row; false when the feed
	// table is empty too.
	LastEventTime(ctx context.Context, feed v1.Feed) (time.Time, bool, error)

	// EntityIDsAt returns the ids stored with exactly ts in the feed table.
	EntityIDsAt(ctx context.Context, feed v1.Feed, ts time.Time) ([]int64, error)

	// Begin starts the transaction that writes rows, facts and checkpoint.
	Begin(ctx context.Context) (FeedTx, error)

	// Close returns the connection to the pool.
	Close() error
}

// FeedTx is the single transaction of a feed batch.
type FeedTx interface {
	// InsertRows inserts rows, ignoring ones whose natural key exists, and
	// returns the number actually inserted.
	InsertRows(ctx context.Context, feed v1.Feed, rows []v1.OrderRow) (int64, error)

	// UpsertReturnFacts replaces the amount of facts with the same identity.
	UpsertReturnFacts(ctx context.Context, facts []v1.ReturnFact) error

	// AdvanceCheckpoint moves the feed's high-water-mark to ts unless it is
	// already later.
	AdvanceCheckpoint(ctx context.Context, feed v1.Feed, ts time.Time) error

	Commit() error
	Rollback() error
}
