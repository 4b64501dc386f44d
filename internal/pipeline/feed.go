package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/aevon-lab/orderpulse/internal/affected"
	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/window"
)

// runFeed takes one feed from window computation to reconciled facts. Rows,
// facts and the advanced checkpoint commit in one transaction on a single
// connection. Every fetched snapshot is folded into acc, duplicates included.
func runFeed(ctx context.Context, logger *slog.Logger, tc *TenantContext, feed v1.Feed, acc *affected.Accumulator) (res FeedResult) {
	res = FeedResult{Feed: feed}

	sess, err := tc.Store.OpenFeed(ctx)
	if err != nil {
		res.fail(fmt.Errorf("feed %s: acquire connection: %w", feed, err))
		return res
	}
	defer sess.Close()

	plan, err := tc.Tracker.Plan(ctx, sess, feed)
	if err != nil {
		res.fail(fmt.Errorf("feed %s: %w", feed, err))
		return res
	}
	if plan.Skip {
		res.advance(StateSkipped)
		res.Reason = plan.SkipReason
		logger.Info("[Orchestrator] Feed skipped", "feed", feed, "reason", plan.SkipReason)
		return res
	}
	res.Low, res.High, res.Backfill = plan.Window.Low, plan.Window.High, plan.Window.Backfill
	res.advance(StateWindowComputed)

	orders, err := tc.Fetcher.Fetch(ctx, plan.Window)
	if err != nil {
		res.fail(fmt.Errorf("feed %s: fetch: %w", feed, err))
		return res
	}
	res.Fetched = len(orders)
	res.advance(StateFetched)
	acc.ObserveAll(orders)

	fresh := dropBoundaryDuplicates(orders, plan)
	res.Duplicates = len(orders) - len(fresh)
	res.advance(StateDeduped)

	rows := tc.Flattener.Flatten(fresh, feed)

	tx, err := sess.Begin(ctx)
	if err != nil {
		res.fail(fmt.Errorf("feed %s: %w", feed, err))
		return res
	}
	defer tx.Rollback() //nolint:errcheck

	inserted, err := tx.InsertRows(ctx, feed, rows)
	if err != nil {
		res.fail(fmt.Errorf("feed %s: persist rows: %w", feed, err))
		return res
	}
	res.Rows = inserted
	res.advance(StatePersisted)

	facts, err := tc.Reconciler.Reconcile(ctx, tx, fresh)
	if err != nil {
		res.fail(fmt.Errorf("feed %s: %w", feed, err))
		return res
	}
	res.Facts = facts

	if hwm, ok := latestEventTime(rows, feed); ok {
		if err := tx.AdvanceCheckpoint(ctx, feed, hwm); err != nil {
			res.fail(fmt.Errorf("feed %s: %w", feed, err))
			return res
		}
	}
	if err := tx.Commit(); err != nil {
		res.fail(fmt.Errorf("feed %s: commit: %w", feed, err))
		return res
	}
	res.advance(StateReconciled)

	logger.Info("[Orchestrator] Feed reconciled",
		"feed", feed,
		"backfill", plan.Window.Backfill,
		"window_low", plan.Window.Low,
		"window_high", plan.Window.High,
		"fetched", res.Fetched,
		"duplicates", res.Duplicates,
		"rows", res.Rows,
		"facts", res.Facts,
	)
	return res
}

// dropBoundaryDuplicates removes snapshots already stored at the previous
// high-water-mark.
func dropBoundaryDuplicates(orders []v1.Order, plan window.Plan) []v1.Order {
	if len(plan.Seen) == 0 {
		return orders
	}
	fresh := make([]v1.Order, 0, len(orders))
	for _, o := range orders {
		ts, ok := o.TimestampFor(plan.Window.Feed)
		if ok && plan.IsDuplicate(o.ID, ts) {
			continue
		}
		fresh = append(fresh, o)
	}
	return fresh
}

// latestEventTime is the newest feed timestamp among rows at storage
// resolution.
func latestEventTime(rows []v1.OrderRow, feed v1.Feed) (time.Time, bool) {
	var latest time.Time
	for i := range rows {
		if ts := rows[i].EventTime(feed); ts.After(latest) {
			latest = ts
		}
	}
	if latest.IsZero() {
		return time.Time{}, false
	}
	return latest.Truncate(window.StorageResolution), true
}
