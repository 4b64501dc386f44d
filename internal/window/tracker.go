// Package window decides which slice of upstream history a feed fetches next.
package window

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
)

// StorageResolution is the precision of timestamps in the raw tables.
const StorageResolution = time.Second

// CheckpointReader exposes the persisted high-water-mark of a feed and the
// entities stored exactly at it.
type CheckpointReader interface {
	// LastEventTime returns the feed's high-water-mark; false when none exists.
	LastEventTime(ctx context.Context, feed v1.Feed) (time.Time, bool, error)

	// EntityIDsAt returns ids of entities stored with exactly ts.
	EntityIDsAt(ctx context.Context, feed v1.Feed, ts time.Time) ([]int64, error)
}

// Override is an explicit absolute window that replaces incremental tracking.
type Override struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether the override has both bounds and Start < End.
func (o *Override) Valid() bool {
	return o != nil && !o.Start.IsZero() && !o.End.IsZero() && o.Start.Before(o.End)
}

// Plan is the outcome of window computation for one feed.
type Plan struct {
	Window v1.FetchWindow
	// Seen holds entities already stored at the previous high-water-mark.
	// Fetched snapshots with these ids are duplicates.
	Seen          map[int64]struct{}
	HighWaterMark time.Time
	Skip          bool
	SkipReason    string
}

// IsDuplicate reports whether the snapshot of id stamped ts was already stored
// at the boundary. A later snapshot of a seen entity is not a duplicate.
func (p Plan) IsDuplicate(id int64, ts time.Time) bool {
	if _, ok := p.Seen[id]; !ok {
		return false
	}
	return ts.Truncate(time.Second).Equal(p.HighWaterMark)
}

// Tracker computes fetch windows for one tenant.
type Tracker struct {
	tenant   string
	override *Override
	now      func() time.Time
}

// NewTracker returns a tracker. An invalid override is logged and ignored.
func NewTracker(tenant string, override *Override) *Tracker {
	if override != nil && !override.Valid() {
		slog.Warn("[WindowTracker] Ignoring malformed override window",
			"tenant", tenant,
			"start", override.Start,
			"end", override.End,
		)
		override = nil
	}
	return &Tracker{tenant: tenant, override: override, now: time.Now}
}

// Plan returns the next window for feed. With an override the checkpoint is
// not consulted at all.
func (t *Tracker) Plan(ctx context.Context, cp CheckpointReader, feed v1.Feed) (Plan, error) {
	if t.override != nil {
		return Plan{
			Window: v1.FetchWindow{
				Tenant:   t.tenant,
				Feed:     feed,
				Low:      t.override.Start,
				High:     t.override.End,
				Backfill: true,
			},
		}, nil
	}

	last, ok, err := cp.LastEventTime(ctx, feed)
	if err != nil {
		return Plan{}, fmt.Errorf("window plan: read high-water-mark: %w", err)
	}
	if !ok {
		return Plan{Skip: true, SkipReason: "no checkpoint; first run requires a backfill window"}, nil
	}

	plan := Plan{
		Window: v1.FetchWindow{
			Tenant: t.tenant,
			Feed:   feed,
			Low:    last.Add(StorageResolution),
			High:   t.now(),
		},
		HighWaterMark: last,
	}
	if plan.Window.Empty() {
		plan.Skip = true
		plan.SkipReason = "window empty; clock has not passed the high-water-mark"
		return plan, nil
	}

	ids, err := cp.EntityIDsAt(ctx, feed, last)
	if err != nil {
		return Plan{}, fmt.Errorf("window plan: read boundary ids: %w", err)
	}
	plan.Seen = make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		plan.Seen[id] = struct{}{}
	}

	return plan, nil
}
