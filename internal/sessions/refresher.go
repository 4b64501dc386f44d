package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

// DefaultLookback is how far back the first refresh of a tenant starts.
const DefaultLookback = 60 * time.Minute

// CounterSource returns cumulative counters from a slot start until now.
type CounterSource interface {
	Cumulative(ctx context.Context, slot time.Time) (Counter, error)
}

// Store persists session counters and the refresh checkpoint.
type Store interface {
	SessionCheckpoint(ctx context.Context) (time.Time, bool, error)
	// SaveSessions upserts the hourly rows, rolls daily rows up from the
	// hourly table for dates >= rollupFrom keeping operator adjustments, and
	// moves the checkpoint, all in one transaction.
	SaveSessions(ctx context.Context, hourly []v1.HourlySessions, rollupFrom time.Time, checkpoint time.Time) error
}

// Result reports one refresh.
type Result struct {
	From  time.Time `json:"from"`
	To    time.Time `json:"to"`
	Slots int       `json:"slots"`
}

// Refresher brings one tenant's session tables up to now.
type Refresher struct {
	source CounterSource
	loc    *time.Location
	now    func() time.Time
}

func NewRefresher(source CounterSource, loc *time.Location) *Refresher {
	if loc == nil {
		loc = time.UTC
	}
	return &Refresher{source: source, loc: loc, now: time.Now}
}

// Slots returns the hour slots from start's hour through now's hour, newest
// first.
func Slots(start, now time.Time, loc *time.Location) []time.Time {
	last := coreagg.HourSlot(now, loc)
	var slots []time.Time
	for s := coreagg.HourSlot(start, loc); !s.After(last); s = coreagg.HourSlot(s.Add(time.Hour), loc) {
		slots = append(slots, s)
	}
	for i, j := 0, len(slots)-1; i < j; i, j = i+1, j-1 {
		slots[i], slots[j] = slots[j], slots[i]
	}
	return slots
}

// Refresh fetches every slot since the checkpoint. Slots are requested one at
// a time, newest first, since each hour's count depends on the next hour's
// cumulative value. Any failed slot aborts the refresh without moving the
// checkpoint.
func (r *Refresher) Refresh(ctx context.Context, store Store) (Result, error) {
	now := r.now().In(r.loc)
	start, ok, err := store.SessionCheckpoint(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("refresh sessions: read checkpoint: %w", err)
	}
	if !ok {
		start = now.Add(-DefaultLookback)
	}
	start = start.In(r.loc)
	res := Result{From: start, To: now}
	if !start.Before(now) {
		slog.Debug("[Sessions] Nothing to refresh", "last", start)
		return res, nil
	}

	slots := Slots(start, now, r.loc)
	counts := make([]SlotCount, 0, len(slots))
	for _, slot := range slots {
		c, err := r.source.Cumulative(ctx, slot)
		if err != nil {
			return res, fmt.Errorf("refresh sessions: %w", err)
		}
		counts = append(counts, SlotCount{Slot: slot, Counter: c})
	}

	hourly := Fold(counts, r.loc)
	if err := store.SaveSessions(ctx, hourly, coreagg.CivilDate(start, r.loc), now); err != nil {
		return res, fmt.Errorf("refresh sessions: save: %w", err)
	}

	res.Slots = len(slots)
	slog.Info("[Sessions] Refreshed counters", "from", start, "to", now, "slots", len(slots))
	return res, nil
}
