// Package affected tracks the calendar dates touched by one tenant run.
package affected

import (
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

// Accumulator folds snapshot dates into a running [min, max] pair.
// It is not safe for concurrent use; a tenant processes its feeds serially.
type Accumulator struct {
	loc      *time.Location
	min, max time.Time
	seen     bool
}

func New(loc *time.Location) *Accumulator {
	if loc == nil {
		loc = time.UTC
	}
	return &Accumulator{loc: loc}
}

// Observe folds every date implied by the snapshot's created, updated,
// cancelled and refund timestamps. Unparsable timestamps are ignored.
func (a *Accumulator) Observe(o *v1.Order) {
	for _, s := range []string{o.CreatedAt, o.UpdatedAt, o.CancelledAt} {
		a.observeTimestamp(s)
	}
	for _, rf := range o.Refunds {
		a.observeTimestamp(rf.CreatedAt)
	}
}

// ObserveAll observes a whole batch.
func (a *Accumulator) ObserveAll(orders []v1.Order) {
	for i := range orders {
		a.Observe(&orders[i])
	}
}

func (a *Accumulator) observeTimestamp(s string) {
	t, ok := v1.ParseTimestamp(s)
	if !ok {
		return
	}
	a.ObserveDate(coreagg.CivilDate(t, a.loc))
}

// ObserveDate folds a civil date directly.
func (a *Accumulator) ObserveDate(d time.Time) {
	if !a.seen {
		a.min, a.max, a.seen = d, d, true
		return
	}
	if d.Before(a.min) {
		a.min = d
	}
	if d.After(a.max) {
		a.max = d
	}
}

// Range returns the enclosing range; false when no date was observed.
func (a *Accumulator) Range() (v1.DateRange, bool) {
	if !a.seen {
		return v1.DateRange{}, false
	}
	return v1.DateRange{Min: a.min, Max: a.max}, true
}
