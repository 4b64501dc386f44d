package sessions

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

// SlotCount is the cumulative counter observed for an hour slot.
type SlotCount struct {
	Slot    time.Time
	Counter Counter
}

// Fold turns cumulative counters into per-hour counts. Slots are walked newest
// first; the accumulator is the cumulative value of the next more recent slot,
// so an hour's count is its cumulative value minus that, floored at zero.
func Fold(counts []SlotCount, loc *time.Location) []v1.HourlySessions {
	ordered := make([]SlotCount, len(counts))
	copy(ordered, counts)
	sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Slot.After(ordered[j].Slot) })

	out := make([]v1.HourlySessions, 0, len(ordered))
	var next Counter
	for _, sc := range ordered {
		out = append(out, v1.HourlySessions{
			Date:        coreagg.CivilDate(sc.Slot, loc),
			Hour:        coreagg.LocalHour(sc.Slot, loc),
			Sessions:    max(0, sc.Counter.Sessions-next.Sessions),
			ATCSessions: max(0, sc.Counter.Events-next.Events),
		})
		next = sc.Counter
	}
	return out
}
