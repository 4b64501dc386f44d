package summary

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

type hourKey struct {
	date time.Time
	hour int
}

// computeHourWise splits created orders by local creation hour and joins the
// hourly session counters; hours without counters get zero sessions.
func computeHourWise(created []*order, sessions []v1.HourlySessions) []HourRow {
	bySlot := make(map[hourKey]*HourRow)
	seen := make(map[hourKey]map[int64]struct{})
	for _, o := range created {
		k := hourKey{o.date, o.hour}
		row, ok := bySlot[k]
		if !ok {
			row = &HourRow{Date: o.date, Hour: o.hour}
			bySlot[k] = row
			seen[k] = make(map[int64]struct{})
		}
		if _, dup := seen[k][o.id]; dup {
			continue
		}
		seen[k][o.id] = struct{}{}
		row.Orders++
		row.TotalSales = row.TotalSales.Add(o.total)
		if isHourlyPrepaid(o.gateways) {
			row.Prepaid++
		}
		if hasCODMarker(o.gateways) {
			row.COD++
		}
	}

	for _, s := range sessions {
		if row, ok := bySlot[hourKey{coreagg.DateOf(s.Date), s.Hour}]; ok {
			row.Sessions = s.Sessions
			row.ATCSessions = s.ATCSessions
		}
	}

	rows := make([]HourRow, 0, len(bySlot))
	for _, row := range bySlot {
		row.TotalSales = coreagg.Money(row.TotalSales)
		rows = append(rows, *row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if !rows[i].Date.Equal(rows[j].Date) {
			return rows[i].Date.Before(rows[j].Date)
		}
		return rows[i].Hour < rows[j].Hour
	})
	return rows
}
