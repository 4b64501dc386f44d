package summary

import (
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

// computeOverall rolls the day up from the rows already written for the range.
// A date appears only when it has a sales row.
func computeOverall(
	sales []SalesRow,
	counts []OrderCountRow,
	gross []GrossRow,
	discounts []DiscountRow,
	daily []v1.DailySessions,
) []OverallRow {
	countsBy := make(map[time.Time]OrderCountRow, len(counts))
	for _, c := range counts {
		countsBy[coreagg.DateOf(c.Date)] = c
	}
	grossBy := make(map[time.Time]GrossRow, len(gross))
	for _, g := range gross {
		grossBy[coreagg.DateOf(g.Date)] = g
	}
	discBy := make(map[time.Time]DiscountRow, len(discounts))
	for _, d := range discounts {
		discBy[coreagg.DateOf(d.Date)] = d
	}
	sessBy := make(map[time.Time]v1.DailySessions, len(daily))
	for _, s := range daily {
		sessBy[coreagg.DateOf(s.Date)] = s
	}

	dates := dateSet{}
	salesBy := make(map[time.Time]SalesRow, len(sales))
	for _, s := range sales {
		d := coreagg.DateOf(s.Date)
		dates.add(d)
		salesBy[d] = s
	}

	rows := make([]OverallRow, 0, len(dates))
	for _, d := range dates.sorted() {
		c, g, disc, sess := countsBy[d], grossBy[d], discBy[d], sessBy[d]
		adjusted := sess.Sessions
		if sess.Adjusted.Valid {
			adjusted = sess.Adjusted.Int64
		}
		rows = append(rows, OverallRow{
			Date:                  d,
			Day:                   d.Format(coreagg.DateLayout),
			GrossSales:            g.GrossSales,
			TotalDiscountAmount:   disc.Actual,
			TotalSales:            salesBy[d].ActualOverallSales,
			NetSales:              g.NetSales,
			TotalOrders:           c.Created,
			COD:                   c.OverallCOD,
			Prepaid:               c.OverallPrepaid,
			PartiallyPaid:         c.OverallPartiallyPaid,
			TotalSessions:         sess.Sessions,
			TotalATCSessions:      sess.ATCSessions,
			AdjustedTotalSessions: adjusted,
		})
	}
	return rows
}
