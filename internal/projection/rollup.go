package projection

import (
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/aevon-lab/orderpulse/internal/summary"
)

// addOverall adds every figure of b into a.
func addOverall(a *summary.OverallRow, b summary.OverallRow) {
	a.GrossSales = a.GrossSales.Add(b.GrossSales)
	a.TotalDiscountAmount = a.TotalDiscountAmount.Add(b.TotalDiscountAmount)
	a.TotalSales = a.TotalSales.Add(b.TotalSales)
	a.NetSales = a.NetSales.Add(b.NetSales)
	a.TotalOrders += b.TotalOrders
	a.COD += b.COD
	a.Prepaid += b.Prepaid
	a.PartiallyPaid += b.PartiallyPaid
	a.TotalSessions += b.TotalSessions
	a.TotalATCSessions += b.TotalATCSessions
	a.AdjustedTotalSessions += b.AdjustedTotalSessions
}

// rollupTotal sums all rows into one row dated at the range start.
func rollupTotal(rows []summary.OverallRow, rng v1.DateRange) []summary.OverallRow {
	total := summary.OverallRow{Date: rng.Min, Day: rng.Min.Format(coreagg.DateLayout)}
	for _, r := range rows {
		addOverall(&total, r)
	}
	return []summary.OverallRow{total}
}

// rollupToMonth groups daily rows into calendar months, dated at the first
// of the month. Rows must be sorted by date.
func rollupToMonth(rows []summary.OverallRow) []summary.OverallRow {
	var out []summary.OverallRow
	for _, r := range rows {
		month := time.Date(r.Date.Year(), r.Date.Month(), 1, 0, 0, 0, 0, time.UTC)
		if n := len(out); n == 0 || !out[n-1].Date.Equal(month) {
			out = append(out, summary.OverallRow{Date: month, Day: month.Format(coreagg.DateLayout)})
		}
		addOverall(&out[len(out)-1], r)
	}
	return out
}
