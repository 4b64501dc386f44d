package summary

import (
	"time"

	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

func computeDiscounts(created, returned []*order) []DiscountRow {
	given := coreagg.NewAccumulator[time.Time](coreagg.OpSum)
	onReturns := coreagg.NewAccumulator[time.Time](coreagg.OpSum)
	dates := dateSet{}

	for _, o := range created {
		dates.add(o.date)
		given.Add(o.date, o.discount)
	}
	for _, o := range returned {
		dates.add(o.date)
		onReturns.Add(o.date, o.discount)
	}

	rows := make([]DiscountRow, 0, len(dates))
	for _, d := range dates.sorted() {
		g, _ := given.Get(d)
		r, _ := onReturns.Get(d)
		g, r = coreagg.Money(g), coreagg.Money(r)
		rows = append(rows, DiscountRow{Date: d, Given: g, OnReturns: r, Actual: g.Sub(r)})
	}
	return rows
}
