package summary

import (
	"time"

	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// computeSales builds per-channel sales and returns. Overall returns come from
// the REFUND facts only.
func computeSales(catalog *coreagg.ChannelCatalog, created, returned []*order, refunds []DatedAmount) []SalesRow {
	type chanKey struct {
		date    time.Time
		channel string
	}
	sales := coreagg.NewAccumulator[chanKey](coreagg.OpSum)
	returns := coreagg.NewAccumulator[chanKey](coreagg.OpSum)
	refundByDate := coreagg.NewAccumulator[time.Time](coreagg.OpSum)
	dates := dateSet{}

	for _, o := range created {
		dates.add(o.date)
		if ch, ok := catalog.Lookup(o.appName); ok {
			sales.Add(chanKey{o.date, ch.Name}, o.total)
		}
	}
	for _, o := range returned {
		dates.add(o.date)
		if ch, ok := catalog.Lookup(o.appName); ok {
			returns.Add(chanKey{o.date, ch.Name}, o.total)
		}
	}
	for _, rf := range refunds {
		d := coreagg.DateOf(rf.Date)
		dates.add(d)
		refundByDate.Add(d, rf.Amount)
	}

	get := func(acc *coreagg.Accumulator[chanKey], k chanKey) decimal.Decimal {
		v, _ := acc.Get(k)
		return v
	}

	rows := make([]SalesRow, 0, len(dates))
	for _, d := range dates.sorted() {
		row := SalesRow{Date: d}
		for _, ch := range catalog.Channels {
			k := chanKey{d, ch.Name}
			s, r := coreagg.Money(get(sales, k)), coreagg.Money(get(returns, k))
			row.Channels = append(row.Channels, ChannelSales{
				Channel: ch.Name,
				Sales:   s,
				Returns: r,
				Actual:  s.Sub(r),
			})
			row.OverallSales = row.OverallSales.Add(s)
			if !ch.External {
				row.DirectSales = row.DirectSales.Add(s)
				row.DirectReturns = row.DirectReturns.Add(r)
			}
		}
		refunded, _ := refundByDate.Get(d)
		row.ActualDirectSales = row.DirectSales.Sub(row.DirectReturns)
		row.OverallReturns = coreagg.Money(refunded)
		row.ActualOverallSales = row.OverallSales.Sub(row.OverallReturns)
		rows = append(rows, row)
	}
	return rows
}
