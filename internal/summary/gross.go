package summary

import (
	"time"

	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// computeGross derives gross and net sales for every created date. Discounts
// come from the already written discount rows of the same dates.
func computeGross(created []*order, discounts []DiscountRow, factor decimal.Decimal) []GrossRow {
	sale := coreagg.NewAccumulator[time.Time](coreagg.OpSum)
	shipping := coreagg.NewAccumulator[time.Time](coreagg.OpSum)
	tax := coreagg.NewAccumulator[time.Time](coreagg.OpSum)
	dates := dateSet{}
	for _, o := range created {
		dates.add(o.date)
		sale.Add(o.date, o.lineSales)
		shipping.Add(o.date, o.shipping)
		tax.Add(o.date, o.tax)
	}

	byDate := make(map[time.Time]DiscountRow, len(discounts))
	for _, d := range discounts {
		byDate[coreagg.DateOf(d.Date)] = d
	}

	rows := make([]GrossRow, 0, len(dates))
	for _, d := range dates.sorted() {
		s, _ := sale.Get(d)
		sh, _ := shipping.Get(d)
		tx, _ := tax.Get(d)
		disc := byDate[d]

		gross := coreagg.Money(s.Mul(factor))
		rows = append(rows, GrossRow{
			Date:            d,
			OverallSale:     coreagg.Money(s),
			ShippingTotal:   coreagg.Money(sh),
			DiscountsTotal:  disc.Given,
			TaxTotal:        coreagg.Money(tx),
			GrossSales:      gross,
			ActualDiscounts: disc.Actual,
			NetSales:        gross.Sub(disc.Actual),
		})
	}
	return rows
}
