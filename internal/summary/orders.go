package summary

import (
	"time"
)

type paymentCounts struct {
	orders, cod, prepaid, partiallyPaid int64
}

func (c *paymentCounts) add(o *order) {
	c.orders++
	if isCOD(o.gateways) {
		c.cod++
	}
	if isPrepaid(o.gateways) {
		c.prepaid++
	}
	if isPartiallyPaid(o.gateways) {
		c.partiallyPaid++
	}
}

// countByDate counts distinct orders per date and payment class.
func countByDate(orders []*order) map[time.Time]*paymentCounts {
	type key struct {
		date time.Time
		id   int64
	}
	seen := make(map[key]struct{}, len(orders))
	out := make(map[time.Time]*paymentCounts)
	for _, o := range orders {
		k := key{o.date, o.id}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		c, ok := out[o.date]
		if !ok {
			c = &paymentCounts{}
			out[o.date] = c
		}
		c.add(o)
	}
	return out
}

func computeOrderCounts(created, returned []*order) []OrderCountRow {
	byCreated := countByDate(created)
	byReturned := countByDate(returned)

	dates := dateSet{}
	for d := range byCreated {
		dates.add(d)
	}
	for d := range byReturned {
		dates.add(d)
	}

	rows := make([]OrderCountRow, 0, len(dates))
	for _, d := range dates.sorted() {
		c, r := &paymentCounts{}, &paymentCounts{}
		if v, ok := byCreated[d]; ok {
			c = v
		}
		if v, ok := byReturned[d]; ok {
			r = v
		}
		rows = append(rows, OrderCountRow{
			Date:                 d,
			Created:              c.orders,
			Returned:             r.orders,
			Actual:               c.orders - r.orders,
			COD:                  c.cod - r.cod,
			Prepaid:              c.prepaid - r.prepaid,
			PartiallyPaid:        c.partiallyPaid - r.partiallyPaid,
			OverallCOD:           c.cod,
			OverallPrepaid:       c.prepaid,
			OverallPartiallyPaid: c.partiallyPaid,
		})
	}
	return rows
}
