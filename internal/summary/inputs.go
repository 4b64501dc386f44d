package summary

import (
	"sort"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// order is one order folded from its raw lines.
type order struct {
	id        int64
	date      time.Time
	hour      int
	appName   string
	gateways  string
	total     decimal.Decimal
	discount  decimal.Decimal
	shipping  decimal.Decimal
	tax       decimal.Decimal
	lineSales decimal.Decimal // Σ quantity × price over every line
}

// createdOrders folds raw lines into orders, in first-seen order.
func createdOrders(rows []v1.OrderRow) []*order {
	byID := make(map[int64]*order)
	var out []*order
	for i := range rows {
		row := &rows[i]
		o, ok := byID[row.OrderID]
		if !ok {
			o = &order{
				id:       row.OrderID,
				date:     coreagg.DateOf(row.CreatedDate),
				hour:     row.CreatedHour,
				appName:  row.AppName.String,
				gateways: row.PaymentGateways.String,
			}
			byID[row.OrderID] = o
			out = append(out, o)
		}
		if row.LineIndex == 0 {
			applyOrderMoney(o, row)
		}
		if row.LineItemQuantity.Valid && row.LineItemPrice.Valid {
			qty := decimal.NewFromInt(row.LineItemQuantity.Int64)
			o.lineSales = o.lineSales.Add(qty.Mul(row.LineItemPrice.Decimal))
		}
	}
	return out
}

// returnedOrders keeps the newest snapshot of each order per update date and
// then drops snapshots still paid or pending. An unknown status is not a return.
func returnedOrders(rows []v1.OrderRow) []*order {
	type key struct {
		id   int64
		date time.Time
	}
	newest := make(map[key]*v1.OrderRow)
	var keys []key
	for i := range rows {
		row := &rows[i]
		if row.LineIndex != 0 || !row.UpdatedDate.Valid {
			continue
		}
		k := key{row.OrderID, coreagg.DateOf(row.UpdatedDate.Time)}
		cur, ok := newest[k]
		if !ok {
			keys = append(keys, k)
			newest[k] = row
			continue
		}
		if row.UpdatedAt.Time.After(cur.UpdatedAt.Time) {
			newest[k] = row
		}
	}

	out := make([]*order, 0, len(keys))
	for _, k := range keys {
		row := newest[k]
		if !isReturnStatus(row.FinancialStatus.String, row.FinancialStatus.Valid) {
			continue
		}
		o := &order{
			id:       row.OrderID,
			date:     k.date,
			appName:  row.AppName.String,
			gateways: row.PaymentGateways.String,
		}
		applyOrderMoney(o, row)
		out = append(out, o)
	}
	return out
}

func isReturnStatus(status string, valid bool) bool {
	return valid && status != "paid" && status != "pending"
}

func applyOrderMoney(o *order, row *v1.OrderRow) {
	o.total = coreagg.OrZero(row.TotalPrice)
	o.discount = coreagg.OrZero(row.DiscountAmount)
	o.shipping = coreagg.OrZero(row.ShippingPrice)
	o.tax = coreagg.OrZero(row.TotalTax)
}

type dateSet map[time.Time]struct{}

func (s dateSet) add(d time.Time) { s[d] = struct{}{} }

func (s dateSet) sorted() []time.Time {
	out := make([]time.Time, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
