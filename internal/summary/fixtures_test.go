package summary

import (
	"database/sql"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

func day(m time.Month, d int) time.Time {
	return time.Date(2024, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

type lineOpt func(*v1.OrderRow)

func withMoney(total, discount, shipping, tax string) lineOpt {
	return func(r *v1.OrderRow) {
		r.TotalPrice = nullDec(total)
		r.DiscountAmount = nullDec(discount)
		r.ShippingPrice = nullDec(shipping)
		r.TotalTax = nullDec(tax)
	}
}

func withItem(qty int64, price string) lineOpt {
	return func(r *v1.OrderRow) {
		r.LineItemQuantity = sql.NullInt64{Int64: qty, Valid: true}
		r.LineItemPrice = nullDec(price)
	}
}

func createdLine(id int64, idx int, date time.Time, hour int, app, gateways string, opts ...lineOpt) v1.OrderRow {
	r := v1.OrderRow{
		OrderID:         id,
		LineIndex:       idx,
		CreatedDate:     date,
		CreatedHour:     hour,
		AppName:         str(app),
		PaymentGateways: sql.NullString{String: gateways, Valid: gateways != ""},
	}
	for _, o := range opts {
		o(&r)
	}
	return r
}

func updateRow(id int64, updatedAt time.Time, status, app, total, discount string) v1.OrderRow {
	return v1.OrderRow{
		OrderID:         id,
		FinancialStatus: str(status),
		AppName:         str(app),
		UpdatedAt:       sql.NullTime{Time: updatedAt, Valid: true},
		UpdatedDate:     sql.NullTime{Time: time.Date(updatedAt.Year(), updatedAt.Month(), updatedAt.Day(), 0, 0, 0, 0, time.UTC), Valid: true},
		TotalPrice:      nullDec(total),
		DiscountAmount:  nullDec(discount),
	}
}
