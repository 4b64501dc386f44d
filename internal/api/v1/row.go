package v1

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// OrderRow is one flattened line of an order as stored in the raw feed tables.
// Order-level amounts are only set on LineIndex 0 so that summing a column over
// all rows of an order yields the order total.
type OrderRow struct {
	OrderID           int64
	LineIndex         int
	OrderName         string
	CustomerID        sql.NullInt64
	FinancialStatus   sql.NullString
	FulfillmentStatus string
	Currency          sql.NullString
	CreatedAt         time.Time
	CreatedDate       time.Time
	CreatedHour       int
	UpdatedAt         sql.NullTime
	UpdatedDate       sql.NullTime
	CancelledAt       sql.NullTime
	AppID             sql.NullString
	AppName           sql.NullString
	PaymentGateways   sql.NullString
	DiscountCodes     sql.NullString
	DiscountAmount    decimal.NullDecimal
	TotalPrice        decimal.NullDecimal
	ShippingPrice     decimal.NullDecimal
	TotalTax          decimal.NullDecimal
	TotalDiscounts    decimal.NullDecimal
	SKU               sql.NullString
	VariantTitle      sql.NullString
	LineItem          sql.NullString
	LineItemPrice     decimal.NullDecimal
	LineItemQuantity  sql.NullInt64
	LineItemDiscount  decimal.NullDecimal
	ProductID         sql.NullInt64
	VariantID         sql.NullInt64
	Tags              sql.NullString
}

// EventTime is the row timestamp the feed's checkpoint is measured on.
func (r *OrderRow) EventTime(feed Feed) time.Time {
	if feed == FeedUpdated && r.UpdatedAt.Valid {
		return r.UpdatedAt.Time
	}
	return r.CreatedAt
}
