// Package flatten turns nested order snapshots into line-level rows for the
// raw feed tables.
package flatten

import (
	"database/sql"
	"log/slog"
	"strconv"
	"strings"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// Flattener maps snapshots for one tenant.
type Flattener struct {
	appNames map[string]string
	loc      *time.Location
}

// New returns a Flattener. appNames maps upstream app ids to the channel app
// names of the sales summary; unmapped ids are kept as the raw id.
func New(appNames map[string]string, loc *time.Location) *Flattener {
	if loc == nil {
		loc = time.UTC
	}
	return &Flattener{appNames: appNames, loc: loc}
}

// Flatten returns one row per line item, or one row for an order without line
// items. Snapshots without a usable id or feed timestamp are skipped.
func (f *Flattener) Flatten(orders []v1.Order, feed v1.Feed) []v1.OrderRow {
	rows := make([]v1.OrderRow, 0, len(orders))
	for i := range orders {
		o := &orders[i]
		if err := o.Validate(); err != nil {
			slog.Warn("[Flatten] Skipping snapshot", "feed", feed, "error", err)
			continue
		}
		if _, ok := o.TimestampFor(feed); !ok {
			slog.Warn("[Flatten] Skipping snapshot without feed timestamp", "feed", feed, "order_id", o.ID)
			continue
		}
		created, ok := v1.ParseTimestamp(o.CreatedAt)
		if !ok {
			slog.Warn("[Flatten] Skipping snapshot without created_at", "feed", feed, "order_id", o.ID)
			continue
		}
		rows = append(rows, f.order(o, created)...)
	}
	return rows
}

func (f *Flattener) order(o *v1.Order, created time.Time) []v1.OrderRow {
	created = created.Truncate(time.Second)
	base := v1.OrderRow{
		OrderID:           o.ID,
		OrderName:         o.Name,
		FinancialStatus:   nullString(o.FinancialStatus),
		FulfillmentStatus: o.FulfillmentStatus,
		Currency:          nullString(o.Currency),
		CreatedAt:         created,
		CreatedDate:       coreagg.CivilDate(created, f.loc),
		CreatedHour:       coreagg.LocalHour(created, f.loc),
		PaymentGateways:   nullString(strings.Join(o.PaymentGateways, ", ")),
		DiscountCodes:     nullString(discountCodes(o.DiscountCodes)),
		Tags:              nullString(o.Tags),
	}
	if o.Customer != nil && o.Customer.ID > 0 {
		base.CustomerID = sql.NullInt64{Int64: o.Customer.ID, Valid: true}
	}
	if t, ok := v1.ParseTimestamp(o.UpdatedAt); ok {
		t = t.Truncate(time.Second)
		base.UpdatedAt = sql.NullTime{Time: t, Valid: true}
		base.UpdatedDate = sql.NullTime{Time: coreagg.CivilDate(t, f.loc), Valid: true}
	}
	if t, ok := v1.ParseTimestamp(o.CancelledAt); ok {
		base.CancelledAt = sql.NullTime{Time: t.Truncate(time.Second), Valid: true}
	}
	if o.AppID != nil {
		id := strconv.FormatInt(*o.AppID, 10)
		base.AppID = nullString(id)
		if name, ok := f.appNames[id]; ok {
			base.AppName = nullString(name)
		} else {
			base.AppName = nullString(id)
		}
	}

	if len(o.LineItems) == 0 {
		first := base
		f.orderMoney(&first, o)
		return []v1.OrderRow{first}
	}

	rows := make([]v1.OrderRow, 0, len(o.LineItems))
	for i, li := range o.LineItems {
		row := base
		row.LineIndex = i
		row.LineItem = nullString(li.Title)
		row.SKU = nullString(li.SKU)
		row.VariantTitle = nullString(li.VariantTitle)
		row.LineItemPrice = coreagg.NullAmount(li.Price.String())
		row.LineItemQuantity = sql.NullInt64{Int64: li.Quantity.Value, Valid: li.Quantity.Valid}
		row.LineItemDiscount = coreagg.NullAmount(li.TotalDiscount.String())
		if li.ProductID != nil {
			row.ProductID = sql.NullInt64{Int64: *li.ProductID, Valid: true}
		}
		if li.VariantID != nil {
			row.VariantID = sql.NullInt64{Int64: *li.VariantID, Valid: true}
		}
		if i == 0 {
			f.orderMoney(&row, o)
		}
		rows = append(rows, row)
	}
	return rows
}

// orderMoney sets order-level amounts; only line 0 carries them.
func (f *Flattener) orderMoney(row *v1.OrderRow, o *v1.Order) {
	row.TotalPrice = coreagg.NullAmount(o.TotalPrice.String())
	row.TotalTax = coreagg.NullAmount(o.CurrentTotalTax.String())
	row.TotalDiscounts = coreagg.NullAmount(o.TotalDiscounts.String())
	if o.TotalShippingPrice != nil {
		row.ShippingPrice = coreagg.NullAmount(o.TotalShippingPrice.ShopMoney.Amount.String())
	}

	sum := decimal.Zero
	for _, dc := range o.DiscountCodes {
		if amt, ok := coreagg.ParseAmount(dc.Amount.String()); ok {
			sum = sum.Add(amt)
		}
	}
	if sum.IsPositive() {
		row.DiscountAmount = decimal.NewNullDecimal(sum)
	}
}

func discountCodes(codes []v1.DiscountCode) string {
	parts := make([]string, 0, len(codes))
	for _, dc := range codes {
		if dc.Code != "" {
			parts = append(parts, dc.Code)
		}
	}
	return strings.Join(parts, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
