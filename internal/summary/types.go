// Package summary recomputes the derived daily and hourly tables for a range
// of dates.
package summary

import (
	"context"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/shopspring/decimal"
)

// Table names in recompute order.
const (
	TableSales     = "sales_summary"
	TableOrders    = "order_summary"
	TableDiscounts = "discount_summary"
	TableGross     = "gross_summary"
	TableHourWise  = "hour_wise_sales"
	TableOverall   = "overall_summary"
)

// ChannelSales is one channel's figures for a day.
type ChannelSales struct {
	Channel string
	Sales   decimal.Decimal
	Returns decimal.Decimal
	Actual  decimal.Decimal
}

// SalesRow is a sales_summary row with its sales_channel_summary children.
// Rows read back from storage carry no Channels.
type SalesRow struct {
	Date               time.Time
	Channels           []ChannelSales
	DirectSales        decimal.Decimal
	DirectReturns      decimal.Decimal
	ActualDirectSales  decimal.Decimal
	OverallSales       decimal.Decimal
	OverallReturns     decimal.Decimal
	ActualOverallSales decimal.Decimal
}

type OrderCountRow struct {
	Date                 time.Time
	Created              int64
	Returned             int64
	Actual               int64
	COD                  int64
	Prepaid              int64
	PartiallyPaid        int64
	OverallCOD           int64
	OverallPrepaid       int64
	OverallPartiallyPaid int64
}

type DiscountRow struct {
	Date      time.Time
	Given     decimal.Decimal
	OnReturns decimal.Decimal
	Actual    decimal.Decimal
}

type GrossRow struct {
	Date            time.Time
	OverallSale     decimal.Decimal
	ShippingTotal   decimal.Decimal
	DiscountsTotal  decimal.Decimal
	TaxTotal        decimal.Decimal
	GrossSales      decimal.Decimal
	ActualDiscounts decimal.Decimal
	NetSales        decimal.Decimal
}

type HourRow struct {
	Date        time.Time
	Hour        int
	Orders      int64
	TotalSales  decimal.Decimal
	Prepaid     int64
	COD         int64
	Sessions    int64
	ATCSessions int64
}

type OverallRow struct {
	Date                  time.Time       `json:"-"`
	Day                   string          `json:"date"`
	GrossSales            decimal.Decimal `json:"gross_sales"`
	TotalDiscountAmount   decimal.Decimal `json:"total_discount_amount"`
	TotalSales            decimal.Decimal `json:"total_sales"`
	NetSales              decimal.Decimal `json:"net_sales"`
	TotalOrders           int64           `json:"total_orders"`
	COD                   int64           `json:"cod_orders"`
	Prepaid               int64           `json:"prepaid_orders"`
	PartiallyPaid         int64           `json:"partially_paid_orders"`
	TotalSessions         int64           `json:"total_sessions"`
	TotalATCSessions      int64           `json:"total_atc_sessions"`
	AdjustedTotalSessions int64           `json:"adjusted_total_sessions"`
}

// DatedAmount is a per-day total.
type DatedAmount struct {
	Date   time.Time
	Amount decimal.Decimal
}

// Inputs reads the source rows of a recompute. Every method is restricted to
// the given range.
type Inputs interface {
	// CreatedLines returns every raw line of orders created in the range.
	CreatedLines(ctx context.Context, r v1.DateRange) ([]v1.OrderRow, error)
	// UpdatedOrders returns the line 0 row of every update snapshot dated in the range.
	UpdatedOrders(ctx context.Context, r v1.DateRange) ([]v1.OrderRow, error)
	// RefundTotals sums REFUND facts per date.
	RefundTotals(ctx context.Context, r v1.DateRange) ([]DatedAmount, error)
	HourlySessions(ctx context.Context, r v1.DateRange) ([]v1.HourlySessions, error)
	DailySessions(ctx context.Context, r v1.DateRange) ([]v1.DailySessions, error)
}

// Tables replaces the rows of each summary table for a range and reads them
// back. Each Replace deletes every row in the range and inserts rows in one
// transaction.
type Tables interface {
	ReplaceSales(ctx context.Context, r v1.DateRange, rows []SalesRow) error
	ReplaceOrderCounts(ctx context.Context, r v1.DateRange, rows []OrderCountRow) error
	ReplaceDiscounts(ctx context.Context, r v1.DateRange, rows []DiscountRow) error
	ReplaceGross(ctx context.Context, r v1.DateRange, rows []GrossRow) error
	ReplaceHourWise(ctx context.Context, r v1.DateRange, rows []HourRow) error
	ReplaceOverall(ctx context.Context, r v1.DateRange, rows []OverallRow) error

	SalesRows(ctx context.Context, r v1.DateRange) ([]SalesRow, error)
	OrderCountRows(ctx context.Context, r v1.DateRange) ([]OrderCountRow, error)
	DiscountRows(ctx context.Context, r v1.DateRange) ([]DiscountRow, error)
	GrossRows(ctx context.Context, r v1.DateRange) ([]GrossRow, error)
	OverallRows(ctx context.Context, r v1.DateRange) ([]OverallRow, error)
}

// Store is everything a recompute touches.
type Store interface {
	Inputs
	Tables
}
