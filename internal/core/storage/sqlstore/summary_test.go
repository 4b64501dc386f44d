package sqlstore

import (
	"context"
	"database/sql/driver"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/summary"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func march(day int) time.Time {
	return time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC)
}

func TestReplaceSales_DeletesRangeThenInsertsBothTables(t *testing.T) {
	store, mock := newMockStore(t)
	rng := v1.DateRange{Min: march(1), Max: march(2)}
	rows := []summary.SalesRow{{
		Date:               march(1),
		DirectSales:        decimal.NewFromInt(100),
		ActualDirectSales:  decimal.NewFromInt(100),
		OverallSales:       decimal.NewFromInt(150),
		ActualOverallSales: decimal.NewFromInt(150),
		Channels: []summary.ChannelSales{
			{Channel: "GoKwik", Sales: decimal.NewFromInt(50), Actual: decimal.NewFromInt(50)},
		},
	}}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales_summary WHERE date BETWEEN $1 AND $2")).
		WithArgs(march(1), march(2)).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sales_channel_summary WHERE date BETWEEN $1 AND $2")).
		WithArgs(march(1), march(2)).
		WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectPrepare(regexp.QuoteMeta(
		"INSERT INTO sales_summary (date, direct_sales, direct_returns, actual_direct_sales, overall_sales, overall_returns, actual_overall_sales) VALUES ($1, $2, $3, $4, $5, $6, $7)")).
		ExpectExec().
		WithArgs(march(1), "100", "0", "100", "150", "0", "150").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(regexp.QuoteMeta(
		"INSERT INTO sales_channel_summary (date, channel, sales, returns, actual_sales) VALUES ($1, $2, $3, $4, $5)")).
		ExpectExec().
		WithArgs(march(1), "GoKwik", "50", "0", "50").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.ReplaceSales(context.Background(), rng, rows))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceOrderCounts_EmptyRangeOnlyDeletes(t *testing.T) {
	store, mock := newMockStore(t)
	rng := v1.DateRange{Min: march(5), Max: march(5)}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM order_summary WHERE date BETWEEN $1 AND $2")).
		WithArgs(march(5), march(5)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	require.NoError(t, store.ReplaceOrderCounts(context.Background(), rng, nil))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceGross_InsertFailureRollsBack(t *testing.T) {
	store, mock := newMockStore(t)
	rng := v1.DateRange{Min: march(1), Max: march(1)}

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM gross_summary WHERE date BETWEEN $1 AND $2")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectPrepare(regexp.QuoteMeta(store.q.gross.insert)).
		ExpectExec().
		WillReturnError(assert.AnError)
	mock.ExpectRollback()

	err := store.ReplaceGross(context.Background(), rng, []summary.GrossRow{{Date: march(1)}})
	require.ErrorIs(t, err, assert.AnError)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdatedOrders_ScansRawRows(t *testing.T) {
	store, mock := newMockStore(t)
	rng := v1.DateRange{Min: march(1), Max: march(3)}
	createdAt := time.Date(2024, 2, 28, 9, 30, 0, 0, time.UTC)
	updatedAt := time.Date(2024, 3, 2, 11, 0, 0, 0, time.UTC)

	values := make([]driver.Value, len(orderColumns))
	values[0], values[1], values[2] = int64(42), int64(0), "#1042"
	values[4] = "refunded"
	values[5] = ""
	values[7], values[8], values[9] = createdAt, march(28).AddDate(0, -1, 0), int64(15)
	values[10], values[11] = updatedAt, time.Date(2024, 3, 2, 0, 0, 0, 0, time.FixedZone("IST", 19800))
	values[18] = "1250.50"

	mock.ExpectQuery(regexp.QuoteMeta(store.q.updatedOrders)).
		WithArgs(march(1), march(3)).
		WillReturnRows(sqlmock.NewRows(orderColumns).AddRow(values...))

	rows, err := store.UpdatedOrders(context.Background(), rng)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	r := rows[0]
	assert.Equal(t, int64(42), r.OrderID)
	assert.Equal(t, "#1042", r.OrderName)
	assert.Equal(t, "refunded", r.FinancialStatus.String)
	assert.Equal(t, createdAt, r.CreatedAt)
	assert.Equal(t, 15, r.CreatedHour)
	assert.Equal(t, updatedAt, r.UpdatedAt.Time)
	assert.Equal(t, march(2), r.UpdatedDate.Time)
	assert.False(t, r.CancelledAt.Valid)
	assert.Equal(t, "1250.5", r.TotalPrice.Decimal.String())
	assert.False(t, r.ShippingPrice.Valid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRefundTotals(t *testing.T) {
	store, mock := newMockStore(t)
	rng := v1.DateRange{Min: march(1), Max: march(31)}

	mock.ExpectQuery(regexp.QuoteMeta(store.q.refundTotals)).
		WithArgs(march(1), march(31)).
		WillReturnRows(sqlmock.NewRows([]string{"event_date", "sum"}).
			AddRow(march(3), "200.00").
			AddRow(march(9), "15.25"))

	got, err := store.RefundTotals(context.Background(), rng)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, march(3), got[0].Date)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(200)))
	assert.Equal(t, "15.25", got[1].Amount.String())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestOverallRows_SetsDay(t *testing.T) {
	store, mock := newMockStore(t)
	rng := v1.DateRange{Min: march(1), Max: march(1)}

	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT date, gross_sales, total_discount_amount, total_sales, net_sales, total_orders, cod_orders, prepaid_orders, partially_paid_orders, total_sessions, total_atc_sessions, adjusted_total_sessions FROM overall_summary WHERE date BETWEEN $1 AND $2 ORDER BY date")).
		WithArgs(march(1), march(1)).
		WillReturnRows(sqlmock.NewRows(overallColumns).
			AddRow(march(1), "840", "20", "1000", "820", int64(4), int64(1), int64(3), int64(0), int64(90), int64(12), int64(80)))

	rows, err := store.OverallRows(context.Background(), rng)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "2024-03-01", rows[0].Day)
	assert.Equal(t, "820", rows[0].NetSales.String())
	assert.Equal(t, int64(80), rows[0].AdjustedTotalSessions)
	require.NoError(t, mock.ExpectationsWereMet())
}
