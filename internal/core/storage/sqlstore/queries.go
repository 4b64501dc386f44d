package sqlstore

import (
	"fmt"
	"strings"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
)

const (
	metaLastSessionFetch = "last_session_fetch_timestamp"
	metaLastCompletion   = "last_pipeline_completion_time"
)

// orderColumns is the column order shared by both raw feed tables.
var orderColumns = []string{
	"order_id", "line_index", "order_name", "customer_id", "financial_status",
	"fulfillment_status", "currency", "created_at", "created_date", "created_hour",
	"updated_at", "updated_date", "cancelled_at", "app_id", "app_name",
	"payment_gateways", "discount_codes", "discount_amount", "total_price",
	"shipping_price", "total_tax", "total_discounts", "sku", "variant_title",
	"line_item", "line_item_price", "line_item_quantity", "line_item_discount",
	"product_id", "variant_id", "tags",
}

type feedQueries struct {
	insert     string
	lastRow    string
	idsAt      string
	checkpoint string
}

type replaceQueries struct {
	delete string
	insert string
}

type queries struct {
	feeds map[v1.Feed]feedQueries

	readCheckpoint  string
	setMeta         string
	upsertFact      string
	createdLines    string
	updatedOrders   string
	refundTotals    string
	hourlySessions  string
	dailySessions   string
	upsertHourly    string
	rollupDaily     string
	sales           replaceQueries
	salesChannels   replaceQueries
	orderCounts     replaceQueries
	discounts       replaceQueries
	gross           replaceQueries
	hourWise        replaceQueries
	overall         replaceQueries
	selectSales     string
	selectCounts    string
	selectDiscounts string
	selectGross     string
	selectOverall   string
}

var (
	salesColumns = []string{"date", "direct_sales", "direct_returns", "actual_direct_sales",
		"overall_sales", "overall_returns", "actual_overall_sales"}
	channelColumns = []string{"date", "channel", "sales", "returns", "actual_sales"}
	countColumns   = []string{"date", "number_of_orders_created", "number_of_orders_returned",
		"actual_number_of_orders", "cod_orders", "prepaid_orders", "partially_paid_orders",
		"overall_cod_orders", "overall_prepaid_orders", "overall_partially_paid_orders"}
	discountColumns = []string{"date", "total_discounts_given", "total_discount_on_returns", "actual_discounts"}
	grossColumns    = []string{"date", "overall_sale", "shipping_total", "discounts_total", "tax_total",
		"gross_sales", "actual_discounts", "net_sales"}
	hourWiseColumns = []string{"date", "hour", "number_of_orders", "total_sales",
		"number_of_prepaid_orders", "number_of_cod_orders", "number_of_sessions", "number_of_atc_sessions"}
	overallColumns = []string{"date", "gross_sales", "total_discount_amount", "total_sales", "net_sales",
		"total_orders", "cod_orders", "prepaid_orders", "partially_paid_orders",
		"total_sessions", "total_atc_sessions", "adjusted_total_sessions"}
)

func insertInto(table string, columns []string) string {
	marks := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, strings.Join(columns, ", "), marks)
}

func selectRange(table string, columns []string) string {
	return fmt.Sprintf("SELECT %s FROM %s WHERE date BETWEEN ? AND ? ORDER BY %s",
		strings.Join(columns, ", "), table, orderBy(columns))
}

func orderBy(columns []string) string {
	if len(columns) > 1 && (columns[1] == "hour" || columns[1] == "channel") {
		return "date, " + columns[1]
	}
	return "date"
}

func replaceIn(d Dialect, table string, columns []string) replaceQueries {
	return replaceQueries{
		delete: d.Rebind(fmt.Sprintf("DELETE FROM %s WHERE date BETWEEN ? AND ?", table)),
		insert: d.Rebind(insertInto(table, columns)),
	}
}

func newQueries(d Dialect) *queries {
	q := &queries{feeds: make(map[v1.Feed]feedQueries, len(v1.Feeds))}

	meta := insertInto("pipeline_metadata", []string{"key_name", "key_value"})
	for _, feed := range v1.Feeds {
		table, ts := feed.Table(), feed.FilterField()
		q.feeds[feed] = feedQueries{
			insert:     d.Rebind(d.insertIgnore(insertInto(table, orderColumns), "order_id")),
			lastRow:    fmt.Sprintf("SELECT MAX(%s) FROM %s", ts, table),
			idsAt:      d.Rebind(fmt.Sprintf("SELECT DISTINCT order_id FROM %s WHERE %s = ? ORDER BY order_id", table, ts)),
			checkpoint: d.Rebind(d.upsertGreatest(meta, "pipeline_metadata", []string{"key_name"}, "key_value")),
		}
	}

	q.readCheckpoint = d.Rebind("SELECT key_value FROM pipeline_metadata WHERE key_name = ?")
	q.setMeta = d.Rebind(d.upsert(meta, []string{"key_name"}, []string{"key_value"}))
	q.upsertFact = d.Rebind(d.upsert(
		insertInto("returns_fact", []string{"order_id", "event_type", "event_date", "amount"}),
		[]string{"order_id", "event_type", "event_date"},
		[]string{"amount"}))

	q.createdLines = d.Rebind(fmt.Sprintf("SELECT %s FROM orders WHERE created_date BETWEEN ? AND ? ORDER BY order_id, line_index",
		strings.Join(orderColumns, ", ")))
	q.updatedOrders = d.Rebind(fmt.Sprintf("SELECT %s FROM order_updates WHERE line_index = 0 AND updated_date BETWEEN ? AND ? ORDER BY order_id, updated_at",
		strings.Join(orderColumns, ", ")))
	q.refundTotals = d.Rebind(`SELECT event_date, SUM(amount) FROM returns_fact
		WHERE event_type = 'REFUND' AND event_date BETWEEN ? AND ?
		GROUP BY event_date ORDER BY event_date`)
	q.hourlySessions = d.Rebind(`SELECT date, hour, number_of_sessions, number_of_atc_sessions
		FROM hourly_sessions_summary WHERE date BETWEEN ? AND ? ORDER BY date, hour`)
	q.dailySessions = d.Rebind(`SELECT date, number_of_sessions, number_of_atc_sessions, adjusted_number_of_sessions
		FROM sessions_summary WHERE date BETWEEN ? AND ? ORDER BY date`)

	q.upsertHourly = d.Rebind(d.upsert(
		insertInto("hourly_sessions_summary", []string{"date", "hour", "number_of_sessions", "number_of_atc_sessions"}),
		[]string{"date", "hour"},
		[]string{"number_of_sessions", "number_of_atc_sessions"}))
	q.rollupDaily = d.Rebind(d.upsert(
		`INSERT INTO sessions_summary (date, number_of_sessions, number_of_atc_sessions)
		SELECT date, SUM(number_of_sessions), SUM(number_of_atc_sessions)
		FROM hourly_sessions_summary WHERE date >= ? GROUP BY date`,
		[]string{"date"},
		[]string{"number_of_sessions", "number_of_atc_sessions"}))

	q.sales = replaceIn(d, "sales_summary", salesColumns)
	q.salesChannels = replaceIn(d, "sales_channel_summary", channelColumns)
	q.orderCounts = replaceIn(d, "order_summary", countColumns)
	q.discounts = replaceIn(d, "discount_summary", discountColumns)
	q.gross = replaceIn(d, "gross_summary", grossColumns)
	q.hourWise = replaceIn(d, "hour_wise_sales", hourWiseColumns)
	q.overall = replaceIn(d, "overall_summary", overallColumns)

	q.selectSales = d.Rebind(selectRange("sales_summary", salesColumns))
	q.selectCounts = d.Rebind(selectRange("order_summary", countColumns))
	q.selectDiscounts = d.Rebind(selectRange("discount_summary", discountColumns))
	q.selectGross = d.Rebind(selectRange("gross_summary", grossColumns))
	q.selectOverall = d.Rebind(selectRange("overall_summary", overallColumns))

	return q
}
