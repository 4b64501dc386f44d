package summary

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/shopspring/decimal"
)

// DefaultGrossSalesFactor converts tax-inclusive line sales to gross sales.
var DefaultGrossSalesFactor = decimal.RequireFromString("0.84")

// TableResult reports one table of a recompute.
type TableResult struct {
	Table string `json:"table"`
	Rows  int    `json:"rows"`
}

// Result reports a recompute. Tables lists the tables replaced, in order.
type Result struct {
	Range    v1.DateRange  `json:"-"`
	Tables   []TableResult `json:"tables"`
	Duration time.Duration `json:"duration"`
}

// Recomputer regenerates the summary tables of one tenant.
type Recomputer struct {
	store       Store
	catalog     *coreagg.ChannelCatalog
	grossFactor decimal.Decimal
}

func NewRecomputer(store Store, catalog *coreagg.ChannelCatalog, grossFactor decimal.Decimal) *Recomputer {
	if catalog == nil {
		catalog = coreagg.DefaultChannels()
	}
	if !grossFactor.IsPositive() {
		grossFactor = DefaultGrossSalesFactor
	}
	return &Recomputer{store: store, catalog: catalog, grossFactor: grossFactor}
}

// recompute holds the inputs of one run, loaded once.
type recompute struct {
	rng      v1.DateRange
	created  []*order
	returned []*order
	refunds  []DatedAmount
}

type step struct {
	table string
	run   func(ctx context.Context, rc *recompute) (int, error)
}

// Recompute replaces every summary row dated in r. Tables are written in
// dependency order, each in its own transaction; the first failure stops the
// chain since later tables read earlier ones.
func (r *Recomputer) Recompute(ctx context.Context, rng v1.DateRange) (Result, error) {
	started := time.Now()
	res := Result{Range: rng}
	if rng.Days() == 0 {
		return res, fmt.Errorf("recompute summaries: inverted range %s..%s",
			rng.Min.Format(coreagg.DateLayout), rng.Max.Format(coreagg.DateLayout))
	}

	rc, err := r.load(ctx, rng)
	if err != nil {
		return res, fmt.Errorf("recompute summaries: %w", err)
	}

	for _, s := range r.steps() {
		n, err := s.run(ctx, rc)
		if err != nil {
			return res, fmt.Errorf("recompute summaries: %s: %w", s.table, err)
		}
		res.Tables = append(res.Tables, TableResult{Table: s.table, Rows: n})
	}

	res.Duration = time.Since(started)
	slog.Info("[SummaryRecomputer] Recompute complete",
		"min_date", rng.Min.Format(coreagg.DateLayout),
		"max_date", rng.Max.Format(coreagg.DateLayout),
		"days", rng.Days(),
		"created_orders", len(rc.created),
		"returned_orders", len(rc.returned),
		"duration", res.Duration,
	)
	return res, nil
}

func (r *Recomputer) load(ctx context.Context, rng v1.DateRange) (*recompute, error) {
	lines, err := r.store.CreatedLines(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("load created lines: %w", err)
	}
	updates, err := r.store.UpdatedOrders(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("load updated orders: %w", err)
	}
	refunds, err := r.store.RefundTotals(ctx, rng)
	if err != nil {
		return nil, fmt.Errorf("load refund totals: %w", err)
	}
	return &recompute{
		rng:      rng,
		created:  createdOrders(lines),
		returned: returnedOrders(updates),
		refunds:  datedIn(rng, refunds),
	}, nil
}

// datedIn keeps the amounts dated in rng.
func datedIn(rng v1.DateRange, in []DatedAmount) []DatedAmount {
	out := in[:0:0]
	for _, a := range in {
		if rng.Contains(a.Date) {
			out = append(out, a)
		}
	}
	return out
}

func (r *Recomputer) steps() []step {
	return []step{
		{TableSales, r.sales},
		{TableOrders, r.orderCounts},
		{TableDiscounts, r.discounts},
		{TableGross, r.gross},
		{TableHourWise, r.hourWise},
		{TableOverall, r.overall},
	}
}

func (r *Recomputer) sales(ctx context.Context, rc *recompute) (int, error) {
	rows := computeSales(r.catalog, rc.created, rc.returned, rc.refunds)
	return len(rows), r.store.ReplaceSales(ctx, rc.rng, rows)
}

func (r *Recomputer) orderCounts(ctx context.Context, rc *recompute) (int, error) {
	rows := computeOrderCounts(rc.created, rc.returned)
	return len(rows), r.store.ReplaceOrderCounts(ctx, rc.rng, rows)
}

func (r *Recomputer) discounts(ctx context.Context, rc *recompute) (int, error) {
	rows := computeDiscounts(rc.created, rc.returned)
	return len(rows), r.store.ReplaceDiscounts(ctx, rc.rng, rows)
}

func (r *Recomputer) gross(ctx context.Context, rc *recompute) (int, error) {
	discounts, err := r.store.DiscountRows(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read discounts: %w", err)
	}
	rows := computeGross(rc.created, discounts, r.grossFactor)
	return len(rows), r.store.ReplaceGross(ctx, rc.rng, rows)
}

func (r *Recomputer) hourWise(ctx context.Context, rc *recompute) (int, error) {
	sessions, err := r.store.HourlySessions(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read hourly sessions: %w", err)
	}
	rows := computeHourWise(rc.created, sessions)
	return len(rows), r.store.ReplaceHourWise(ctx, rc.rng, rows)
}

func (r *Recomputer) overall(ctx context.Context, rc *recompute) (int, error) {
	sales, err := r.store.SalesRows(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read sales: %w", err)
	}
	counts, err := r.store.OrderCountRows(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read order counts: %w", err)
	}
	gross, err := r.store.GrossRows(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read gross: %w", err)
	}
	discounts, err := r.store.DiscountRows(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read discounts: %w", err)
	}
	daily, err := r.store.DailySessions(ctx, rc.rng)
	if err != nil {
		return 0, fmt.Errorf("read daily sessions: %w", err)
	}
	rows := computeOverall(sales, counts, gross, discounts, daily)
	return len(rows), r.store.ReplaceOverall(ctx, rc.rng, rows)
}
