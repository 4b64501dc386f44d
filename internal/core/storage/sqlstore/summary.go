package sqlstore

import (
	"context"
	"fmt"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/aevon-lab/orderpulse/internal/summary"
)

var _ summary.Store = (*Store)(nil)

func (s *Store) CreatedLines(ctx context.Context, r v1.DateRange) ([]v1.OrderRow, error) {
	rows, err := queryOrderRows(ctx, s.db, s.q.createdLines, rangeArgs(r)...)
	if err != nil {
		return nil, fmt.Errorf("load created lines: %w", err)
	}
	return rows, nil
}

func (s *Store) UpdatedOrders(ctx context.Context, r v1.DateRange) ([]v1.OrderRow, error) {
	rows, err := queryOrderRows(ctx, s.db, s.q.updatedOrders, rangeArgs(r)...)
	if err != nil {
		return nil, fmt.Errorf("load updated orders: %w", err)
	}
	return rows, nil
}

func (s *Store) RefundTotals(ctx context.Context, r v1.DateRange) ([]summary.DatedAmount, error) {
	var out []summary.DatedAmount
	err := s.selectRows(ctx, s.q.refundTotals, r, func(sc scanner) error {
		var a summary.DatedAmount
		if err := sc.Scan(&a.Date, &a.Amount); err != nil {
			return err
		}
		a.Date = coreagg.DateOf(a.Date)
		out = append(out, a)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load refund totals: %w", err)
	}
	return out, nil
}

func (s *Store) HourlySessions(ctx context.Context, r v1.DateRange) ([]v1.HourlySessions, error) {
	var out []v1.HourlySessions
	err := s.selectRows(ctx, s.q.hourlySessions, r, func(sc scanner) error {
		var h v1.HourlySessions
		if err := sc.Scan(&h.Date, &h.Hour, &h.Sessions, &h.ATCSessions); err != nil {
			return err
		}
		h.Date = coreagg.DateOf(h.Date)
		out = append(out, h)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load hourly sessions: %w", err)
	}
	return out, nil
}

func (s *Store) DailySessions(ctx context.Context, r v1.DateRange) ([]v1.DailySessions, error) {
	var out []v1.DailySessions
	err := s.selectRows(ctx, s.q.dailySessions, r, func(sc scanner) error {
		var d v1.DailySessions
		if err := sc.Scan(&d.Date, &d.Sessions, &d.ATCSessions, &d.Adjusted); err != nil {
			return err
		}
		d.Date = coreagg.DateOf(d.Date)
		out = append(out, d)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load daily sessions: %w", err)
	}
	return out, nil
}

// ReplaceSales writes sales_summary and its per-channel rows together.
func (s *Store) ReplaceSales(ctx context.Context, r v1.DateRange, rows []summary.SalesRow) error {
	sales := replaceBatch{q: s.q.sales}
	channels := replaceBatch{q: s.q.salesChannels}
	for _, row := range rows {
		d := dateArg(row.Date)
		sales.rows = append(sales.rows, []interface{}{d,
			row.DirectSales, row.DirectReturns, row.ActualDirectSales,
			row.OverallSales, row.OverallReturns, row.ActualOverallSales})
		for _, c := range row.Channels {
			channels.rows = append(channels.rows, []interface{}{d, c.Channel, c.Sales, c.Returns, c.Actual})
		}
	}
	return s.replaceTx(ctx, r, sales, channels)
}

func (s *Store) ReplaceOrderCounts(ctx context.Context, r v1.DateRange, rows []summary.OrderCountRow) error {
	b := replaceBatch{q: s.q.orderCounts}
	for _, row := range rows {
		b.rows = append(b.rows, []interface{}{dateArg(row.Date),
			row.Created, row.Returned, row.Actual, row.COD, row.Prepaid, row.PartiallyPaid,
			row.OverallCOD, row.OverallPrepaid, row.OverallPartiallyPaid})
	}
	return s.replaceTx(ctx, r, b)
}

func (s *Store) ReplaceDiscounts(ctx context.Context, r v1.DateRange, rows []summary.DiscountRow) error {
	b := replaceBatch{q: s.q.discounts}
	for _, row := range rows {
		b.rows = append(b.rows, []interface{}{dateArg(row.Date), row.Given, row.OnReturns, row.Actual})
	}
	return s.replaceTx(ctx, r, b)
}

func (s *Store) ReplaceGross(ctx context.Context, r v1.DateRange, rows []summary.GrossRow) error {
	b := replaceBatch{q: s.q.gross}
	for _, row := range rows {
		b.rows = append(b.rows, []interface{}{dateArg(row.Date),
			row.OverallSale, row.ShippingTotal, row.DiscountsTotal, row.TaxTotal,
			row.GrossSales, row.ActualDiscounts, row.NetSales})
	}
	return s.replaceTx(ctx, r, b)
}

func (s *Store) ReplaceHourWise(ctx context.Context, r v1.DateRange, rows []summary.HourRow) error {
	b := replaceBatch{q: s.q.hourWise}
	for _, row := range rows {
		b.rows = append(b.rows, []interface{}{dateArg(row.Date), row.Hour,
			row.Orders, row.TotalSales, row.Prepaid, row.COD, row.Sessions, row.ATCSessions})
	}
	return s.replaceTx(ctx, r, b)
}

func (s *Store) ReplaceOverall(ctx context.Context, r v1.DateRange, rows []summary.OverallRow) error {
	b := replaceBatch{q: s.q.overall}
	for _, row := range rows {
		b.rows = append(b.rows, []interface{}{dateArg(row.Date),
			row.GrossSales, row.TotalDiscountAmount, row.TotalSales, row.NetSales,
			row.TotalOrders, row.COD, row.Prepaid, row.PartiallyPaid,
			row.TotalSessions, row.TotalATCSessions, row.AdjustedTotalSessions})
	}
	return s.replaceTx(ctx, r, b)
}

func (s *Store) SalesRows(ctx context.Context, r v1.DateRange) ([]summary.SalesRow, error) {
	var out []summary.SalesRow
	err := s.selectRows(ctx, s.q.selectSales, r, func(sc scanner) error {
		var row summary.SalesRow
		if err := sc.Scan(&row.Date, &row.DirectSales, &row.DirectReturns, &row.ActualDirectSales,
			&row.OverallSales, &row.OverallReturns, &row.ActualOverallSales); err != nil {
			return err
		}
		row.Date = coreagg.DateOf(row.Date)
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", summary.TableSales, err)
	}
	return out, nil
}

func (s *Store) OrderCountRows(ctx context.Context, r v1.DateRange) ([]summary.OrderCountRow, error) {
	var out []summary.OrderCountRow
	err := s.selectRows(ctx, s.q.selectCounts, r, func(sc scanner) error {
		var row summary.OrderCountRow
		if err := sc.Scan(&row.Date, &row.Created, &row.Returned, &row.Actual,
			&row.COD, &row.Prepaid, &row.PartiallyPaid,
			&row.OverallCOD, &row.OverallPrepaid, &row.OverallPartiallyPaid); err != nil {
			return err
		}
		row.Date = coreagg.DateOf(row.Date)
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", summary.TableOrders, err)
	}
	return out, nil
}

func (s *Store) DiscountRows(ctx context.Context, r v1.DateRange) ([]summary.DiscountRow, error) {
	var out []summary.DiscountRow
	err := s.selectRows(ctx, s.q.selectDiscounts, r, func(sc scanner) error {
		var row summary.DiscountRow
		if err := sc.Scan(&row.Date, &row.Given, &row.OnReturns, &row.Actual); err != nil {
			return err
		}
		row.Date = coreagg.DateOf(row.Date)
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", summary.TableDiscounts, err)
	}
	return out, nil
}

func (s *Store) GrossRows(ctx context.Context, r v1.DateRange) ([]summary.GrossRow, error) {
	var out []summary.GrossRow
	err := s.selectRows(ctx, s.q.selectGross, r, func(sc scanner) error {
		var row summary.GrossRow
		if err := sc.Scan(&row.Date, &row.OverallSale, &row.ShippingTotal, &row.DiscountsTotal,
			&row.TaxTotal, &row.GrossSales, &row.ActualDiscounts, &row.NetSales); err != nil {
			return err
		}
		row.Date = coreagg.DateOf(row.Date)
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", summary.TableGross, err)
	}
	return out, nil
}

func (s *Store) OverallRows(ctx context.Context, r v1.DateRange) ([]summary.OverallRow, error) {
	var out []summary.OverallRow
	err := s.selectRows(ctx, s.q.selectOverall, r, func(sc scanner) error {
		var row summary.OverallRow
		if err := sc.Scan(&row.Date, &row.GrossSales, &row.TotalDiscountAmount, &row.TotalSales,
			&row.NetSales, &row.TotalOrders, &row.COD, &row.Prepaid, &row.PartiallyPaid,
			&row.TotalSessions, &row.TotalATCSessions, &row.AdjustedTotalSessions); err != nil {
			return err
		}
		row.Date = coreagg.DateOf(row.Date)
		row.Day = row.Date.Format(coreagg.DateLayout)
		out = append(out, row)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", summary.TableOverall, err)
	}
	return out, nil
}

// selectRows runs a range query and hands each row to scan.
func (s *Store) selectRows(ctx context.Context, query string, r v1.DateRange, scan func(scanner) error) error {
	rows, err := s.db.QueryContext(ctx, query, rangeArgs(r)...)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		if err := scan(rows); err != nil {
			return err
		}
	}
	return rows.Err()
}
