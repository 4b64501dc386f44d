package summary

import (
	"context"
	"errors"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
)

var errInjected = errors.New("injected failure")

// memStore keeps every table in memory, keyed by date.
type memStore struct {
	lines    []v1.OrderRow
	updates  []v1.OrderRow
	refunds  []DatedAmount
	hourly   []v1.HourlySessions
	daily    []v1.DailySessions
	failOn   string
	replaced []string
	// loose makes RefundTotals ignore the range.
	loose bool

	sales     map[time.Time]SalesRow
	counts    map[time.Time]OrderCountRow
	discounts map[time.Time]DiscountRow
	gross     map[time.Time]GrossRow
	hours     map[hourKey]HourRow
	overall   map[time.Time]OverallRow
}

func newMemStore() *memStore {
	return &memStore{
		sales:     map[time.Time]SalesRow{},
		counts:    map[time.Time]OrderCountRow{},
		discounts: map[time.Time]DiscountRow{},
		gross:     map[time.Time]GrossRow{},
		hours:     map[hourKey]HourRow{},
		overall:   map[time.Time]OverallRow{},
	}
}

func inRange[T any](r v1.DateRange, m map[time.Time]T) []T {
	var out []T
	for d, v := range m {
		if r.Contains(d) {
			out = append(out, v)
		}
	}
	return out
}

func replace[T any](s *memStore, table string, r v1.DateRange, m map[time.Time]T, rows []T, date func(T) time.Time) error {
	if s.failOn == table {
		return errInjected
	}
	for d := range m {
		if r.Contains(d) {
			delete(m, d)
		}
	}
	for _, row := range rows {
		m[date(row)] = row
	}
	s.replaced = append(s.replaced, table)
	return nil
}

func (s *memStore) CreatedLines(_ context.Context, r v1.DateRange) ([]v1.OrderRow, error) {
	var out []v1.OrderRow
	for _, l := range s.lines {
		if r.Contains(l.CreatedDate) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) UpdatedOrders(_ context.Context, r v1.DateRange) ([]v1.OrderRow, error) {
	var out []v1.OrderRow
	for _, l := range s.updates {
		if l.LineIndex == 0 && l.UpdatedDate.Valid && r.Contains(l.UpdatedDate.Time) {
			out = append(out, l)
		}
	}
	return out, nil
}

func (s *memStore) RefundTotals(_ context.Context, r v1.DateRange) ([]DatedAmount, error) {
	var out []DatedAmount
	for _, a := range s.refunds {
		if s.loose || r.Contains(a.Date) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *memStore) HourlySessions(_ context.Context, _ v1.DateRange) ([]v1.HourlySessions, error) {
	return s.hourly, nil
}

func (s *memStore) DailySessions(_ context.Context, _ v1.DateRange) ([]v1.DailySessions, error) {
	return s.daily, nil
}

func (s *memStore) ReplaceSales(_ context.Context, r v1.DateRange, rows []SalesRow) error {
	return replace(s, TableSales, r, s.sales, rows, func(x SalesRow) time.Time { return x.Date })
}

func (s *memStore) ReplaceOrderCounts(_ context.Context, r v1.DateRange, rows []OrderCountRow) error {
	return replace(s, TableOrders, r, s.counts, rows, func(x OrderCountRow) time.Time { return x.Date })
}

func (s *memStore) ReplaceDiscounts(_ context.Context, r v1.DateRange, rows []DiscountRow) error {
	return replace(s, TableDiscounts, r, s.discounts, rows, func(x DiscountRow) time.Time { return x.Date })
}

func (s *memStore) ReplaceGross(_ context.Context, r v1.DateRange, rows []GrossRow) error {
	return replace(s, TableGross, r, s.gross, rows, func(x GrossRow) time.Time { return x.Date })
}

func (s *memStore) ReplaceHourWise(_ context.Context, r v1.DateRange, rows []HourRow) error {
	if s.failOn == TableHourWise {
		return errInjected
	}
	for k := range s.hours {
		if r.Contains(k.date) {
			delete(s.hours, k)
		}
	}
	for _, row := range rows {
		s.hours[hourKey{row.Date, row.Hour}] = row
	}
	s.replaced = append(s.replaced, TableHourWise)
	return nil
}

func (s *memStore) ReplaceOverall(_ context.Context, r v1.DateRange, rows []OverallRow) error {
	return replace(s, TableOverall, r, s.overall, rows, func(x OverallRow) time.Time { return x.Date })
}

func (s *memStore) SalesRows(_ context.Context, r v1.DateRange) ([]SalesRow, error) {
	return inRange(r, s.sales), nil
}

func (s *memStore) OrderCountRows(_ context.Context, r v1.DateRange) ([]OrderCountRow, error) {
	return inRange(r, s.counts), nil
}

func (s *memStore) DiscountRows(_ context.Context, r v1.DateRange) ([]DiscountRow, error) {
	return inRange(r, s.discounts), nil
}

func (s *memStore) GrossRows(_ context.Context, r v1.DateRange) ([]GrossRow, error) {
	return inRange(r, s.gross), nil
}

func (s *memStore) OverallRows(_ context.Context, r v1.DateRange) ([]OverallRow, error) {
	return inRange(r, s.overall), nil
}
