package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
)

type scanner interface {
	Scan(dest ...interface{}) error
}

// scanOrderRow scans one raw feed row in orderColumns order.
func scanOrderRow(row scanner) (v1.OrderRow, error) {
	var r v1.OrderRow
	err := row.Scan(
		&r.OrderID, &r.LineIndex, &r.OrderName, &r.CustomerID, &r.FinancialStatus,
		&r.FulfillmentStatus, &r.Currency, &r.CreatedAt, &r.CreatedDate, &r.CreatedHour,
		&r.UpdatedAt, &r.UpdatedDate, &r.CancelledAt, &r.AppID, &r.AppName,
		&r.PaymentGateways, &r.DiscountCodes, &r.DiscountAmount, &r.TotalPrice,
		&r.ShippingPrice, &r.TotalTax, &r.TotalDiscounts, &r.SKU, &r.VariantTitle,
		&r.LineItem, &r.LineItemPrice, &r.LineItemQuantity, &r.LineItemDiscount,
		&r.ProductID, &r.VariantID, &r.Tags,
	)
	if err != nil {
		return v1.OrderRow{}, fmt.Errorf("failed to scan order row: %w", err)
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.CreatedDate = coreagg.DateOf(r.CreatedDate)
	if r.UpdatedAt.Valid {
		r.UpdatedAt.Time = r.UpdatedAt.Time.UTC()
	}
	if r.UpdatedDate.Valid {
		r.UpdatedDate.Time = coreagg.DateOf(r.UpdatedDate.Time)
	}
	return r, nil
}

// orderRowArgs lists a row's values in orderColumns order.
func orderRowArgs(r *v1.OrderRow) []interface{} {
	return []interface{}{
		r.OrderID, r.LineIndex, r.OrderName, r.CustomerID, r.FinancialStatus,
		r.FulfillmentStatus, r.Currency, r.CreatedAt.UTC(), dateArg(r.CreatedDate), r.CreatedHour,
		nullTimeArg(r.UpdatedAt), nullDateArg(r.UpdatedDate), nullTimeArg(r.CancelledAt), r.AppID, r.AppName,
		r.PaymentGateways, r.DiscountCodes, r.DiscountAmount, r.TotalPrice,
		r.ShippingPrice, r.TotalTax, r.TotalDiscounts, r.SKU, r.VariantTitle,
		r.LineItem, r.LineItemPrice, r.LineItemQuantity, r.LineItemDiscount,
		r.ProductID, r.VariantID, r.Tags,
	}
}

// dateArg binds a civil date as midnight UTC so neither driver shifts it.
func dateArg(d time.Time) time.Time {
	return coreagg.DateOf(d)
}

func nullDateArg(d sql.NullTime) sql.NullTime {
	if !d.Valid {
		return d
	}
	return sql.NullTime{Time: coreagg.DateOf(d.Time), Valid: true}
}

func nullTimeArg(t sql.NullTime) sql.NullTime {
	if !t.Valid {
		return t
	}
	return sql.NullTime{Time: t.Time.UTC(), Valid: true}
}

func rangeArgs(r v1.DateRange) []interface{} {
	return []interface{}{dateArg(r.Min), dateArg(r.Max)}
}

// queryOrderRows runs a raw-row select and scans every result.
func queryOrderRows(ctx context.Context, db *sql.DB, query string, args ...interface{}) ([]v1.OrderRow, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []v1.OrderRow
	for rows.Next() {
		r, err := scanOrderRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// replaceTx deletes every row of the range from each table and inserts the
// new rows, all in one transaction.
func (s *Store) replaceTx(ctx context.Context, r v1.DateRange, batches ...replaceBatch) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, b := range batches {
		if _, err := tx.ExecContext(ctx, b.q.delete, rangeArgs(r)...); err != nil {
			return fmt.Errorf("delete range: %w", err)
		}
	}

	for _, b := range batches {
		if len(b.rows) == 0 {
			continue
		}
		stmt, err := tx.PrepareContext(ctx, b.q.insert)
		if err != nil {
			return fmt.Errorf("prepare insert: %w", err)
		}
		for _, args := range b.rows {
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				stmt.Close()
				return fmt.Errorf("insert: %w", err)
			}
		}
		stmt.Close()
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

type replaceBatch struct {
	q    replaceQueries
	rows [][]interface{}
}
