package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/core/storage"
)

// OpenFeed takes an exclusive connection for one feed's processing.
func (s *Store) OpenFeed(ctx context.Context) (storage.FeedSession, error) {
	c, err := s.conn(ctx)
	if err != nil {
		return nil, err
	}
	return &feedSession{conn: c, q: s.q}, nil
}

type feedSession struct {
	conn *sql.Conn
	q    *queries
}

func (f *feedSession) LastEventTime(ctx context.Context, feed v1.Feed) (time.Time, bool, error) {
	var ts time.Time
	err := f.conn.QueryRowContext(ctx, f.q.readCheckpoint, feed.CheckpointKey()).Scan(&ts)
	if err == nil {
		return ts.UTC(), true, nil
	}
	if err != sql.ErrNoRows {
		return time.Time{}, false, fmt.Errorf("read checkpoint %s: %w", feed.CheckpointKey(), err)
	}

	var last sql.NullTime
	if err := f.conn.QueryRowContext(ctx, f.q.feeds[feed].lastRow).Scan(&last); err != nil {
		return time.Time{}, false, fmt.Errorf("read last %s row: %w", feed.Table(), err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}
	return last.Time.UTC(), true, nil
}

func (f *feedSession) EntityIDsAt(ctx context.Context, feed v1.Feed, ts time.Time) ([]int64, error) {
	rows, err := f.conn.QueryContext(ctx, f.q.feeds[feed].idsAt, ts.UTC())
	if err != nil {
		return nil, fmt.Errorf("query %s ids at boundary: %w", feed.Table(), err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan %s id: %w", feed.Table(), err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (f *feedSession) Begin(ctx context.Context) (storage.FeedTx, error) {
	tx, err := f.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin feed transaction: %w", err)
	}
	return &feedTx{tx: tx, q: f.q}, nil
}

func (f *feedSession) Close() error {
	return f.conn.Close()
}

type feedTx struct {
	tx *sql.Tx
	q  *queries
}

func (t *feedTx) InsertRows(ctx context.Context, feed v1.Feed, rows []v1.OrderRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	stmt, err := t.tx.PrepareContext(ctx, t.q.feeds[feed].insert)
	if err != nil {
		return 0, fmt.Errorf("prepare %s insert: %w", feed.Table(), err)
	}
	defer stmt.Close()

	var inserted int64
	for i := range rows {
		res, err := stmt.ExecContext(ctx, orderRowArgs(&rows[i])...)
		if err != nil {
			return inserted, fmt.Errorf("insert %s order %d line %d: %w", feed.Table(), rows[i].OrderID, rows[i].LineIndex, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("rows affected: %w", err)
		}
		inserted += n
	}
	return inserted, nil
}

func (t *feedTx) UpsertReturnFacts(ctx context.Context, facts []v1.ReturnFact) error {
	if len(facts) == 0 {
		return nil
	}
	stmt, err := t.tx.PrepareContext(ctx, t.q.upsertFact)
	if err != nil {
		return fmt.Errorf("prepare fact upsert: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		if _, err := stmt.ExecContext(ctx, f.OrderID, string(f.EventType), dateArg(f.EventDate), f.Amount); err != nil {
			return fmt.Errorf("upsert %s fact for order %d: %w", f.EventType, f.OrderID, err)
		}
	}
	return nil
}

func (t *feedTx) AdvanceCheckpoint(ctx context.Context, feed v1.Feed, ts time.Time) error {
	if _, err := t.tx.ExecContext(ctx, t.q.feeds[feed].checkpoint, feed.CheckpointKey(), ts.UTC()); err != nil {
		return fmt.Errorf("advance %s: %w", feed.CheckpointKey(), err)
	}
	return nil
}

func (t *feedTx) Commit() error {
	return t.tx.Commit()
}

func (t *feedTx) Rollback() error {
	return t.tx.Rollback()
}
