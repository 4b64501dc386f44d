package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/sessions"
)

var _ sessions.Store = (*Store)(nil)

func (s *Store) SessionCheckpoint(ctx context.Context) (time.Time, bool, error) {
	return s.readMeta(ctx, metaLastSessionFetch)
}

// SaveSessions keeps adjusted_number_of_sessions untouched on every daily row.
func (s *Store) SaveSessions(ctx context.Context, hourly []v1.HourlySessions, rollupFrom time.Time, checkpoint time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if len(hourly) > 0 {
		stmt, err := tx.PrepareContext(ctx, s.q.upsertHourly)
		if err != nil {
			return fmt.Errorf("prepare hourly upsert: %w", err)
		}
		defer stmt.Close()

		for _, h := range hourly {
			if _, err := stmt.ExecContext(ctx, dateArg(h.Date), h.Hour, h.Sessions, h.ATCSessions); err != nil {
				return fmt.Errorf("upsert hourly sessions %s %02d: %w", h.Date.Format("2006-01-02"), h.Hour, err)
			}
		}
	}

	if _, err := tx.ExecContext(ctx, s.q.rollupDaily, dateArg(rollupFrom)); err != nil {
		return fmt.Errorf("roll up daily sessions: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.q.setMeta, metaLastSessionFetch, checkpoint.UTC()); err != nil {
		return fmt.Errorf("set %s: %w", metaLastSessionFetch, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// MarkCompleted records the end of a tenant run.
func (s *Store) MarkCompleted(ctx context.Context, at time.Time) error {
	if _, err := s.db.ExecContext(ctx, s.q.setMeta, metaLastCompletion, at.UTC()); err != nil {
		return fmt.Errorf("set %s: %w", metaLastCompletion, err)
	}
	return nil
}

// LastCompleted returns when the last tenant run finished.
func (s *Store) LastCompleted(ctx context.Context) (time.Time, bool, error) {
	return s.readMeta(ctx, metaLastCompletion)
}

func (s *Store) readMeta(ctx context.Context, key string) (time.Time, bool, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx, s.q.readCheckpoint, key).Scan(&ts)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read %s: %w", key, err)
	}
	return ts.UTC(), true, nil
}
