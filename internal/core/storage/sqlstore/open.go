package sqlstore

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib" // Register pgx driver
	_ "github.com/lib/pq"              // Register postgres driver
)

const connectPingTimeout = 5 * time.Second

// Options configures one tenant database.
type Options struct {
	Driver       string // postgres | pgx | mysql
	DSN          string
	MaxOpenConns int
	MaxIdleConns int
	Acquire      AcquireOptions
}

// Store is the storage of one tenant: raw feed tables, return facts, summary
// tables, session counters and pipeline metadata.
type Store struct {
	db      *sql.DB
	dialect Dialect
	q       *queries
	acquire AcquireOptions
}

// Open connects to a tenant database and verifies it answers.
//
// Schema must be applied separately via migrations.Run.
func Open(opts Options) (*Store, error) {
	dialect, err := DialectFor(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn := opts.DSN
	if dialect == MySQL {
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(opts.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", opts.Driver, err)
	}

	db.SetMaxOpenConns(opts.MaxOpenConns)
	db.SetMaxIdleConns(opts.MaxIdleConns)
	db.SetConnMaxLifetime(5 * time.Minute)

	slog.Info("[SQLStore] Connection pool configured",
		"driver", opts.Driver,
		"max_open_conns", opts.MaxOpenConns,
		"max_idle_conns", opts.MaxIdleConns)

	pingCtx, cancel := context.WithTimeout(context.Background(), connectPingTimeout)
	defer cancel()

	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", opts.Driver, err)
	}

	return New(db, dialect, opts.Acquire), nil
}

// New wraps an open database handle.
func New(db *sql.DB, dialect Dialect, acquire AcquireOptions) *Store {
	return &Store{
		db:      db,
		dialect: dialect,
		q:       newQueries(dialect),
		acquire: acquire.withDefaults(),
	}
}

// normalizeMySQLDSN forces the settings the store relies on: DATETIME
// columns scanned as UTC time.Time, and multi-statement migrations.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.MultiStatements = true
	return cfg.FormatDSN(), nil
}

// DB exposes the underlying handle for migrations.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Dialect() Dialect {
	return s.dialect
}

// Ping reports whether the database answers.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}
	return nil
}
