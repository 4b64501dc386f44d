// Package pipeline runs the per-tenant ETL: sessions refresh, both feeds,
// summary recompute and completion checkpoint, fanned out over a bounded pool.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/aevon-lab/orderpulse/internal/core/config"
	"github.com/aevon-lab/orderpulse/internal/core/storage"
	"github.com/aevon-lab/orderpulse/internal/core/storage/sqlstore"
	"github.com/aevon-lab/orderpulse/internal/fetch"
	"github.com/aevon-lab/orderpulse/internal/flatten"
	"github.com/aevon-lab/orderpulse/internal/migrations"
	"github.com/aevon-lab/orderpulse/internal/returns"
	"github.com/aevon-lab/orderpulse/internal/sessions"
	"github.com/aevon-lab/orderpulse/internal/summary"
	"github.com/aevon-lab/orderpulse/internal/window"
)

// Store is the storage a tenant run needs.
type Store interface {
	summary.Store
	sessions.Store
	OpenFeed(ctx context.Context) (storage.FeedSession, error)
	MarkCompleted(ctx context.Context, at time.Time) error
	Ping(ctx context.Context) error
	Close() error
}

// Fetcher returns every snapshot of a window.
type Fetcher interface {
	Fetch(ctx context.Context, w v1.FetchWindow) ([]v1.Order, error)
}

type SessionRefresher interface {
	Refresh(ctx context.Context, store sessions.Store) (sessions.Result, error)
}

type Recomputer interface {
	Recompute(ctx context.Context, rng v1.DateRange) (summary.Result, error)
}

// TenantContext holds everything one tenant owns. It is built once at boot
// and never shared between tenants.
type TenantContext struct {
	ID       string
	Name     string
	Location *time.Location

	// Store is nil when the database could not be opened at boot; runs of
	// the tenant are skipped and OpenErr holds the cause.
	Store      Store
	OpenErr    error
	Fetcher    Fetcher
	Sessions   SessionRefresher // nil when disabled
	Tracker    *window.Tracker
	Flattener  *flatten.Flattener
	Reconciler *returns.Reconciler
	Recomputer Recomputer
}

// Available reports whether the tenant has a database to run against.
func (tc *TenantContext) Available() bool {
	return tc.Store != nil
}

// OpenTenants builds a TenantContext for every configured tenant, opening its
// database and bringing the schema up to date. A tenant whose database fails
// is kept without a store and logged.
func OpenTenants(cfg *config.Config, catalog *coreagg.ChannelCatalog) []*TenantContext {
	var override *window.Override
	if start, end, ok := cfg.BackfillWindow(); ok {
		override = &window.Override{Start: start, End: end}
	}
	loc := cfg.Location()

	out := make([]*TenantContext, 0, len(cfg.Tenants))
	for _, id := range cfg.TenantIDs() {
		t := cfg.Tenants[id]
		tc := &TenantContext{
			ID:       id,
			Name:     t.Name,
			Location: loc,
			Fetcher: fetch.New(fetch.Options{
				BaseURL:             t.Shop.APIBaseURL(),
				AccessToken:         t.Shop.AccessToken,
				PageSize:            t.Shop.PageSize,
				RequestsPerSecond:   t.Shop.RequestsPerSecond,
				MaxRateLimitRetries: t.Shop.MaxRateLimitRetries,
				Timeout:             cfg.Pipeline.FetchTimeout,
			}),
			Tracker:    window.NewTracker(id, override),
			Flattener:  flatten.New(t.AppIDMapping, loc),
			Reconciler: returns.NewReconciler(loc),
		}
		if t.Sessions.Enabled {
			client := sessions.NewClient(t.Sessions.URL, t.Sessions.Brand, t.Sessions.CollectorKey, nil)
			tc.Sessions = sessions.NewRefresher(client, loc)
		}

		store, err := openStore(t.Database, cfg.Pipeline)
		if err != nil {
			tc.OpenErr = err
			slog.Error("[Orchestrator] Tenant database unavailable, runs will be skipped",
				"tenant", id,
				"error", err,
			)
		} else {
			tc.Store = store
			tc.Recomputer = summary.NewRecomputer(store, catalog, cfg.GrossSalesFactor())
		}
		out = append(out, tc)
	}
	return out
}

func openStore(db config.DatabaseConfig, p config.PipelineConfig) (*sqlstore.Store, error) {
	store, err := sqlstore.Open(sqlstore.Options{
		Driver:       db.Driver,
		DSN:          db.DSN,
		MaxOpenConns: db.MaxOpenConns,
		MaxIdleConns: db.MaxIdleConns,
		Acquire: sqlstore.AcquireOptions{
			Attempts: p.ConnAcquireAttempts,
			Interval: p.ConnAcquireInterval,
			Timeout:  p.ConnAcquireTimeout,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := migrations.RunMigrations(store.DB(), store.Dialect(), p.AutoMigrate); err != nil {
		store.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return store, nil
}
