package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/aevon-lab/orderpulse/internal/affected"
	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	coreagg "github.com/aevon-lab/orderpulse/internal/core/aggregation"
	"github.com/aevon-lab/orderpulse/internal/core/storage"
)

var (
	ErrUnknownTenant = errors.New("unknown tenant")
	ErrClosed        = errors.New("orchestrator is shut down")
)

// Options sizes the orchestrator.
type Options struct {
	Workers    int
	RunTimeout time.Duration // per tenant run; 0 means none
}

// Orchestrator runs tenants concurrently on a bounded pool. Failures stay
// inside the tenant that produced them.
type Orchestrator struct {
	tenants map[string]*TenantContext
	order   []string
	opts    Options

	flights singleflight.Group

	mu       sync.Mutex
	closed   bool
	inflight sync.WaitGroup

	last atomic.Pointer[RunReport]
	now  func() time.Time
}

func New(tenants []*TenantContext, opts Options) *Orchestrator {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	o := &Orchestrator{
		tenants: make(map[string]*TenantContext, len(tenants)),
		opts:    opts,
		now:     time.Now,
	}
	for _, tc := range tenants {
		o.tenants[tc.ID] = tc
		o.order = append(o.order, tc.ID)
	}
	return o
}

// Tenants returns the tenant contexts in configuration order.
func (o *Orchestrator) Tenants() []*TenantContext {
	out := make([]*TenantContext, 0, len(o.order))
	for _, id := range o.order {
		out = append(out, o.tenants[id])
	}
	return out
}

// LastReport returns the report of the latest completed RunAll.
func (o *Orchestrator) LastReport() (RunReport, bool) {
	r := o.last.Load()
	if r == nil {
		return RunReport{}, false
	}
	return *r, true
}

func (o *Orchestrator) enter() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrClosed
	}
	o.inflight.Add(1)
	return nil
}

// RunAll runs every tenant once. Tenant failures are reported in the result;
// the error is non-nil only when the orchestrator is closed.
func (o *Orchestrator) RunAll(ctx context.Context) (RunReport, error) {
	if err := o.enter(); err != nil {
		return RunReport{}, err
	}
	defer o.inflight.Done()

	report := RunReport{
		RunID:     uuid.NewString(),
		StartedAt: o.now(),
		Tenants:   make([]TenantResult, len(o.order)),
	}
	slog.Info("[Orchestrator] Starting run",
		"run_id", report.RunID,
		"tenants", len(o.order),
		"workers", o.opts.Workers,
	)

	var g errgroup.Group
	g.SetLimit(o.opts.Workers)
	for i, id := range o.order {
		tc := o.tenants[id]
		g.Go(func() error {
			res, err := o.runShared(ctx, report.RunID, tc)
			if err != nil {
				res = TenantResult{RunID: report.RunID, Tenant: tc.ID, Status: StatusFailed, Err: err, Error: err.Error()}
			}
			report.Tenants[i] = res
			return nil
		})
	}
	_ = g.Wait()

	report.FinishedAt = o.now()
	report.tally()
	o.last.Store(&report)

	slog.Info("[Orchestrator] Run complete",
		"run_id", report.RunID,
		"succeeded", report.Succeeded,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"duration", report.FinishedAt.Sub(report.StartedAt),
	)
	return report, nil
}

// RunTenant runs one tenant on demand. A run of the same tenant already in
// progress is joined rather than repeated; the joined run keeps the run id and
// context of the caller that started it, and ctx only bounds how long this
// caller waits for it.
func (o *Orchestrator) RunTenant(ctx context.Context, id string) (TenantResult, error) {
	tc, ok := o.tenants[id]
	if !ok {
		return TenantResult{}, fmt.Errorf("%w: %s", ErrUnknownTenant, id)
	}
	if err := o.enter(); err != nil {
		return TenantResult{}, err
	}
	defer o.inflight.Done()

	return o.runShared(ctx, uuid.NewString(), tc)
}

func (o *Orchestrator) runShared(ctx context.Context, runID string, tc *TenantContext) (TenantResult, error) {
	ch := o.flights.DoChan(tc.ID, func() (interface{}, error) {
		return o.runTenant(ctx, runID, tc), nil
	})
	select {
	case r := <-ch:
		return r.Val.(TenantResult), nil
	case <-ctx.Done():
		return TenantResult{}, fmt.Errorf("tenant %s: wait for run: %w", tc.ID, ctx.Err())
	}
}

// runTenant is the tenant boundary: nothing below it escapes as an error or
// a panic.
func (o *Orchestrator) runTenant(ctx context.Context, runID string, tc *TenantContext) (res TenantResult) {
	res = TenantResult{RunID: runID, Tenant: tc.ID, StartedAt: o.now()}
	logger := slog.With("run_id", runID, "tenant", tc.ID)

	defer func() {
		if r := recover(); r != nil {
			res.Status = StatusFailed
			res.Err = fmt.Errorf("tenant %s: panic: %v", tc.ID, r)
			res.Error = res.Err.Error()
			logger.Error("[Orchestrator] Tenant run panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		res.Duration = o.now().Sub(res.StartedAt)
	}()

	if !tc.Available() {
		res.Status = StatusSkipped
		res.Reason = "database unavailable"
		logger.Warn("[Orchestrator] Skipping tenant without database")
		return res
	}

	if o.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.opts.RunTimeout)
		defer cancel()
	}

	if tc.Sessions != nil {
		sr, err := tc.Sessions.Refresh(ctx, tc.Store)
		res.Sessions = &SessionsOutcome{Slots: sr.Slots}
		if err != nil {
			res.Sessions.Error = err.Error()
			logger.Warn("[Orchestrator] Sessions refresh failed, continuing with feeds", "error", err)
		}
	}

	acc := affected.New(tc.Location)
	var errs []error
	for _, feed := range v1.Feeds {
		fr := runFeed(ctx, logger, tc, feed, acc)
		res.Feeds = append(res.Feeds, fr)
		if fr.Err == nil {
			continue
		}
		errs = append(errs, fr.Err)
		logger.Error("[Orchestrator] Feed failed", "feed", feed, "error", fr.Err)
		if errors.Is(fr.Err, storage.ErrPoolExhausted) {
			res.Reason = "connection pool exhausted"
			return finish(res, errs)
		}
	}

	if rng, ok := acc.Range(); ok {
		res.RangeStart = rng.Min.Format(coreagg.DateLayout)
		res.RangeEnd = rng.Max.Format(coreagg.DateLayout)
		sum, err := tc.Recomputer.Recompute(ctx, rng)
		if err != nil {
			errs = append(errs, err)
			logger.Error("[Orchestrator] Summary recompute failed", "error", err)
		} else {
			res.Summary = &sum
		}
	} else {
		logger.Info("[Orchestrator] No affected dates, summaries unchanged")
	}

	if len(errs) == 0 {
		if err := tc.Store.MarkCompleted(ctx, o.now()); err != nil {
			errs = append(errs, err)
		}
	}

	res = finish(res, errs)
	logger.Info("[Orchestrator] Tenant run finished",
		"status", res.Status,
		"affected_start", res.RangeStart,
		"affected_end", res.RangeEnd,
	)
	return res
}

func finish(res TenantResult, errs []error) TenantResult {
	if err := errors.Join(errs...); err != nil {
		res.Status = StatusFailed
		res.Err = err
		res.Error = err.Error()
		return res
	}
	res.Status = StatusSucceeded
	return res
}

// Close stops new runs, waits for in-flight ones and releases every tenant
// store.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return ErrClosed
	}
	o.closed = true
	o.mu.Unlock()

	o.inflight.Wait()

	var errs []error
	for _, id := range o.order {
		tc := o.tenants[id]
		if !tc.Available() {
			continue
		}
		if err := tc.Store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close tenant %s: %w", id, err))
		}
	}
	slog.Info("[Orchestrator] Closed", "tenants", len(o.order))
	return errors.Join(errs...)
}
