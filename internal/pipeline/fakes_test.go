package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/core/storage"
	"github.com/aevon-lab/orderpulse/internal/flatten"
	"github.com/aevon-lab/orderpulse/internal/returns"
	"github.com/aevon-lab/orderpulse/internal/sessions"
	"github.com/aevon-lab/orderpulse/internal/summary"
	"github.com/aevon-lab/orderpulse/internal/window"
)

type (
	summaryStore  = summary.Store
	sessionsStore = sessions.Store
)

type rowKey struct {
	orderID int64
	at      time.Time
	line    int
}

type factKey struct {
	orderID int64
	typ     v1.ReturnEventType
	date    time.Time
}

// memStore keeps feed tables, facts and checkpoints in memory. Summary and
// session methods are left to the embedded nil interfaces.
type memStore struct {
	summaryStore
	sessionsStore

	mu              sync.Mutex
	checkpoints     map[v1.Feed]time.Time
	rows            map[v1.Feed]map[rowKey]v1.OrderRow
	facts           map[factKey]v1.ReturnFact
	completed       int
	openErr         error
	checkpointReads int
	closed          bool
}

func newMemStore() *memStore {
	return &memStore{
		checkpoints: map[v1.Feed]time.Time{},
		rows:        map[v1.Feed]map[rowKey]v1.OrderRow{v1.FeedNew: {}, v1.FeedUpdated: {}},
		facts:       map[factKey]v1.ReturnFact{},
	}
}

func (s *memStore) OpenFeed(context.Context) (storage.FeedSession, error) {
	if s.openErr != nil {
		return nil, s.openErr
	}
	return &memSession{s: s}, nil
}

func (s *memStore) MarkCompleted(context.Context, time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.completed++
	return nil
}

func (s *memStore) Ping(context.Context) error { return nil }

func (s *memStore) Close() error {
	s.closed = true
	return nil
}

func (s *memStore) storedOrders(feed v1.Feed) map[int64]int {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[int64]int{}
	for k := range s.rows[feed] {
		if k.line == 0 {
			out[k.orderID]++
		}
	}
	return out
}

func (s *memStore) seed(feed v1.Feed, r v1.OrderRow) {
	k := rowKey{orderID: r.OrderID, line: r.LineIndex}
	if feed == v1.FeedUpdated {
		k.at = r.UpdatedAt.Time
	}
	s.rows[feed][k] = r
}

type memSession struct {
	s *memStore
}

func (m *memSession) LastEventTime(_ context.Context, feed v1.Feed) (time.Time, bool, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	m.s.checkpointReads++
	ts, ok := m.s.checkpoints[feed]
	return ts, ok, nil
}

func (m *memSession) EntityIDsAt(_ context.Context, feed v1.Feed, ts time.Time) ([]int64, error) {
	m.s.mu.Lock()
	defer m.s.mu.Unlock()
	seen := map[int64]bool{}
	var ids []int64
	for _, r := range m.s.rows[feed] {
		if r.EventTime(feed).Equal(ts) && !seen[r.OrderID] {
			seen[r.OrderID] = true
			ids = append(ids, r.OrderID)
		}
	}
	return ids, nil
}

func (m *memSession) Begin(context.Context) (storage.FeedTx, error) {
	return &memTx{s: m.s}, nil
}

func (m *memSession) Close() error { return nil }

// memTx buffers writes and applies them on Commit.
type memTx struct {
	s     *memStore
	rows  map[v1.Feed][]v1.OrderRow
	facts []v1.ReturnFact
	hwm   map[v1.Feed]time.Time
	done  bool
}

func (t *memTx) InsertRows(_ context.Context, feed v1.Feed, rows []v1.OrderRow) (int64, error) {
	if t.rows == nil {
		t.rows = map[v1.Feed][]v1.OrderRow{}
	}
	t.rows[feed] = append(t.rows[feed], rows...)

	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	var n int64
	for _, r := range rows {
		k := rowKey{orderID: r.OrderID, line: r.LineIndex}
		if feed == v1.FeedUpdated {
			k.at = r.UpdatedAt.Time
		}
		if _, ok := t.s.rows[feed][k]; !ok {
			n++
		}
	}
	return n, nil
}

func (t *memTx) UpsertReturnFacts(_ context.Context, facts []v1.ReturnFact) error {
	t.facts = append(t.facts, facts...)
	return nil
}

func (t *memTx) AdvanceCheckpoint(_ context.Context, feed v1.Feed, ts time.Time) error {
	if t.hwm == nil {
		t.hwm = map[v1.Feed]time.Time{}
	}
	t.hwm[feed] = ts
	return nil
}

func (t *memTx) Commit() error {
	if t.done {
		return errors.New("tx done")
	}
	t.done = true
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for feed, rows := range t.rows {
		for _, r := range rows {
			k := rowKey{orderID: r.OrderID, line: r.LineIndex}
			if feed == v1.FeedUpdated {
				k.at = r.UpdatedAt.Time
			}
			if _, ok := t.s.rows[feed][k]; !ok {
				t.s.rows[feed][k] = r
			}
		}
	}
	for _, f := range t.facts {
		t.s.facts[factKey{f.OrderID, f.EventType, f.EventDate}] = f
	}
	for feed, ts := range t.hwm {
		if ts.After(t.s.checkpoints[feed]) {
			t.s.checkpoints[feed] = ts
		}
	}
	return nil
}

func (t *memTx) Rollback() error {
	t.done = true
	return nil
}

type fetchFunc func(ctx context.Context, w v1.FetchWindow) ([]v1.Order, error)

type fakeFetcher struct {
	mu      sync.Mutex
	windows []v1.FetchWindow
	fn      fetchFunc
}

func (f *fakeFetcher) Fetch(ctx context.Context, w v1.FetchWindow) ([]v1.Order, error) {
	f.mu.Lock()
	f.windows = append(f.windows, w)
	f.mu.Unlock()
	if f.fn == nil {
		return nil, nil
	}
	return f.fn(ctx, w)
}

func (f *fakeFetcher) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.windows)
}

type fakeRecomputer struct {
	mu     sync.Mutex
	ranges []v1.DateRange
	err    error
}

func (r *fakeRecomputer) Recompute(_ context.Context, rng v1.DateRange) (summary.Result, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ranges = append(r.ranges, rng)
	return summary.Result{Range: rng}, r.err
}

func newTenant(id string, store *memStore, fetcher *fakeFetcher, rec *fakeRecomputer, override *window.Override) *TenantContext {
	tc := &TenantContext{
		ID:         id,
		Name:       id,
		Location:   time.UTC,
		Fetcher:    fetcher,
		Tracker:    window.NewTracker(id, override),
		Flattener:  flatten.New(nil, time.UTC),
		Reconciler: returns.NewReconciler(time.UTC),
		Recomputer: rec,
	}
	if store != nil {
		tc.Store = store
	}
	return tc
}

func order(id int64, created string) v1.Order {
	return v1.Order{ID: id, Name: fmt.Sprintf("#%d", id), CreatedAt: created, UpdatedAt: created, TotalPrice: "100.00"}
}
