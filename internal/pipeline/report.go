package pipeline

import (
	"time"

	v1 "github.com/aevon-lab/orderpulse/internal/api/v1"
	"github.com/aevon-lab/orderpulse/internal/summary"
)

// FeedState is a step of the per-feed state machine.
type FeedState string

const (
	StateSkipped        FeedState = "SKIPPED"
	StateWindowComputed FeedState = "WINDOW_COMPUTED"
	StateFetched        FeedState = "FETCHED"
	StateDeduped        FeedState = "DEDUPED"
	StatePersisted      FeedState = "PERSISTED"
	StateReconciled     FeedState = "RECONCILED"
	StateFailed         FeedState = "FAILED"
)

// Terminal reports whether no further step follows s.
func (s FeedState) Terminal() bool {
	return s == StateSkipped || s == StateReconciled || s == StateFailed
}

// FeedResult reports one feed of a tenant run.
type FeedResult struct {
	Feed       v1.Feed     `json:"feed"`
	State      FeedState   `json:"state"`
	Trail      []FeedState `json:"trail"`
	Reason     string      `json:"reason,omitempty"`
	Low        time.Time   `json:"window_low,omitempty"`
	High       time.Time   `json:"window_high,omitempty"`
	Backfill   bool        `json:"backfill,omitempty"`
	Fetched    int         `json:"fetched"`
	Duplicates int         `json:"duplicates"`
	Rows       int64       `json:"rows_persisted"`
	Facts      int         `json:"facts"`
	Err        error       `json:"-"`
	Error      string      `json:"error,omitempty"`
}

// advance records s. A terminal state is final.
func (r *FeedResult) advance(s FeedState) {
	if r.State.Terminal() {
		return
	}
	r.State = s
	r.Trail = append(r.Trail, s)
}

func (r *FeedResult) fail(err error) {
	r.advance(StateFailed)
	r.Err = err
	r.Error = err.Error()
}

// TenantStatus is the outcome of one tenant run.
type TenantStatus string

const (
	StatusSucceeded TenantStatus = "succeeded"
	StatusFailed    TenantStatus = "failed"
	StatusSkipped   TenantStatus = "skipped"
)

// TenantResult reports one tenant run. Err joins every feed, recompute and
// checkpoint error; it never leaves the tenant boundary as a return value.
type TenantResult struct {
	RunID      string           `json:"run_id"`
	Tenant     string           `json:"tenant"`
	Status     TenantStatus     `json:"status"`
	Reason     string           `json:"reason,omitempty"`
	StartedAt  time.Time        `json:"started_at"`
	Duration   time.Duration    `json:"duration"`
	Sessions   *SessionsOutcome `json:"sessions,omitempty"`
	Feeds      []FeedResult     `json:"feeds"`
	RangeStart string           `json:"affected_start,omitempty"`
	RangeEnd   string           `json:"affected_end,omitempty"`
	Summary    *summary.Result  `json:"summary,omitempty"`
	Err        error            `json:"-"`
	Error      string           `json:"error,omitempty"`
}

type SessionsOutcome struct {
	Slots int    `json:"slots"`
	Error string `json:"error,omitempty"`
}

// RunReport aggregates one orchestration pass.
type RunReport struct {
	RunID      string         `json:"run_id"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt time.Time      `json:"finished_at"`
	Tenants    []TenantResult `json:"tenants"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Skipped    int            `json:"skipped"`
}

func (r *RunReport) tally() {
	r.Succeeded, r.Failed, r.Skipped = 0, 0, 0
	for _, t := range r.Tenants {
		switch t.Status {
		case StatusSucceeded:
			r.Succeeded++
		case StatusFailed:
			r.Failed++
		case StatusSkipped:
			r.Skipped++
		}
	}
}
