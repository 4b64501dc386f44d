package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
)

// DefaultShutdownGrace bounds how long Start waits for an in-flight run
// after its context is cancelled before abandoning it.
const DefaultShutdownGrace = 30 * time.Second

type runner interface {
	RunAll(ctx context.Context) (RunReport, error)
}

// Scheduler triggers RunAll on a fixed interval, starting immediately. A tick
// that finds the previous run still going is skipped.
type Scheduler struct {
	runner   runner
	interval time.Duration
	grace    time.Duration

	mu      sync.Mutex
	stopped bool
	running sync.WaitGroup
}

func NewScheduler(r runner, interval time.Duration) *Scheduler {
	return &Scheduler{runner: r, interval: interval, grace: DefaultShutdownGrace}
}

// Start runs until ctx is cancelled, then waits for the in-flight run.
func (s *Scheduler) Start(ctx context.Context) error {
	runCtx, cancelRuns := context.WithCancel(context.WithoutCancel(ctx))
	defer cancelRuns()

	cron := gocron.NewScheduler(time.UTC)
	cron.SingletonModeAll()
	if _, err := cron.Every(s.interval).StartImmediately().Do(s.tick, runCtx); err != nil {
		return fmt.Errorf("schedule pipeline run: %w", err)
	}

	slog.Info("[Scheduler] Starting pipeline scheduler", "interval", s.interval)
	cron.StartAsync()

	<-ctx.Done()
	slog.Info("[Scheduler] Stopping (context cancelled)")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	// Stop blocks until the running job returns.
	done := make(chan struct{})
	go func() {
		cron.Stop()
		s.running.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(s.grace):
		slog.Warn("[Scheduler] In-flight run exceeded shutdown grace, abandoning", "grace", s.grace)
		cancelRuns()
		<-done
	}

	slog.Info("[Scheduler] Stopped")
	return nil
}

func (s *Scheduler) tick(ctx context.Context) {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.running.Add(1)
	s.mu.Unlock()
	defer s.running.Done()

	report, err := s.runner.RunAll(ctx)
	if err != nil {
		slog.Warn("[Scheduler] Run not started", "error", err)
		return
	}
	if report.Failed > 0 {
		slog.Warn("[Scheduler] Run finished with failed tenants",
			"run_id", report.RunID,
			"failed", report.Failed,
		)
	}
}
