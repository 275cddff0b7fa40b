// Package scheduler drives periodic pipeline runs. One goroutine owns
// the loop, so scheduled and manually triggered runs never overlap.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultInterval is the time between scheduled runs.
const DefaultInterval = time.Hour

// RunFunc executes one batch.
type RunFunc func(ctx context.Context) error

// Scheduler runs the pipeline on a fixed interval and on demand.
type Scheduler struct {
	run      RunFunc
	interval time.Duration
	trigger  chan struct{}
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// New creates a scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(run RunFunc, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		run:      run,
		interval: interval,
		trigger:  make(chan struct{}, 1),
	}
}

// Start launches the loop. The first run fires immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(1)
	go s.loop(ctx)

	slog.Info("scheduler started", "interval", s.interval)
}

// Stop cancels the loop and waits for an in-flight run to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
	slog.Info("scheduler stopped")
}

// Trigger requests an immediate run. If a trigger is already pending
// the request coalesces with it.
func (s *Scheduler) Trigger() {
	select {
	case s.trigger <- struct{}{}:
	default:
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.runOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		case <-s.trigger:
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := s.run(ctx); err != nil {
		slog.Error("scheduled run failed", "error", err)
	}
}
