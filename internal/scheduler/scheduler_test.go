package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// countingRun records invocations and lets the test wait on them.
type countingRun struct {
	mu    sync.Mutex
	count int
	err   error
	done  chan struct{}
}

func (c *countingRun) run(ctx context.Context) error {
	c.mu.Lock()
	c.count++
	c.mu.Unlock()
	select {
	case c.done <- struct{}{}:
	default:
	}
	return c.err
}

func (c *countingRun) calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

func waitFor(t *testing.T, ch chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for a run")
	}
}

func TestRunsImmediatelyOnStart(t *testing.T) {
	cr := &countingRun{done: make(chan struct{}, 1)}
	s := New(cr.run, time.Hour)

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, cr.done)
	assert.GreaterOrEqual(t, cr.calls(), 1)
}

func TestTriggerForcesRun(t *testing.T) {
	cr := &countingRun{done: make(chan struct{}, 1)}
	s := New(cr.run, time.Hour)

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, cr.done) // startup run

	s.Trigger()
	waitFor(t, cr.done)
	assert.GreaterOrEqual(t, cr.calls(), 2)
}

func TestRunFailureKeepsLoopAlive(t *testing.T) {
	cr := &countingRun{done: make(chan struct{}, 1), err: errors.New("batch failed")}
	s := New(cr.run, time.Hour)

	s.Start(context.Background())
	defer s.Stop()

	waitFor(t, cr.done)

	s.Trigger()
	waitFor(t, cr.done)
	assert.GreaterOrEqual(t, cr.calls(), 2, "a failed run must not stop the loop")
}

func TestStopWaitsForLoop(t *testing.T) {
	cr := &countingRun{done: make(chan struct{}, 1)}
	s := New(cr.run, 10*time.Millisecond)

	s.Start(context.Background())
	waitFor(t, cr.done)
	s.Stop()

	// No runs after Stop returns.
	settled := cr.calls()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, settled, cr.calls())
}

func TestIntervalDefault(t *testing.T) {
	s := New(func(ctx context.Context) error { return nil }, 0)
	assert.Equal(t, DefaultInterval, s.interval)
}
