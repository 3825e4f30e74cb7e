// Package sched debounces update triggers and owns the cancellation
// token for the in-flight pipeline run.
//
// The scheduler is an explicit state machine: Idle, Scheduled (timer
// pending), Running (pipeline executing). Every external trigger
// collapses Scheduled or Running back to a fresh Scheduled state,
// cancelling any in-flight context first, so at most one run's output
// can ever be applied and it is always the freshest.
package sched

import (
	"context"
	"sync"
	"time"
)

// State is the scheduler's lifecycle state.
type State int32

const (
	// Idle means nothing is pending or running.
	Idle State = iota

	// Scheduled means the debounce timer is armed.
	Scheduled

	// Running means the pipeline callback is executing.
	Running
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Scheduled:
		return "scheduled"
	case Running:
		return "running"
	default:
		return "unknown"
	}
}

// Scheduler coalesces bursts of triggers into single pipeline runs.
// All methods are safe for concurrent use; the run callback itself is
// serialized and never overlaps with a successor.
type Scheduler struct {
	mu     sync.Mutex
	delay  time.Duration
	run    func(ctx context.Context)
	timer  *time.Timer
	cancel context.CancelFunc
	state  State
	seq    uint64
	closed bool

	// runMu serializes callback execution so a superseded run fully
	// unwinds before its successor writes shared per-buffer state.
	runMu sync.Mutex
}

// New creates a scheduler that invokes run after triggers have been
// quiet for delay.
func New(delay time.Duration, run func(ctx context.Context)) *Scheduler {
	return &Scheduler{delay: delay, run: run}
}

// Trigger requests an update. Any armed timer restarts and any
// in-flight run is cancelled before the new one is scheduled.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}

	s.seq++
	seq := s.seq
	s.state = Scheduled
	s.timer = time.AfterFunc(s.delay, func() { s.fire(seq) })
}

// fire transitions Scheduled -> Running for the matching trigger.
func (s *Scheduler) fire(seq uint64) {
	s.mu.Lock()
	if s.closed || seq != s.seq {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.state = Running
	s.mu.Unlock()

	s.runMu.Lock()
	s.run(ctx)
	s.runMu.Unlock()

	s.mu.Lock()
	if seq == s.seq {
		s.state = Idle
		if s.cancel != nil {
			s.cancel()
			s.cancel = nil
		}
	}
	s.mu.Unlock()
}

// Flush cancels any pending debounce and runs the pipeline now,
// synchronously. Intended for tests and for explicit host requests.
func (s *Scheduler) Flush() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.seq++
	seq := s.seq
	s.mu.Unlock()

	s.fire(seq)
}

// SetDelay changes the debounce delay for future triggers.
func (s *Scheduler) SetDelay(delay time.Duration) {
	s.mu.Lock()
	s.delay = delay
	s.mu.Unlock()
}

// State returns the current lifecycle state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Stop cancels everything and prevents future runs. Safe to call more
// than once.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.closed = true
	s.seq++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.state = Idle
	s.mu.Unlock()

	// Wait for any executing callback to unwind.
	s.runMu.Lock()
	defer s.runMu.Unlock()
}
