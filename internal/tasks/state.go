package tasks

import (
	"sync"
	"sync/atomic"
)

// ItemFailure records a single file that could not be transferred.
type ItemFailure struct {
	Name  string `json:"name"`
	Cause string `json:"cause"`
}

// RunState accumulates confirmed outcomes for a sync run.
//
// Counters only move on terminal outcomes: a file counts as succeeded
// after the destination confirms its batch commit, not when its bytes
// finish uploading. The cancel flag is set-once and is observed
// cooperatively by the worker pool.
type RunState struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	skipped   int
	bytes     int64
	failures  []ItemFailure

	cancelled atomic.Bool
	cancelOne sync.Once
}

func NewRunState() *RunState {
	return &RunState{}
}

func (s *RunState) RecordSuccess(size int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.succeeded++
	s.bytes += size
}

func (s *RunState) RecordFailure(name, cause string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed++
	s.failures = append(s.failures, ItemFailure{Name: name, Cause: cause})
}

func (s *RunState) RecordSkip() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.skipped++
}

// Cancel sets the cancellation flag. The first call runs fn (if non-nil);
// later calls are no-ops. Cancellation never aborts in-flight work, it
// only stops new items from being claimed.
func (s *RunState) Cancel(fn func()) {
	s.cancelOne.Do(func() {
		s.cancelled.Store(true)
		if fn != nil {
			fn()
		}
	})
}

func (s *RunState) Cancelled() bool {
	return s.cancelled.Load()
}

// Totals is a point-in-time snapshot of the confirmed counters.
type Totals struct {
	Succeeded int
	Failed    int
	Skipped   int
	Bytes     int64
	Failures  []ItemFailure
}

func (s *RunState) Snapshot() Totals {
	s.mu.Lock()
	defer s.mu.Unlock()
	failures := make([]ItemFailure, len(s.failures))
	copy(failures, s.failures)
	return Totals{
		Succeeded: s.succeeded,
		Failed:    s.failed,
		Skipped:   s.skipped,
		Bytes:     s.bytes,
		Failures:  failures,
	}
}
