package engine

import (
	"sync"
	"sync/atomic"
)

// Runner implements the staleness guard for reactive callers that
// re-trigger parse and verify operations on every input change.
//
// Each operation captures a Run before starting work. When the work
// completes, the result is committed only if no newer Run has started
// in the meantime: last-started-wins, stale results are discarded.
// A superseded operation still runs to completion; only its commit is
// dropped. There is no queuing and no hard timeout.
type Runner struct {
	mu  sync.Mutex
	seq atomic.Uint64
}

// Run identifies one in-flight operation.
type Run struct {
	runner *Runner
	id     uint64
}

// Begin starts a new run, superseding all previously started runs.
func (r *Runner) Begin() *Run {
	return &Run{runner: r, id: r.seq.Add(1)}
}

// ID returns the run's sequence number.
func (run *Run) ID() uint64 {
	return run.id
}

// Stale reports whether a newer run has started since this one began.
func (run *Run) Stale() bool {
	return run.runner.seq.Load() != run.id
}

// Commit executes fn only if this run is still the latest one.
// It returns true if fn was executed. The commit is serialized so two
// completing runs cannot interleave their result publication.
func (run *Run) Commit(fn func()) bool {
	run.runner.mu.Lock()
	defer run.runner.mu.Unlock()
	if run.Stale() {
		return false
	}
	fn()
	return true
}
