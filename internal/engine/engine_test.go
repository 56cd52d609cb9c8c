package engine

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Engine Tests
// =============================================================================

func TestNew_Defaults(t *testing.T) {
	e := New()
	buf := make([]byte, 8)
	if _, err := io.ReadFull(e.Rand(), buf); err != nil {
		t.Fatalf("default rand unreadable: %v", err)
	}
	if d := time.Since(e.Now()); d < 0 || d > time.Minute {
		t.Errorf("default clock off by %s", d)
	}
}

func TestNew_Options(t *testing.T) {
	fixed := time.Date(2021, 6, 1, 12, 0, 0, 0, time.UTC)
	e := New(
		WithRand(bytes.NewReader([]byte{1, 2, 3, 4})),
		WithClock(func() time.Time { return fixed }),
	)

	buf := make([]byte, 4)
	if _, err := io.ReadFull(e.Rand(), buf); err != nil {
		t.Fatalf("injected rand unreadable: %v", err)
	}
	if !bytes.Equal(buf, []byte{1, 2, 3, 4}) {
		t.Errorf("rand = %v", buf)
	}
	if !e.Now().Equal(fixed) {
		t.Errorf("now = %s", e.Now())
	}
}

// =============================================================================
// Runner Tests
// =============================================================================

func TestRunner_LastStartedWins(t *testing.T) {
	var r Runner

	first := r.Begin()
	second := r.Begin()

	if !first.Stale() {
		t.Error("first run should be stale after second Begin")
	}
	if second.Stale() {
		t.Error("latest run should not be stale")
	}

	// The older run finishes later but must not publish.
	var result string
	if first.Commit(func() { result = "first" }) {
		t.Error("stale run committed")
	}
	if !second.Commit(func() { result = "second" }) {
		t.Error("latest run did not commit")
	}
	if result != "second" {
		t.Errorf("result = %q", result)
	}
}

func TestRunner_IDsIncrease(t *testing.T) {
	var r Runner
	a := r.Begin()
	b := r.Begin()
	if b.ID() <= a.ID() {
		t.Errorf("ids not increasing: %d then %d", a.ID(), b.ID())
	}
}

func TestRunner_CommitAfterCommit(t *testing.T) {
	var r Runner
	run := r.Begin()
	if !run.Commit(func() {}) {
		t.Fatal("first commit rejected")
	}
	// No newer run started: the same run may commit again.
	if !run.Commit(func() {}) {
		t.Error("repeat commit of the latest run rejected")
	}
}

func TestRunner_ConcurrentCommits(t *testing.T) {
	var r Runner
	var mu sync.Mutex
	committed := make(map[uint64]bool)

	var wg sync.WaitGroup
	runs := make([]*Run, 32)
	for i := range runs {
		runs[i] = r.Begin()
	}
	for _, run := range runs {
		wg.Add(1)
		go func(run *Run) {
			defer wg.Done()
			run.Commit(func() {
				mu.Lock()
				committed[run.ID()] = true
				mu.Unlock()
			})
		}(run)
	}
	wg.Wait()

	// Only the last-started run may have committed.
	last := runs[len(runs)-1].ID()
	for id := range committed {
		if id != last {
			t.Errorf("run %d committed; only %d may", id, last)
		}
	}
	if !committed[last] {
		t.Error("latest run never committed")
	}
}
