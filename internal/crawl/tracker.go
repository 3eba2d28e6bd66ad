package crawl

import (
	"context"
	"sync"
	"sync/atomic"
)

// Tracker counts active tasks and wakes one waiter when the count returns to
// zero. The zero count is only meaningful as a phase boundary: callers must
// wrap every spawn loop in Hold so the count cannot touch zero while spawning
// is still in progress.
type Tracker struct {
	active atomic.Int64
	wake   chan struct{}
}

// NewTracker returns an idle tracker.
func NewTracker() *Tracker {
	return &Tracker{wake: make(chan struct{}, 1)}
}

// Begin registers one task. It must run before the task's goroutine starts,
// in the spawning task, so the count can never drop to zero between a parent
// retiring and its children registering.
func (t *Tracker) Begin() {
	t.active.Add(1)
}

// Finish retires one task. The waiter is woken exactly when the count
// reaches zero; the send is non-blocking because the channel already holds a
// token when two phases end back to back without a Wait in between.
func (t *Tracker) Finish() {
	n := t.active.Add(-1)
	switch {
	case n == 0:
		select {
		case t.wake <- struct{}{}:
		default:
		}
	case n < 0:
		panic("crawl: task accounting went negative")
	}
}

// Hold pins the count above zero while a batch of root tasks is spawned.
// Without it a fast subtree could finish between two spawns, wake the waiter
// early, and the quiescence assertion would fire with work still in flight.
// The returned release is idempotent.
func (t *Tracker) Hold() (release func()) {
	t.Begin()
	var once sync.Once
	return func() {
		once.Do(t.Finish)
	}
}

// Wait blocks until the active count reaches zero or ctx is cancelled. It
// consumes the wake token, so a second phase can Wait on the same tracker.
func (t *Tracker) Wait(ctx context.Context) error {
	select {
	case <-t.wake:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Count returns the number of active tasks.
func (t *Tracker) Count() int64 {
	return t.active.Load()
}
