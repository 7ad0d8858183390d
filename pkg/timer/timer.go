package timer

import (
	"sync"
	"time"
)

// Timer is a single cancellable deferred callback. Scheduling replaces any
// pending callback, so stale callbacks never stack up.
//
// A Timer shares its owner's lock: Schedule, Cancel and Pending must be
// called with the lock held, and the callback runs with the lock held. A
// generation counter checked under that lock discards callbacks that fire
// after they were cancelled or replaced (time.AfterFunc can fire
// concurrently with Stop).
type Timer struct {
	clock   Clock
	lock    sync.Locker
	gen     uint64
	pending bool
	stop    Stopper
}

// New returns a Timer driven by clock and serialized by lock.
func New(clock Clock, lock sync.Locker) *Timer {
	return &Timer{clock: clock, lock: lock}
}

// Schedule cancels any pending callback and arranges for f to run after d.
func (t *Timer) Schedule(d time.Duration, f func()) {
	t.Cancel()
	t.gen++
	gen := t.gen
	t.pending = true
	t.stop = t.clock.AfterFunc(d, func() {
		t.lock.Lock()
		defer t.lock.Unlock()
		if gen != t.gen || !t.pending {
			return
		}
		t.pending = false
		t.stop = nil
		f()
	})
}

// Cancel drops the pending callback, if any, and reports whether one was
// pending.
func (t *Timer) Cancel() bool {
	if !t.pending {
		return false
	}
	t.gen++
	t.pending = false
	if t.stop != nil {
		t.stop.Stop()
		t.stop = nil
	}
	return true
}

// Pending reports whether a callback is scheduled and has not run.
func (t *Timer) Pending() bool {
	return t.pending
}
