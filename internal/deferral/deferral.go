// Package deferral provides a single-slot delayed action.
//
// A Timer is either Idle or Armed. Request arms an Idle timer and is a no-op
// on an Armed one: the pending action is neither replaced, duplicated nor
// pushed back. The timer returns to Idle when its action starts running, or
// when Stop disarms it first.
package deferral

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Chifiwang/obsidian-git-integration/internal/clock"
)

// Action is the deferred work.
type Action func(ctx context.Context)

// Timer is a single-slot deferred action. The zero value is not usable;
// create one with New.
type Timer struct {
	clock clock.Clock
	armed atomic.Bool

	mu      sync.Mutex
	pending clock.Timer
	gen     uint64

	inflight sync.WaitGroup
}

// New returns an Idle timer scheduling on c.
func New(c clock.Clock) *Timer {
	return &Timer{clock: c}
}

// Request arms the timer to run action after delay. It returns false, and
// discards action, if the timer is already Armed.
func (t *Timer) Request(ctx context.Context, action Action, delay time.Duration) bool {
	if !t.armed.CompareAndSwap(false, true) {
		return false
	}
	if delay < 0 {
		delay = 0
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.gen++
	gen := t.gen
	t.inflight.Add(1)
	t.pending = t.clock.AfterFunc(delay, func() { t.fire(ctx, gen, action) })
	return true
}

func (t *Timer) fire(ctx context.Context, gen uint64, action Action) {
	defer t.inflight.Done()

	t.mu.Lock()
	if gen != t.gen || t.pending == nil {
		// disarmed by Stop after the clock had already dispatched us
		t.mu.Unlock()
		return
	}
	t.pending = nil
	// the slot frees as the action starts, so work arriving during the
	// action can arm the next one
	t.armed.Store(false)
	t.mu.Unlock()

	action(ctx)
}

// Stop disarms the timer without running its action. It reports whether a
// pending action was cancelled. An action that has already started is not
// interrupted.
func (t *Timer) Stop() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return false
	}

	if t.pending.Stop() {
		t.inflight.Done()
	}
	t.pending = nil
	t.gen++
	t.armed.Store(false)
	return true
}

// Armed reports whether an action is waiting to fire. A running action does
// not count; Wait covers it.
func (t *Timer) Armed() bool {
	return t.armed.Load()
}

// Wait blocks until no action is pending or running.
func (t *Timer) Wait() {
	t.inflight.Wait()
}
