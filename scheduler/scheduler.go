// Package scheduler provides cancellable timer handles for the engine's
// notification expiry and undo-window timers. Every scheduled callback is
// owned by a Handle; a cancelled Handle never fires, even if cancellation
// races the underlying timer.
package scheduler

import (
	"sync"
	"time"
)

// Handle represents one scheduled callback that can be cancelled.
type Handle interface {
	// Cancel stops the callback from firing (again). Safe to call more than
	// once, and safe to call from within the callback itself.
	Cancel()
}

// Scheduler schedules callbacks for future execution.
type Scheduler interface {
	// After runs fn once after d has elapsed.
	After(d time.Duration, fn func()) Handle

	// Every runs fn repeatedly at intervals of d until the handle is cancelled.
	Every(d time.Duration, fn func()) Handle
}

// Timers is the production Scheduler backed by the runtime's timers.
type Timers struct{}

// NewTimers creates a wall-clock scheduler.
func NewTimers() *Timers {
	return &Timers{}
}

// timerHandle guards the callback with a cancelled flag because
// time.Timer.Stop does not guarantee an already-queued callback won't run.
type timerHandle struct {
	mu        sync.Mutex
	cancelled bool
	stop      func()
}

func (h *timerHandle) Cancel() {
	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return
	}
	h.cancelled = true
	stop := h.stop
	h.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// fire runs fn unless the handle was cancelled first.
func (h *timerHandle) fire(fn func()) {
	h.mu.Lock()
	if h.cancelled {
		h.mu.Unlock()
		return
	}
	h.mu.Unlock()

	fn()
}

// After runs fn once after d has elapsed.
func (t *Timers) After(d time.Duration, fn func()) Handle {
	h := &timerHandle{}

	timer := time.AfterFunc(d, func() {
		h.fire(fn)
	})
	h.mu.Lock()
	h.stop = func() { timer.Stop() }
	h.mu.Unlock()

	return h
}

// Every runs fn at intervals of d until cancelled.
func (t *Timers) Every(d time.Duration, fn func()) Handle {
	h := &timerHandle{}
	done := make(chan struct{})

	h.mu.Lock()
	h.stop = func() { close(done) }
	h.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				h.fire(fn)
			case <-done:
				return
			}
		}
	}()

	return h
}
