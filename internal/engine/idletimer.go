package engine

import (
	"fmt"
	"sync"
	"time"
)

// IdleTimer is the watchdog that converts a stream of activity signals into
// idle-start/idle-end events. It holds a single pending deadline; every
// activity signal ends a running idle period and reschedules the deadline to
// now + threshold. When the deadline fires with no signal, idle state begins
// and stays sticky (no repeated idle-start) until the next signal ends it.
//
// Suspension of the signal source is indistinguishable from inactivity: the
// deadline keeps running on the last known activity and fires regardless.
//
// State transitions happen under mu and never wait on a callback, so slow
// callback work (persistence, delivery) cannot stall activity signaling.
// Callbacks themselves are serialized under deliverMu in transition order:
// an idle-end is never delivered before its matching idle-start. Callbacks
// must not call back into the timer.
type IdleTimer struct {
	mu          sync.Mutex
	deliverMu   sync.Mutex
	threshold   time.Duration
	timer       *time.Timer
	idle        bool
	idleStart   time.Time
	stopped     bool
	onIdleStart func(start time.Time)
	onIdleEnd   func(start, end time.Time)
}

// StartIdleTimer arms the watchdog and returns its cancellation handle.
// A non-positive threshold is a configuration error.
func StartIdleTimer(threshold time.Duration, onIdleStart func(start time.Time), onIdleEnd func(start, end time.Time)) (*IdleTimer, error) {
	if threshold <= 0 {
		return nil, fmt.Errorf("idle timer: threshold must be positive, got %s", threshold)
	}
	if onIdleStart == nil || onIdleEnd == nil {
		return nil, fmt.Errorf("idle timer: both callbacks are required")
	}
	t := &IdleTimer{
		threshold:   threshold,
		onIdleStart: onIdleStart,
		onIdleEnd:   onIdleEnd,
	}
	t.timer = time.AfterFunc(threshold, t.deadline)
	return t, nil
}

// Activity records an activity signal. If an idle period is running it ends
// now; either way the deadline is rescheduled to now + threshold. The caller
// delivers the idle-end callback, after any in-flight idle-start finishes.
func (t *IdleTimer) Activity(now time.Time) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	endedAt := time.Time{}
	wasIdle := t.idle
	if wasIdle {
		t.idle = false
		endedAt = t.idleStart
	}
	t.timer.Reset(t.threshold)
	t.mu.Unlock()

	if wasIdle {
		t.deliverMu.Lock()
		t.onIdleEnd(endedAt, now)
		t.deliverMu.Unlock()
	}
}

// Stop cancels the pending deadline and, if an idle period is still open,
// closes it at now. The timer cannot be restarted.
func (t *IdleTimer) Stop(now time.Time) {
	t.mu.Lock()
	if t.stopped {
		t.mu.Unlock()
		return
	}
	t.stopped = true
	t.timer.Stop()
	endedAt := time.Time{}
	wasIdle := t.idle
	if wasIdle {
		t.idle = false
		endedAt = t.idleStart
	}
	t.mu.Unlock()

	if wasIdle {
		t.deliverMu.Lock()
		t.onIdleEnd(endedAt, now)
		t.deliverMu.Unlock()
	}
}

// Idle reports whether the timer currently considers the user idle.
func (t *IdleTimer) Idle() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.idle
}

// deadline fires when the threshold elapses with no activity. The deadline
// is not rearmed until the next activity signal ends the idle period.
//
// deliverMu is taken before the state change: an activity signal landing
// between the transition and the callback then queues its idle-end behind
// the idle-start instead of overtaking it.
func (t *IdleTimer) deadline() {
	t.deliverMu.Lock()
	defer t.deliverMu.Unlock()

	t.mu.Lock()
	if t.stopped || t.idle {
		t.mu.Unlock()
		return
	}
	t.idle = true
	t.idleStart = time.Now()
	start := t.idleStart
	t.mu.Unlock()

	t.onIdleStart(start)
}
