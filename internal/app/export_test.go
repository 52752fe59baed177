package app

import (
	"sync"
	"time"
)

// SetBeforeSubmitLock installs a hook that runs inside Submit right before
// the session lock is taken.
func SetBeforeSubmitLock(s *QuizService, hook func()) {
	s.beforeSubmitLock = hook
}

// ManualClock records scheduled callbacks; tests fire them explicitly.
type ManualClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*manualTimer
}

type manualTimer struct {
	clock   *ManualClock
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func NewManualClock() *ManualClock {
	return &ManualClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *ManualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, d: d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// FireNext runs the oldest pending callback and reports whether one ran.
func (c *ManualClock) FireNext() bool {
	c.mu.Lock()
	var next *manualTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			next = t
			break
		}
	}
	if next != nil {
		next.fired = true
		c.now = c.now.Add(next.d)
	}
	c.mu.Unlock()

	if next == nil {
		return false
	}
	next.f()
	return true
}

// Pending counts callbacks that have neither fired nor been stopped.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Replay runs the i-th scheduled callback again regardless of its state.
func (c *ManualClock) Replay(i int) {
	c.mu.Lock()
	f := c.timers[i].f
	c.mu.Unlock()
	f()
}

// Scheduled reports how many callbacks were ever scheduled.
func (c *ManualClock) Scheduled() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.timers)
}

// Windows returns the durations callbacks were scheduled with.
func (c *ManualClock) Windows() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.timers))
	for i, t := range c.timers {
		out[i] = t.d
	}
	return out
}
