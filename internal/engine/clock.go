package engine

import "sync/atomic"

// Clock is the monotonic logical tick counter. Total order across ticks
// is the counter value; wall-clock time never participates in ordering.
//
// Thread-safety: atomic, so hosts may sample Current from other
// goroutines, though only the tick loop ever advances it.
type Clock struct {
	tick atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock resuming from a recorded tick. Used by
// snapshot restore so a resumed engine continues the version sequence
// instead of replaying history.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.tick.Store(start)
	return c
}

// Advance increments the clock and returns the new tick number.
func (c *Clock) Advance() int64 {
	return c.tick.Add(1)
}

// Current returns the current tick without advancing.
func (c *Clock) Current() int64 {
	return c.tick.Load()
}
