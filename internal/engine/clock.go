package engine

import "sync/atomic"

// Clock is the monotonic logical clock that numbers committed calls.
//
// Every committed call is stamped with a strictly increasing seq. Ordering
// in the call log uses seq only, never wall time, so a replay walks calls in
// exactly the order they were committed.
//
// Clock is safe for concurrent use. The engine only advances it while
// holding its call lock.
type Clock struct {
	seq atomic.Int64
}

// NewClock creates a clock starting at 0.
func NewClock() *Clock {
	return &Clock{}
}

// NewClockAt creates a clock positioned at start. Used when resuming an
// instance from its last committed call.
func NewClockAt(start int64) *Clock {
	c := &Clock{}
	c.seq.Store(start)
	return c
}

// Next advances the clock and returns the new seq.
func (c *Clock) Next() int64 {
	return c.seq.Add(1)
}

// Current returns the seq of the last committed call, or the start position.
func (c *Clock) Current() int64 {
	return c.seq.Load()
}
