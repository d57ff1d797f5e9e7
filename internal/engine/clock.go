package engine

import "sync/atomic"

// Clock numbers the steps of a run.
//
// Step numbers start at 1 and strictly increase. Compaction uses them as the
// "current step" for recency protection, and records use them as keys, so
// they never come from wall-clock time.
//
// Thread-safety: Clock is safe for concurrent use, though only the driving
// goroutine advances it.
type Clock struct {
	step atomic.Int64
}

// NewClock creates a clock whose first Next returns 1.
func NewClock() *Clock {
	return &Clock{}
}

// Next advances the clock and returns the new step number.
func (c *Clock) Next() int64 {
	return c.step.Add(1)
}

// Current returns the last step number handed out, 0 before the first step.
func (c *Clock) Current() int64 {
	return c.step.Load()
}
