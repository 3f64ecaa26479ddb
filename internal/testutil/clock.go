package testutil

import (
	"sync"
	"time"
)

// Epoch is the default start of DeterministicClock.
var Epoch = time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC)

// DeterministicClock is a thread-safe wall clock for tests that advances by a
// fixed step on every Next.
//
// It can be reset for test reuse, so the same scenario produces identical
// created_at values every run.
type DeterministicClock struct {
	mu    sync.Mutex
	start time.Time
	step  time.Duration
	now   time.Time
}

// NewDeterministicClock creates a clock at start advancing by step.
// A zero start means Epoch; a zero step means one second.
func NewDeterministicClock(start time.Time, step time.Duration) *DeterministicClock {
	if start.IsZero() {
		start = Epoch
	}
	if step == 0 {
		step = time.Second
	}
	return &DeterministicClock{start: start, step: step, now: start}
}

// Next returns the current time and then advances the clock by one step.
// The first call returns start.
func (c *DeterministicClock) Next() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Current returns the time the next call to Next will return.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset moves the clock back to start.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start
}
