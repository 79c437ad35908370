package testutil

import "sync"

// DeterministicClock is a thread-safe unix clock for tests.
//
// Each call to Now returns the previous value plus step, starting at
// start. The same scenario run against a fresh clock stamps identical
// timestamps, which keeps golden traces stable.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu    sync.Mutex
	start int64
	step  int64
	now   int64
}

// NewDeterministicClock creates a clock whose first Now() returns start.
// A step of 0 yields a frozen clock.
func NewDeterministicClock(start, step int64) *DeterministicClock {
	return &DeterministicClock{start: start, step: step, now: start - step}
}

// Now advances the clock by step and returns the new value.
//
// Monotonic for step >= 0: never decreases.
func (c *DeterministicClock) Now() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now += c.step
	return c.now
}

// Current returns the last value returned by Now without advancing.
func (c *DeterministicClock) Current() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Reset rewinds the clock so the next Now() returns start again.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.start - c.step
}
