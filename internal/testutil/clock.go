// Package testutil provides deterministic fixtures for tests: a
// stepping clock and a pre-seeded bakery store.
package testutil

import (
	"sync"
	"time"
)

// Clock is a thread-safe deterministic time source for tests.
//
// Each Now call returns the current instant and advances by a fixed
// step, so seeded rows get distinct, reproducible timestamps. Unlike
// time.Now it can be reset, which lets the same scenario run twice
// with identical values.
type Clock struct {
	mu    sync.Mutex
	start time.Time
	next  time.Time
	step  time.Duration
}

// NewClock creates a clock that starts at start and advances by step
// on every Now call.
func NewClock(start time.Time, step time.Duration) *Clock {
	return &Clock{start: start, next: start, step: step}
}

// Now returns the next instant and advances the clock.
//
// Thread-safe: uses a mutex to protect the position.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.next
	c.next = c.next.Add(c.step)
	return t
}

// Peek returns the instant the next Now call will produce, without
// advancing.
func (c *Clock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.next
}

// Reset rewinds the clock to its start instant.
//
// After Reset, Now returns the same sequence again.
func (c *Clock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.next = c.start
}
