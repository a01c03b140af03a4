// Package testutil provides deterministic test doubles for the tracker's
// collaborators: a manual clock, a fake browser environment, a capturing
// batch sender, and a sequential id generator.
package testutil

import (
	"sync"
	"time"
)

// ManualClock is a settable wall clock for tests.
//
// Unlike time.Now, ManualClock only moves when the test advances it, so
// sliding-expiration and threshold logic can be exercised without sleeping.
type ManualClock struct {
	mu sync.Mutex
	t  time.Time
}

// NewManualClock creates a clock fixed at start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{t: start}
}

// Now returns the current manual time. Pass this method as the clock
// function to components under test.
func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// Set jumps the clock to t.
func (c *ManualClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}
