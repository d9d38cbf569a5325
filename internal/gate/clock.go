// ABOUTME: Time abstraction for the in-memory counter
// ABOUTME: ManualClock lets tests control window expiry without sleeping

package gate

import (
	"sync"
	"time"
)

// Clock provides the current time for window bookkeeping.
type Clock interface {
	Now() time.Time
}

// SystemClock implements Clock using the system wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// ManualClock implements Clock with an explicitly controlled time.
// Safe for concurrent use.
type ManualClock struct {
	mu  sync.Mutex
	now time.Time
}

// NewManualClock creates a ManualClock starting at the given time.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{now: start}
}

func (c *ManualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
