// Package timeutil provides a replaceable clock and the instant parsing shared
// by the GPX and CSV readers.
package timeutil

import (
	"sync"
	"time"
)

// Clock supplies the current time. Run records take their timestamp from it.
type Clock interface {
	Now() time.Time
}

// Since is time.Since measured on c.
func Since(c Clock, t time.Time) time.Duration {
	return c.Now().Sub(t)
}

// RealClock reads the system clock.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// MockClock stands still until moved with Set or Advance.
type MockClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewMockClock(t time.Time) *MockClock {
	return &MockClock{now: t}
}

func (c *MockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *MockClock) Set(t time.Time) {
	c.mu.Lock()
	c.now = t
	c.mu.Unlock()
}

func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}
