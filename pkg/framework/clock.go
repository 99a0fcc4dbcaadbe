package framework

import (
	"context"
	"sync"
	"time"
)

// Clock drives the timers of a Scheduler.
type Clock interface {
	TimeSource
	// WaitUntil blocks until Now() reaches t. It returns early with nil
	// when wake fires, or with the context error when ctx is done.
	WaitUntil(ctx context.Context, t time.Duration, wake <-chan struct{}) error
}

// MonotonicClock follows the wall clock from the moment it is created.
type MonotonicClock struct {
	start time.Time
}

// NewMonotonicClock creates a MonotonicClock starting now.
func NewMonotonicClock() *MonotonicClock {
	return &MonotonicClock{start: time.Now()}
}

// Now implements TimeSource.
func (c *MonotonicClock) Now() time.Duration {
	return time.Since(c.start)
}

// WaitUntil implements Clock.
func (c *MonotonicClock) WaitUntil(ctx context.Context, t time.Duration, wake <-chan struct{}) error {
	d := t - c.Now()
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
	case <-timer.C:
	}
	return nil
}

// VirtualClock only moves when the scheduler waits on it, and then jumps
// straight to the deadline. Runs on a virtual clock are deterministic.
type VirtualClock struct {
	now  time.Duration
	lock sync.Mutex
}

// NewVirtualClock creates a VirtualClock at time zero.
func NewVirtualClock() *VirtualClock {
	return &VirtualClock{}
}

// Now implements TimeSource.
func (c *VirtualClock) Now() time.Duration {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *VirtualClock) Advance(d time.Duration) {
	c.lock.Lock()
	if d > 0 {
		c.now += d
	}
	c.lock.Unlock()
}

// WaitUntil implements Clock.
func (c *VirtualClock) WaitUntil(ctx context.Context, t time.Duration, wake <-chan struct{}) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-wake:
		return nil
	default:
	}
	c.lock.Lock()
	if t > c.now {
		c.now = t
	}
	c.lock.Unlock()
	return nil
}
