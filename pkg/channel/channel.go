// Package channel provides fixed-capacity FIFO channels for tasks of a
// cooperative framework.Scheduler.
package channel

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robotalks/avionics.go/pkg/framework"
)

var (
	// ErrFull indicates the channel has no free slot.
	ErrFull = errors.New("channel full")
	// ErrEmpty indicates the channel holds no value.
	ErrEmpty = errors.New("channel empty")
	// ErrTimeout indicates a blocking operation didn't complete in time.
	ErrTimeout = framework.ErrTimeout
)

// Sender is the sending side of a channel.
type Sender[T any] interface {
	TrySend(v T) error
	SendTimeout(tc framework.TaskContext, v T, timeout time.Duration) error
	Clear()
}

// Receiver is the receiving side of a channel.
type Receiver[T any] interface {
	TryReceive() (T, error)
	ReceiveTimeout(tc framework.TaskContext, timeout time.Duration) (T, error)
}

// Stats are the counters of a channel.
type Stats struct {
	Name      string `json:"name"`
	Len       int    `json:"len"`
	Cap       int    `json:"cap"`
	Sent      uint64 `json:"sent"`
	Received  uint64 `json:"received"`
	Full      uint64 `json:"full"`
	Cleared   uint64 `json:"cleared"`
	Discarded uint64 `json:"discarded"`
	Timeouts  uint64 `json:"timeouts"`
}

// Channel is a bounded FIFO backed by a ring buffer allocated once.
type Channel[T any] struct {
	name  string
	buf   []T
	head  int
	count int
	stats Stats

	lock     sync.Mutex
	notFull  *framework.WaitQueue
	notEmpty *framework.WaitQueue
}

// New creates a channel with a fixed capacity. It panics if capacity is
// less than 1.
func New[T any](name string, capacity int) *Channel[T] {
	if capacity < 1 {
		panic(fmt.Sprintf("channel %s: invalid capacity %d", name, capacity))
	}
	c := &Channel[T]{name: name, buf: make([]T, capacity)}
	c.notFull = framework.NewWaitQueue(&c.lock)
	c.notEmpty = framework.NewWaitQueue(&c.lock)
	return c
}

// Name returns the name of the channel.
func (c *Channel[T]) Name() string {
	return c.name
}

// Cap returns the capacity.
func (c *Channel[T]) Cap() int {
	return len(c.buf)
}

// Len returns the number of queued values.
func (c *Channel[T]) Len() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.count
}

// Stats returns a snapshot of the counters.
func (c *Channel[T]) Stats() Stats {
	c.lock.Lock()
	defer c.lock.Unlock()
	st := c.stats
	st.Name, st.Len, st.Cap = c.name, c.count, len(c.buf)
	return st
}

// TrySend enqueues v if there is a free slot, otherwise returns ErrFull
// and leaves the contents untouched.
func (c *Channel[T]) TrySend(v T) error {
	c.lock.Lock()
	defer c.lock.Unlock()
	if !c.put(v) {
		c.stats.Full++
		return ErrFull
	}
	return nil
}

// SendTimeout enqueues v, suspending the task while the channel is full
// for at most timeout.
func (c *Channel[T]) SendTimeout(tc framework.TaskContext, v T, timeout time.Duration) error {
	deadline := tc.Now() + timeout
	c.lock.Lock()
	defer c.lock.Unlock()
	for !c.put(v) {
		remaining := deadline - tc.Now()
		err := tc.Wait(c.notFull, remaining)
		if errors.Is(err, ErrTimeout) {
			c.stats.Timeouts++
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// TryReceive dequeues the oldest value or returns ErrEmpty.
func (c *Channel[T]) TryReceive() (v T, err error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	v, ok := c.get()
	if !ok {
		return v, ErrEmpty
	}
	return v, nil
}

// ReceiveTimeout dequeues the oldest value, suspending the task while
// the channel is empty for at most timeout.
func (c *Channel[T]) ReceiveTimeout(tc framework.TaskContext, timeout time.Duration) (T, error) {
	deadline := tc.Now() + timeout
	c.lock.Lock()
	defer c.lock.Unlock()
	for {
		if v, ok := c.get(); ok {
			return v, nil
		}
		err := tc.Wait(c.notEmpty, deadline-tc.Now())
		if errors.Is(err, ErrTimeout) {
			c.stats.Timeouts++
		}
		if err != nil {
			var zero T
			return zero, err
		}
	}
}

// Clear discards all queued values and wakes parked senders.
func (c *Channel[T]) Clear() {
	c.lock.Lock()
	defer c.lock.Unlock()
	var zero T
	for n := 0; n < c.count; n++ {
		c.buf[(c.head+n)%len(c.buf)] = zero
	}
	c.stats.Cleared++
	c.stats.Discarded += uint64(c.count)
	c.head, c.count = 0, 0
	c.notFull.Broadcast()
}

func (c *Channel[T]) put(v T) bool {
	if c.count == len(c.buf) {
		return false
	}
	c.buf[(c.head+c.count)%len(c.buf)] = v
	c.count++
	c.stats.Sent++
	c.notEmpty.Signal()
	return true
}

func (c *Channel[T]) get() (v T, ok bool) {
	if c.count == 0 {
		return v, false
	}
	var zero T
	v, c.buf[c.head] = c.buf[c.head], zero
	c.head = (c.head + 1) % len(c.buf)
	c.count--
	c.stats.Received++
	c.notFull.Signal()
	return v, true
}
