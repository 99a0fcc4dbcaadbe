package framework

import "sync"

// WaitQueue parks tasks until a condition changes, much like sync.Cond
// does for goroutines. L must be held when calling Signal, Broadcast and
// TaskContext.Wait. A WaitQueue must not be copied after first use.
type WaitQueue struct {
	L sync.Locker

	head *task
	tail *task
}

// NewWaitQueue creates a WaitQueue guarded by l.
func NewWaitQueue(l sync.Locker) *WaitQueue {
	return &WaitQueue{L: l}
}

// Signal wakes the longest waiting task, if any.
// It reports whether a task was woken.
func (q *WaitQueue) Signal() bool {
	for t := q.pop(); t != nil; t = q.pop() {
		if t.sched.wake(t, wakeSignaled) {
			return true
		}
	}
	return false
}

// Broadcast wakes all waiting tasks and reports how many were woken.
func (q *WaitQueue) Broadcast() (n int) {
	for t := q.pop(); t != nil; t = q.pop() {
		if t.sched.wake(t, wakeSignaled) {
			n++
		}
	}
	return
}

// Waiters returns the number of parked tasks.
func (q *WaitQueue) Waiters() (n int) {
	for t := q.head; t != nil; t = t.waitNext {
		n++
	}
	return
}

func (q *WaitQueue) push(t *task) {
	t.waitNext, t.waitQueue = nil, q
	if q.head == nil {
		q.head = t
	} else {
		q.tail.waitNext = t
	}
	q.tail = t
}

func (q *WaitQueue) pop() *task {
	t := q.head
	if t == nil {
		return nil
	}
	q.head = t.waitNext
	if q.head == nil {
		q.tail = nil
	}
	t.waitNext, t.waitQueue = nil, nil
	return t
}

func (q *WaitQueue) remove(t *task) {
	var prev *task
	for cur := q.head; cur != nil; prev, cur = cur, cur.waitNext {
		if cur != t {
			continue
		}
		if prev == nil {
			q.head = cur.waitNext
		} else {
			prev.waitNext = cur.waitNext
		}
		if q.tail == cur {
			q.tail = prev
		}
		t.waitNext, t.waitQueue = nil, nil
		return
	}
}
