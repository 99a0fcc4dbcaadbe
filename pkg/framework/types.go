package framework

import (
	"context"
	"time"
)

// Named is an abstraction for things with a name.
type Named interface {
	Name() string
}

// Runnable defines a generic interface for background runners.
type Runnable interface {
	Run(context.Context) error
}

// Task defines the body of a cooperative task.
// A task holds the processor from the moment it is resumed until it
// reaches a suspension point on its TaskContext or returns.
type Task interface {
	RunTask(TaskContext) error
}

// TaskFunc is the func form of Task.
type TaskFunc func(TaskContext) error

// RunTask implements Task.
func (f TaskFunc) RunTask(tc TaskContext) error {
	return f(tc)
}

// TimeSource provides the monotonic time of the scheduler.
type TimeSource interface {
	// Now returns the time elapsed since the clock started.
	Now() time.Duration
}

// TaskContext provides the context of the running task.
type TaskContext interface {
	Named
	TimeSource
	// Context retrieves the context.Context the scheduler runs with.
	Context() context.Context
	// Sleep suspends the task for the duration. A non-positive
	// duration yields to the other ready tasks.
	Sleep(d time.Duration) error
	// Wait suspends the task until q is signaled or timeout elapses.
	// q.L must be held by the caller. It is released while the task is
	// suspended and re-acquired before Wait returns, regardless of the
	// result. Wait returns nil when signaled, ErrTimeout on timeout and
	// ErrStopped when the scheduler shuts down.
	Wait(q *WaitQueue, timeout time.Duration) error
}

// SchedulerAdder provides specific logic to add tasks to a scheduler.
type SchedulerAdder interface {
	AddToScheduler(*Scheduler) error
}

// TaskInfo is a snapshot of a spawned task.
type TaskInfo struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Resumes uint64 `json:"resumes"`
}

// DefaultMaxTasks is the default capacity of the task pool.
const DefaultMaxTasks = 8
