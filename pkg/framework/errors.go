package framework

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrTimeout indicates a wait elapsed before it was signaled.
	ErrTimeout = errors.New("wait timeout")
	// ErrStopped is returned from suspension points once the scheduler
	// shuts down. Tasks are expected to return when they see it.
	ErrStopped = errors.New("scheduler stopped")
	// ErrStarted indicates tasks can no longer be spawned.
	ErrStarted = errors.New("scheduler already started")
	// ErrTaskPoolFull indicates MaxTasks is reached.
	ErrTaskPoolFull = errors.New("task pool full")
)

// SpawnError reports a task which can't be spawned.
type SpawnError struct {
	Task string
	Err  error
}

// Error implements error.
func (e *SpawnError) Error() string {
	return fmt.Sprintf("spawn task %q: %v", e.Task, e.Err)
}

// Unwrap returns the cause.
func (e *SpawnError) Unwrap() error {
	return e.Err
}

// AggregatedError aggregates multiple errors.
type AggregatedError struct {
	Errors []error
}

// Error implements error
func (e *AggregatedError) Error() string {
	if len(e.Errors) == 0 {
		return ""
	}
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	msg := make([]string, len(e.Errors)+1)
	msg[0] = "Multiple errors:"
	for n, err := range e.Errors {
		msg[n+1] = err.Error()
	}
	return strings.Join(msg, "\n")
}

// Unwrap exposes the aggregated errors to errors.Is and errors.As.
func (e *AggregatedError) Unwrap() []error {
	return e.Errors
}

// Add adds errors to be aggregated. nil will be skipped.
func (e *AggregatedError) Add(errs ...error) *AggregatedError {
	for _, err := range errs {
		if err != nil {
			e.Errors = append(e.Errors, err)
		}
	}
	return e
}

// Aggregate returns aggregated error if any error happened.
func (e *AggregatedError) Aggregate() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}
