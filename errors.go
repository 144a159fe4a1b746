package xexec

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidOperation is the root of every invariant violation.
	ErrInvalidOperation = errors.New("xexec: invalid operation")

	// ErrReentrantInvoke is returned when a bus is fired while it is still executing.
	ErrReentrantInvoke = errors.New("xexec: bus is already executing")

	// ErrNilPayload is returned when Invoke receives a nil payload.
	ErrNilPayload = errors.New("xexec: nil payload")

	// ErrWorkPanic wraps panics recovered from work items and listeners.
	ErrWorkPanic = errors.New("xexec: work item panicked")

	// ErrObserverPoolShutdownTimeout is returned when the observer pool fails to drain in time.
	ErrObserverPoolShutdownTimeout = errors.New("xexec: observer pool shutdown timeout")
)

// InvariantError reports a programming mistake such as a binary-search insert into
// an unsorted queue. It matches ErrInvalidOperation with errors.Is.
type InvariantError struct {
	Op     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("xexec: invalid operation %s: %s", e.Op, e.Reason)
}

func (e *InvariantError) Is(target error) bool { return target == ErrInvalidOperation }

// ErrQueueUnsorted is the invariant violated by EnqueueBinarySearch on a dirty queue.
var ErrQueueUnsorted = &InvariantError{
	Op:     "EnqueueBinarySearch",
	Reason: "queue is unsorted, call SortByPriority first",
}

// ItemError wraps a failure of a single work item.
type ItemError struct {
	Event    string
	Name     string
	Priority int
	Err      error
}

func (e *ItemError) Error() string {
	return fmt.Sprintf("xexec: %s work item %q (priority %d) failed: %v", e.Event, e.Name, e.Priority, e.Err)
}

func (e *ItemError) Unwrap() error { return e.Err }

type ErrUnknownSink struct{ name string }

func (e ErrUnknownSink) Error() string { return fmt.Sprintf("xexec: unknown journal sink: %s", e.name) }
