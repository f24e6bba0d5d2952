package consumer

import (
	"errors"
	"fmt"
)

var (
	ErrConsumer = errors.New("consumer error")

	// ErrSuspended is returned by Process when a worker suspended its queue.
	ErrSuspended = errors.New("queue suspended by worker")

	// ErrTransportErrorsExceeded is returned by Process when the consecutive transport error budget is spent.
	ErrTransportErrorsExceeded = errors.New("too many consecutive transport errors")
)

const (
	reasonNotStomp      = "queue not configured for this protocol"
	reasonWorkerResolve = "failed to initialize queue worker"
)

type (
	// ConsumerError reports a queue that cannot be consumed at all. It is never retried.
	ConsumerError struct {
		Queue  string
		Reason string
		Cause  error
	}

	// RequeueError asks the consumer to release the item and carry on.
	RequeueError struct {
		Cause error
	}

	// SuspendError asks the consumer to release the item and stop draining the queue.
	SuspendError struct {
		Cause error
	}
)

func (e *ConsumerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("queue %q: %s: %s", e.Queue, e.Reason, e.Cause.Error())
	}

	return fmt.Sprintf("queue %q: %s", e.Queue, e.Reason)
}

func (e *ConsumerError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrConsumer}
	}

	return []error{ErrConsumer, e.Cause}
}

// Requeue marks err as recoverable: the item goes back to the queue and processing continues.
func Requeue(err error) error {
	return &RequeueError{Cause: err}
}

// Suspend marks err as a queue-wide problem: the item goes back to the queue and processing stops.
func Suspend(err error) error {
	return &SuspendError{Cause: err}
}

func (e *RequeueError) Error() string {
	if e.Cause == nil {
		return "requeue item"
	}

	return "requeue item: " + e.Cause.Error()
}

func (e *RequeueError) Unwrap() error {
	return e.Cause
}

func (e *SuspendError) Error() string {
	if e.Cause == nil {
		return "suspend queue"
	}

	return "suspend queue: " + e.Cause.Error()
}

func (e *SuspendError) Unwrap() error {
	return e.Cause
}
