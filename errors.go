// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
)

// Error kinds. Every error produced by this module matches exactly one of
// these with [errors.Is].
var (
	// ErrInvalidParams reports malformed or missing request fields.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrInvalidTransition reports an attempted mutation of a terminal task.
	ErrInvalidTransition = errors.New("invalid task state transition")

	// ErrNotFound reports an unknown task id or a missing push config.
	ErrNotFound = errors.New("not found")

	// ErrUnsupportedOperation reports a capability the agent does not offer.
	ErrUnsupportedOperation = errors.New("this operation is not supported")

	// ErrInternal reports an uncaught worker fault.
	ErrInternal = errors.New("internal error")

	// ErrDeliveryFailure reports a failed webhook delivery. It never leaves the push sender.
	ErrDeliveryFailure = errors.New("push notification delivery failed")

	// ErrTaskBusy reports that a worker is already running for the task.
	ErrTaskBusy = errors.New("task is already being processed")

	// ErrPushNotificationNotSupported reports that the agent card does not advertise push notifications.
	ErrPushNotificationNotSupported = errors.New("push notification is not supported")
)

// InvalidParamsError is returned when a request fails validation.
type InvalidParamsError struct {
	Detail string
}

// NewInvalidParamsError formats a new [InvalidParamsError].
func NewInvalidParamsError(format string, args ...any) InvalidParamsError {
	return InvalidParamsError{Detail: fmt.Sprintf(format, args...)}
}

// Error implements error.
func (e InvalidParamsError) Error() string {
	return fmt.Sprintf("invalid parameters: %s", e.Detail)
}

// Is reports whether target is [ErrInvalidParams].
func (e InvalidParamsError) Is(target error) bool { return target == ErrInvalidParams }

// TaskNotFoundError is returned when a task id is unknown.
type TaskNotFoundError struct {
	TaskID string
}

// Error implements error.
func (e TaskNotFoundError) Error() string {
	return fmt.Sprintf("task not found: %s", e.TaskID)
}

// Is reports whether target is [ErrNotFound].
func (e TaskNotFoundError) Is(target error) bool { return target == ErrNotFound }

// PushConfigNotFoundError is returned when no push config exists for a task.
type PushConfigNotFoundError struct {
	TaskID string
}

// Error implements error.
func (e PushConfigNotFoundError) Error() string {
	return fmt.Sprintf("push notification config not found for task: %s", e.TaskID)
}

// Is reports whether target is [ErrNotFound].
func (e PushConfigNotFoundError) Is(target error) bool { return target == ErrNotFound }

// InvalidTransitionError is returned when a task cannot move from From to To.
type InvalidTransitionError struct {
	TaskID string
	From   TaskState
	To     TaskState
}

// Error implements error.
func (e InvalidTransitionError) Error() string {
	return fmt.Sprintf("task %s cannot transition from %s to %s", e.TaskID, e.From, e.To)
}

// Is reports whether target is [ErrInvalidTransition].
func (e InvalidTransitionError) Is(target error) bool { return target == ErrInvalidTransition }

// UnsupportedOperationError is returned for operations the agent does not offer.
type UnsupportedOperationError struct {
	Operation string
}

// Error implements error.
func (e UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Operation)
}

// Is reports whether target is [ErrUnsupportedOperation].
func (e UnsupportedOperationError) Is(target error) bool { return target == ErrUnsupportedOperation }

// InternalError wraps a worker fault surfaced at the dispatcher boundary.
type InternalError struct {
	TaskID string
	Err    error
}

// Error implements error.
func (e InternalError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("internal error in task %s", e.TaskID)
	}
	return fmt.Sprintf("internal error in task %s: %v", e.TaskID, e.Err)
}

// Unwrap returns the underlying fault.
func (e InternalError) Unwrap() error { return e.Err }

// Is reports whether target is [ErrInternal].
func (e InternalError) Is(target error) bool { return target == ErrInternal }

// DeliveryError describes a failed webhook delivery.
type DeliveryError struct {
	TaskID     string
	URL        string
	StatusCode int
	Err        error
}

// Error implements error.
func (e DeliveryError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("deliver task %s to %s: %v", e.TaskID, e.URL, e.Err)
	}
	return fmt.Sprintf("deliver task %s to %s: unexpected status %d", e.TaskID, e.URL, e.StatusCode)
}

// Unwrap returns the transport error, if any.
func (e DeliveryError) Unwrap() error { return e.Err }

// Is reports whether target is [ErrDeliveryFailure].
func (e DeliveryError) Is(target error) bool { return target == ErrDeliveryFailure }
