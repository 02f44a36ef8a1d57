// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"fmt"
)

var errEmptyTask = errors.New("task and task id are required")

// TaskStoreError represents a storage backend failure.
type TaskStoreError struct {
	Operation string
	TaskID    string
	Err       error
}

// NewTaskStoreError creates a new [TaskStoreError].
func NewTaskStoreError(op, taskID string, err error) TaskStoreError {
	return TaskStoreError{Operation: op, TaskID: taskID, Err: err}
}

// Error returns the error message.
func (e TaskStoreError) Error() string {
	return fmt.Sprintf("task store %s failed for task %s: %v", e.Operation, e.TaskID, e.Err)
}

// Unwrap returns the underlying error.
func (e TaskStoreError) Unwrap() error {
	return e.Err
}
