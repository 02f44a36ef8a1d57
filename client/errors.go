// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"fmt"

	a2a "github.com/go-a2a/taskbridge"
)

// HTTPError is returned when the agent answers with a non-success status
// instead of a JSON-RPC envelope.
type HTTPError struct {
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("server returned %s", e.Status)
	}
	return fmt.Sprintf("server returned %s: %s", e.Status, e.Body)
}

// IsRPCError checks if an error is a JSON-RPC error with the specified code.
func IsRPCError(err error, code int) bool {
	var rpcErr *a2a.JSONRPCError
	return errors.As(err, &rpcErr) && rpcErr.Code == code
}

// IsTaskNotFoundError checks if an error is due to a task not being found.
func IsTaskNotFoundError(err error) bool {
	return IsRPCError(err, a2a.TaskNotFoundErrorCode)
}

// IsTaskNotCancelableError checks if an error is due to a task that can no
// longer be updated.
func IsTaskNotCancelableError(err error) bool {
	return IsRPCError(err, a2a.TaskNotCancelableErrorCode)
}

// IsPushNotificationNotSupportedError checks if an error is due to push notifications not being supported.
func IsPushNotificationNotSupportedError(err error) bool {
	return IsRPCError(err, a2a.PushNotificationNotSupportedErrorCode)
}

// IsUnsupportedOperationError checks if an error is due to an unsupported operation.
func IsUnsupportedOperationError(err error) bool {
	return IsRPCError(err, a2a.UnsupportedOperationErrorCode)
}
