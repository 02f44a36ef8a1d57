// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package handler dispatches A2A requests to an agent and adapts them to
// JSON-RPC over HTTP.
//
// [DefaultRequestHandler] resolves or creates the task a message belongs to,
// runs the agent detached from the request, and serves the result either as a
// blocking call or as an event stream. [JSONRPCHandler] exposes any
// [RequestHandler] as an [net/http.Handler].
package handler

import (
	"context"
	"iter"

	a2a "github.com/go-a2a/taskbridge"
)

// RequestHandler handles A2A protocol requests independently of the transport.
type RequestHandler interface {
	// OnMessageSend runs a turn and returns the task once it completes,
	// fails, is canceled or pauses for input.
	OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error)

	// OnMessageSendStream runs a turn and returns its events. The sequence
	// ends after the first final status event. Stopping the iteration early
	// detaches the caller without stopping the agent. Callers must range over
	// the returned sequence.
	OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) (iter.Seq2[a2a.Event, error], error)

	// OnGetTask returns the current snapshot of a task.
	OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error)

	// OnCancelTask moves a task to canceled and asks its agent to stop.
	OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (*a2a.Task, error)

	// OnSetPushConfig stores the webhook of a task.
	OnSetPushConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error)

	// OnGetPushConfig returns the webhook of a task.
	OnGetPushConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error)

	// OnDeletePushConfig removes the webhook of a task.
	OnDeletePushConfig(ctx context.Context, params *a2a.TaskIDParams) error
}
