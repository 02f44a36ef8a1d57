// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package agent_execution defines the contract between the request
// dispatcher and the agent logic that works on a task.
package agent_execution

import (
	"context"

	a2a "github.com/go-a2a/taskbridge"
)

// Updater is the handle an [AgentExecutor] uses to report progress.
//
// All task mutations go through it; an executor never writes the task store
// or the event queue directly.
type Updater interface {
	UpdateStatus(ctx context.Context, state a2a.TaskState, msg *a2a.Message, final bool) error
	AddArtifact(ctx context.Context, parts []a2a.Part, name string) error
	StartWork(ctx context.Context, msg *a2a.Message) error
	RequiresInput(ctx context.Context, msg *a2a.Message) error
	Complete(ctx context.Context) error
	Failed(ctx context.Context, msg *a2a.Message) error
	Cancel(ctx context.Context) error

	// NewAgentMessage creates an agent text message bound to the task.
	NewAgentMessage(text string) *a2a.Message
}

// AgentExecutor contains the business logic of an agent.
type AgentExecutor interface {
	// Execute works on the task described by reqCtx and reports through
	// updater. It is expected to end the turn with a final status: completed,
	// failed or input-required. Returning an error without one fails the task.
	Execute(ctx context.Context, reqCtx *RequestContext, updater Updater) error

	// Cancel asks the agent to stop working on the task. Executors that cannot
	// stop cooperatively return an error matching [a2a.ErrUnsupportedOperation].
	Cancel(ctx context.Context, reqCtx *RequestContext, updater Updater) error
}

// RequestContext carries what an [AgentExecutor] needs to know about one turn.
type RequestContext struct {
	TaskID    string
	ContextID string

	// Message is the inbound message that started this turn.
	Message *a2a.Message

	// Task is the task snapshot at the start of the turn.
	Task *a2a.Task

	// Resumed is set when Message answers an input-required pause.
	Resumed bool

	// RelatedTasks are the other tasks of the same context, oldest first.
	RelatedTasks []*a2a.Task

	Metadata map[string]any
}

// UserInput returns the text of the inbound message.
func (r *RequestContext) UserInput() string {
	if r == nil {
		return ""
	}
	return r.Message.Text()
}
