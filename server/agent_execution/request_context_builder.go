// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"fmt"

	a2a "github.com/go-a2a/taskbridge"
)

// RequestContextBuilder builds the [RequestContext] handed to an [AgentExecutor].
type RequestContextBuilder interface {
	// Build creates the context for a turn on task started by params.
	// resumed reports whether the message answers an input-required pause.
	Build(ctx context.Context, params *a2a.MessageSendParams, task *a2a.Task, resumed bool) (*RequestContext, error)
}

// TaskLister lists the tasks of one context.
type TaskLister interface {
	List(ctx context.Context, contextID string) ([]*a2a.Task, error)
}

// SimpleRequestContextBuilder is the default [RequestContextBuilder].
// With a [TaskLister] it also attaches the other tasks of the context.
type SimpleRequestContextBuilder struct {
	lister TaskLister
}

var _ RequestContextBuilder = (*SimpleRequestContextBuilder)(nil)

// NewSimpleRequestContextBuilder creates a builder. lister may be nil, in
// which case related tasks are not populated.
func NewSimpleRequestContextBuilder(lister TaskLister) *SimpleRequestContextBuilder {
	return &SimpleRequestContextBuilder{lister: lister}
}

// Build implements [RequestContextBuilder].
func (b *SimpleRequestContextBuilder) Build(ctx context.Context, params *a2a.MessageSendParams, task *a2a.Task, resumed bool) (*RequestContext, error) {
	if params == nil || params.Message == nil {
		return nil, errors.New("message send params cannot be nil")
	}
	if task == nil {
		return nil, errors.New("task cannot be nil")
	}

	msg := params.Message.Clone()
	msg.TaskID = task.ID
	msg.ContextID = task.ContextID

	reqCtx := &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Message:   msg,
		Task:      task.Clone(),
		Resumed:   resumed,
		Metadata:  params.Metadata,
	}

	if b.lister != nil {
		tasks, err := b.lister.List(ctx, task.ContextID)
		if err != nil {
			return nil, fmt.Errorf("failed to populate related tasks: %w", err)
		}
		for _, t := range tasks {
			if t.ID != task.ID {
				reqCtx.RelatedTasks = append(reqCtx.RelatedTasks, t)
			}
		}
	}

	return reqCtx, nil
}
