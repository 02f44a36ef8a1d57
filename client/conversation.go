// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	a2a "github.com/go-a2a/taskbridge"
)

// Conversation is a multi-turn chat with one agent.
//
// All turns share one context id. When a turn pauses for input, the next
// message resumes the same task; any other turn lets the agent open a new
// task. Fresh ids are allocated only by [Conversation.Reset].
type Conversation struct {
	client  *Client
	logger  *slog.Logger
	stream  bool
	onEvent func(a2a.Event)
	push    *a2a.PushNotificationConfig

	mu        sync.Mutex
	contextID string
	taskID    string
}

// ConversationOption configures a [Conversation].
type ConversationOption func(*Conversation)

// WithStreaming overrides the transport mode. By default a conversation
// streams when the agent advertises it.
func WithStreaming(stream bool) ConversationOption {
	return func(c *Conversation) {
		c.stream = stream
	}
}

// WithEventHandler sets a function called with every event as it arrives.
func WithEventHandler(fn func(a2a.Event)) ConversationOption {
	return func(c *Conversation) {
		c.onEvent = fn
	}
}

// WithPushNotification registers config as the webhook of every task the
// conversation opens.
func WithPushNotification(config *a2a.PushNotificationConfig) ConversationOption {
	return func(c *Conversation) {
		c.push = config
	}
}

// WithConversationLogger sets the logger.
func WithConversationLogger(logger *slog.Logger) ConversationOption {
	return func(c *Conversation) {
		c.logger = logger
	}
}

// NewConversation starts a conversation with the agent behind client.
func NewConversation(client *Client, opts ...ConversationOption) *Conversation {
	c := &Conversation{
		client:    client,
		stream:    client.SupportsStreaming(),
		contextID: uuid.NewString(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// ContextID returns the id shared by the turns of the conversation.
func (c *Conversation) ContextID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.contextID
}

// PendingTaskID returns the id of the task waiting for input, if any.
func (c *Conversation) PendingTaskID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.taskID
}

// Reset starts a new conversation with a fresh context id.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.contextID = uuid.NewString()
	c.taskID = ""
}

// Send sends one user turn and reduces the agent's answer. Transport
// failures are folded into a failed outcome and also returned.
func (c *Conversation) Send(ctx context.Context, text string) (Outcome, error) {
	c.mu.Lock()
	msg := a2a.NewUserTextMessage(text, c.contextID, c.taskID)
	c.mu.Unlock()

	params := &a2a.MessageSendParams{
		Message:       msg,
		Configuration: &a2a.MessageSendConfiguration{PushNotificationConfig: c.push},
	}

	r := NewReducer()
	var err error
	if c.stream {
		err = c.sendStream(ctx, params, r)
	} else {
		err = c.sendSync(ctx, params, r)
	}
	if err != nil {
		c.logger.WarnContext(ctx, "conversation turn failed",
			slog.String("context_id", msg.ContextID),
			slog.Any("error", err),
		)
		r.ApplyError(err)
	}
	out := r.Finish()

	c.mu.Lock()
	if out.Paused {
		c.taskID = out.TaskID
	} else {
		c.taskID = ""
	}
	c.mu.Unlock()
	return out, err
}

func (c *Conversation) sendStream(ctx context.Context, params *a2a.MessageSendParams, r *Reducer) error {
	stream, err := c.client.StreamMessage(ctx, params)
	if err != nil {
		return err
	}
	defer stream.Close()

	for ev, err := range stream.All() {
		if err != nil {
			return err
		}
		c.apply(r, ev)
	}
	return nil
}

func (c *Conversation) sendSync(ctx context.Context, params *a2a.MessageSendParams, r *Reducer) error {
	blocking := true
	params.Configuration.Blocking = &blocking

	task, err := c.client.SendMessage(ctx, params)
	if err != nil {
		return err
	}
	c.apply(r, task)
	return nil
}

func (c *Conversation) apply(r *Reducer, ev a2a.Event) {
	r.Apply(ev)
	if c.onEvent != nil {
		c.onEvent(ev)
	}
}
