// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package client talks to A2A agents over JSON-RPC.
//
// [Client] wraps the protocol methods, [CardResolver] discovers an agent,
// [Reducer] folds an event sequence into what a user should see, and
// [Conversation] combines them into a multi-turn chat. [PushReceiver] accepts
// the webhook deliveries an agent sends for tasks the client subscribed to.
package client

import (
	"context"
	"errors"

	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/taskbridge"
)

// Client is a JSON-RPC client of one agent.
type Client struct {
	card      *a2a.AgentCard
	transport *Transport
}

// NewClient creates a [Client] posting to the JSON-RPC endpoint at url.
func NewClient(url string, opts ...Option) *Client {
	return &Client{transport: NewTransport(url, opts...)}
}

// NewClientFromCard creates a [Client] for the agent described by card.
func NewClientFromCard(card *a2a.AgentCard, opts ...Option) (*Client, error) {
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return &Client{card: card, transport: NewTransport(card.URL, opts...)}, nil
}

// Card returns the agent card the client was created from, or nil.
func (c *Client) Card() *a2a.AgentCard {
	return c.card
}

// SupportsStreaming reports whether the agent advertises message/stream. A
// client created without a card assumes it does.
func (c *Client) SupportsStreaming() bool {
	return c.card == nil || c.card.Capabilities.Streaming
}

// SendMessage calls message/send and returns the resulting task snapshot.
func (c *Client) SendMessage(ctx context.Context, params *a2a.MessageSendParams) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var result jsontext.Value
	if err := c.transport.Call(ctx, a2a.MethodMessageSend, params, &result); err != nil {
		return nil, err
	}
	ev, err := a2a.DecodeEvent(result)
	if err != nil {
		return nil, err
	}
	task, ok := ev.(*a2a.Task)
	if !ok {
		return nil, errors.New("message/send: agent did not return a task")
	}
	return task, nil
}

// StreamMessage calls message/stream. The caller must close the returned stream.
func (c *Client) StreamMessage(ctx context.Context, params *a2a.MessageSendParams) (*Stream, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return c.transport.Stream(ctx, a2a.MethodMessageStream, params)
}

// GetTask calls tasks/get.
func (c *Client) GetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var task a2a.Task
	if err := c.transport.Call(ctx, a2a.MethodTasksGet, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// CancelTask calls tasks/cancel.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*a2a.Task, error) {
	params := &a2a.TaskIDParams{ID: taskID}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var task a2a.Task
	if err := c.transport.Call(ctx, a2a.MethodTasksCancel, params, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// SetPushConfig calls tasks/pushNotificationConfig/set. A later call for the
// same task replaces the webhook.
func (c *Client) SetPushConfig(ctx context.Context, config *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	var got a2a.TaskPushNotificationConfig
	if err := c.transport.Call(ctx, a2a.MethodPushConfigSet, config, &got); err != nil {
		return nil, err
	}
	return &got, nil
}

// GetPushConfig calls tasks/pushNotificationConfig/get.
func (c *Client) GetPushConfig(ctx context.Context, taskID string) (*a2a.TaskPushNotificationConfig, error) {
	params := &a2a.TaskIDParams{ID: taskID}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	var got a2a.TaskPushNotificationConfig
	if err := c.transport.Call(ctx, a2a.MethodPushConfigGet, params, &got); err != nil {
		return nil, err
	}
	return &got, nil
}

// DeletePushConfig calls tasks/pushNotificationConfig/delete.
func (c *Client) DeletePushConfig(ctx context.Context, taskID string) error {
	params := &a2a.TaskIDParams{ID: taskID}
	if err := params.Validate(); err != nil {
		return err
	}
	return c.transport.Call(ctx, a2a.MethodPushConfigDelete, params, nil)
}
