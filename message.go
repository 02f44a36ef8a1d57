// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"maps"
	"slices"

	"github.com/google/uuid"
)

// Role represents the role of a message sender in the A2A protocol.
type Role string

// Role constants for message senders.
const (
	RoleAgent Role = "agent"
	RoleUser  Role = "user"
)

// Message is one immutable turn exchanged between a user and an agent.
type Message struct {
	Role      Role           `json:"role"`
	Parts     Parts          `json:"parts"`
	MessageID string         `json:"messageId"`
	ContextID string         `json:"contextId,omitempty"`
	TaskID    string         `json:"taskId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Kind      string         `json:"kind,omitempty"`
}

// NewUserTextMessage creates a user message carrying a single [TextPart].
func NewUserTextMessage(text, contextID, taskID string) *Message {
	return newTextMessage(RoleUser, text, contextID, taskID)
}

// NewAgentTextMessage creates an agent message carrying a single [TextPart].
func NewAgentTextMessage(text, contextID, taskID string) *Message {
	return newTextMessage(RoleAgent, text, contextID, taskID)
}

func newTextMessage(role Role, text, contextID, taskID string) *Message {
	return &Message{
		Role:      role,
		Parts:     Parts{TextPart{Text: text}},
		MessageID: uuid.NewString(),
		ContextID: contextID,
		TaskID:    taskID,
		Kind:      "message",
	}
}

// Validate ensures the message can be accepted from a client.
func (m *Message) Validate() error {
	if m == nil {
		return NewInvalidParamsError("message is required")
	}
	if m.Role != RoleUser && m.Role != RoleAgent {
		return NewInvalidParamsError("invalid message role: %q", m.Role)
	}
	if m.MessageID == "" {
		return NewInvalidParamsError("message.messageId is required")
	}
	if len(m.Parts) == 0 {
		return NewInvalidParamsError("message must contain at least one part")
	}
	return nil
}

// Text returns the concatenated text of m's text parts.
func (m *Message) Text() string {
	if m == nil {
		return ""
	}
	return ExtractText(m.Parts)
}

// Clone returns a deep copy of m.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	c := *m
	c.Parts = slices.Clone(m.Parts)
	c.Metadata = maps.Clone(m.Metadata)
	return &c
}
