// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package a2a defines the Agent-to-Agent protocol types shared by the task
// lifecycle engine, its JSON-RPC transport and the client-side state reducer.
package a2a

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is the A2A protocol revision spoken on the wire.
const ProtocolVersion = "0.3.0"

// TaskState represents the state of a Task.
type TaskState string

const (
	// TaskStateSubmitted indicates the task has been accepted but no worker has reported progress.
	TaskStateSubmitted TaskState = "submitted"

	// TaskStateWorking indicates the task is being worked on.
	TaskStateWorking TaskState = "working"

	// TaskStateInputRequired indicates the worker paused the task waiting for a follow-up message.
	TaskStateInputRequired TaskState = "input-required"

	// TaskStateCompleted indicates the task has been completed.
	TaskStateCompleted TaskState = "completed"

	// TaskStateFailed indicates the task has failed.
	TaskStateFailed TaskState = "failed"

	// TaskStateCanceled indicates the task has been canceled.
	TaskStateCanceled TaskState = "canceled"
)

// ParseTaskState normalizes s into a [TaskState].
//
// Snake-case spellings such as "input_required" are accepted. Unknown values
// are returned unchanged so that newer peers do not break decoding.
func ParseTaskState(s string) TaskState {
	switch s {
	case "input_required", "inputRequired":
		return TaskStateInputRequired
	case "cancelled":
		return TaskStateCanceled
	}
	return TaskState(s)
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (s *TaskState) UnmarshalText(b []byte) error {
	*s = ParseTaskState(string(b))
	return nil
}

// IsTerminal reports whether no further transition is permitted out of s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	default:
		return false
	}
}

// IsPause reports whether s ends the current turn without ending the task.
func (s TaskState) IsPause() bool {
	return s == TaskStateInputRequired
}

// TaskStatus is the current status of a [Task].
type TaskStatus struct {
	State     TaskState `json:"state"`
	Message   *Message  `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp,omitzero"`
}

// Clone returns a deep copy of s.
func (s TaskStatus) Clone() TaskStatus {
	s.Message = s.Message.Clone()
	return s
}

// Task is one durable unit of work tracked by id.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId"`
	Status    TaskStatus     `json:"status"`
	Artifacts []*Artifact    `json:"artifacts,omitempty"`
	History   []*Message     `json:"history,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	Kind      EventKind      `json:"kind"`
}

var _ Event = (*Task)(nil)

// NewTask creates a submitted task for the first message of a turn.
//
// The task id is taken from msg when present, otherwise generated. The context
// id follows the same rule, and msg is stamped with both before it is recorded
// as the first history entry.
func NewTask(msg *Message) *Task {
	taskID := msg.TaskID
	if taskID == "" {
		taskID = uuid.NewString()
	}
	contextID := msg.ContextID
	if contextID == "" {
		contextID = uuid.NewString()
	}

	first := msg.Clone()
	first.TaskID = taskID
	first.ContextID = contextID

	return &Task{
		ID:        taskID,
		ContextID: contextID,
		Status: TaskStatus{
			State:     TaskStateSubmitted,
			Timestamp: time.Now().UTC(),
		},
		History: []*Message{first},
		Kind:    EventKindTask,
	}
}

// Clone returns a deep copy of t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	c.Status = t.Status.Clone()
	c.Metadata = maps.Clone(t.Metadata)
	if t.Artifacts != nil {
		c.Artifacts = make([]*Artifact, len(t.Artifacts))
		for i, a := range t.Artifacts {
			c.Artifacts[i] = a.Clone()
		}
	}
	if t.History != nil {
		c.History = make([]*Message, len(t.History))
		for i, m := range t.History {
			c.History[i] = m.Clone()
		}
	}
	if c.Kind == "" {
		c.Kind = EventKindTask
	}
	return &c
}

// WithHistoryLength returns a copy of t keeping only the n most recent
// history entries. A negative n keeps everything.
func (t *Task) WithHistoryLength(n int) *Task {
	c := t.Clone()
	if n >= 0 && len(c.History) > n {
		c.History = slices.Clone(c.History[len(c.History)-n:])
	}
	return c
}

// EventKind implements [Event].
func (t *Task) EventKind() EventKind { return EventKindTask }

// EventTaskID implements [Event].
func (t *Task) EventTaskID() string { return t.ID }

func (*Task) isEvent() {}
