// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package a2a

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
)

// EventKind discriminates the variants of [Event] on the wire.
type EventKind string

// EventKind constants.
const (
	EventKindTask           EventKind = "task"
	EventKindStatusUpdate   EventKind = "status-update"
	EventKindArtifactUpdate EventKind = "artifact-update"

	// EventKindUnknown labels an [UnknownEvent]. It never appears on the wire.
	EventKindUnknown EventKind = "unknown"
)

// Event is a protocol event emitted by the lifecycle engine.
//
// The set of implementations is closed: [*Task] (a full snapshot),
// [*TaskStatusUpdateEvent] and [*TaskArtifactUpdateEvent]. Clients may also
// see [*UnknownEvent] for payloads they could not classify.
type Event interface {
	EventKind() EventKind
	EventTaskID() string
	isEvent()
}

// TaskStatusUpdateEvent reports a status transition.
type TaskStatusUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Kind      EventKind      `json:"kind"`
	Status    TaskStatus     `json:"status"`
	Final     bool           `json:"final"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

var _ Event = (*TaskStatusUpdateEvent)(nil)

// NewStatusUpdateEvent creates a status update stamped with the current time.
func NewStatusUpdateEvent(taskID, contextID string, state TaskState, msg *Message, final bool) *TaskStatusUpdateEvent {
	return &TaskStatusUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      EventKindStatusUpdate,
		Status: TaskStatus{
			State:     state,
			Message:   msg,
			Timestamp: time.Now().UTC(),
		},
		Final: final,
	}
}

// EventKind implements [Event].
func (*TaskStatusUpdateEvent) EventKind() EventKind { return EventKindStatusUpdate }

// EventTaskID implements [Event].
func (e *TaskStatusUpdateEvent) EventTaskID() string { return e.TaskID }

func (*TaskStatusUpdateEvent) isEvent() {}

// TaskArtifactUpdateEvent reports a new or extended artifact.
type TaskArtifactUpdateEvent struct {
	TaskID    string         `json:"taskId"`
	ContextID string         `json:"contextId"`
	Kind      EventKind      `json:"kind"`
	Artifact  *Artifact      `json:"artifact"`
	Append    bool           `json:"append,omitempty"`
	LastChunk bool           `json:"lastChunk,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

var _ Event = (*TaskArtifactUpdateEvent)(nil)

// NewArtifactUpdateEvent creates an artifact update.
func NewArtifactUpdateEvent(taskID, contextID string, artifact *Artifact, appendParts bool) *TaskArtifactUpdateEvent {
	return &TaskArtifactUpdateEvent{
		TaskID:    taskID,
		ContextID: contextID,
		Kind:      EventKindArtifactUpdate,
		Artifact:  artifact,
		Append:    appendParts,
		LastChunk: true,
	}
}

// EventKind implements [Event].
func (*TaskArtifactUpdateEvent) EventKind() EventKind { return EventKindArtifactUpdate }

// EventTaskID implements [Event].
func (e *TaskArtifactUpdateEvent) EventTaskID() string { return e.TaskID }

func (*TaskArtifactUpdateEvent) isEvent() {}

// IsFinal reports whether ev closes the current stream.
func IsFinal(ev Event) bool {
	su, ok := ev.(*TaskStatusUpdateEvent)
	return ok && su.Final
}

// UnknownEvent holds a payload that matched no event variant, verbatim.
type UnknownEvent struct {
	Raw jsontext.Value
}

var _ Event = (*UnknownEvent)(nil)

// EventKind implements [Event].
func (*UnknownEvent) EventKind() EventKind { return EventKindUnknown }

// EventTaskID implements [Event].
func (*UnknownEvent) EventTaskID() string { return "" }

func (*UnknownEvent) isEvent() {}

// MarshalJSON returns the raw payload.
func (e *UnknownEvent) MarshalJSON() ([]byte, error) {
	if len(e.Raw) == 0 {
		return []byte("null"), nil
	}
	return e.Raw, nil
}

// ErrUnknownEvent is returned by [DecodeEvent] for payloads that match no variant.
var ErrUnknownEvent = errors.New("unknown event payload")

// DecodeEvent decodes a JSON-RPC result payload into an [Event].
//
// The "kind" discriminator is authoritative. Payloads without it are
// classified by shape: an "artifact" member means an artifact update, a
// "taskId" plus "status" a status update, and an "id" plus "status" a task.
// A payload matching none of these but carrying a "root" object is decoded
// from that object, one level deep.
func DecodeEvent(data []byte) (Event, error) {
	return decodeEvent(data, true)
}

func decodeEvent(data []byte, unwrap bool) (Event, error) {
	var shape struct {
		Kind     EventKind      `json:"kind"`
		ID       string         `json:"id"`
		TaskID   string         `json:"taskId"`
		Status   jsontext.Value `json:"status"`
		Artifact jsontext.Value `json:"artifact"`
		Root     jsontext.Value `json:"root"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}

	kind := shape.Kind
	if kind == "" {
		switch {
		case len(shape.Artifact) > 0:
			kind = EventKindArtifactUpdate
		case shape.TaskID != "" && len(shape.Status) > 0:
			kind = EventKindStatusUpdate
		case shape.ID != "" && len(shape.Status) > 0:
			kind = EventKindTask
		case unwrap && len(shape.Root) > 0 && shape.Root.Kind() == '{':
			return decodeEvent(shape.Root, false)
		}
	}

	var ev Event
	switch kind {
	case EventKindTask:
		ev = new(Task)
	case EventKindStatusUpdate:
		ev = new(TaskStatusUpdateEvent)
	case EventKindArtifactUpdate:
		ev = new(TaskArtifactUpdateEvent)
	default:
		return nil, fmt.Errorf("%w: kind %q", ErrUnknownEvent, shape.Kind)
	}
	if err := json.Unmarshal(data, ev); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}

	switch ev := ev.(type) {
	case *Task:
		ev.Kind = EventKindTask
	case *TaskStatusUpdateEvent:
		ev.Kind = EventKindStatusUpdate
	case *TaskArtifactUpdateEvent:
		ev.Kind = EventKindArtifactUpdate
	}
	return ev, nil
}
