// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"

	a2a "github.com/go-a2a/taskbridge"
)

// State is the observable state of one conversation turn.
type State string

// State constants.
const (
	StateIdle          State = "idle"
	StateWorking       State = "working"
	StateInputRequired State = "input-required"
	StateCompleted     State = "completed"
	StateFailed        State = "failed"
)

// Diagnostic is reported instead of an empty answer when a turn produced
// neither a response nor a progress note.
type Diagnostic struct {
	// Event is the last event of the turn, nil if none arrived.
	Event a2a.Event
	// Events counts the events of the turn.
	Events int
}

// String renders the raw event for inspection.
func (d *Diagnostic) String() string {
	if d.Event == nil {
		return "no events received"
	}
	b, err := json.Marshal(d.Event, jsontext.WithIndent("  "))
	if err != nil {
		return "undecodable " + string(d.Event.EventKind()) + " event"
	}
	return string(b)
}

// Outcome is the reduction of a finished turn.
type Outcome struct {
	State      State
	TaskID     string
	ContextID  string
	Notes      []string
	Response   string
	Paused     bool
	Diagnostic *Diagnostic
}

// Reducer folds the events of one turn into an [Outcome].
//
// Progress notes accumulate from working updates. The response is the text of
// the last pause or terminal update, except that an artifact replaces it and
// settles the turn as completed; status updates seen after an artifact still
// add notes but no longer change the state or the response. A task snapshot
// contributes its artifacts only once it is terminal, since a paused or
// running task may carry artifacts of earlier turns. Unknown events count
// toward the turn and are kept for the diagnostic.
//
// The zero value is ready to use. A Reducer is not safe for concurrent use.
type Reducer struct {
	state       State
	taskID      string
	contextID   string
	notes       []string
	response    string
	paused      bool
	hasArtifact bool
	last        a2a.Event
	events      int
}

// NewReducer returns an idle [Reducer].
func NewReducer() *Reducer {
	return &Reducer{state: StateIdle}
}

// Apply folds ev into the state.
func (r *Reducer) Apply(ev a2a.Event) {
	if ev == nil {
		return
	}
	r.events++
	r.last = ev

	switch ev := ev.(type) {
	case *a2a.TaskStatusUpdateEvent:
		r.track(ev.TaskID, ev.ContextID)
		r.applyStatus(ev.Status)
	case *a2a.TaskArtifactUpdateEvent:
		r.track(ev.TaskID, ev.ContextID)
		r.applyArtifact(ev.Artifact)
	case *a2a.Task:
		r.track(ev.ID, ev.ContextID)
		if ev.Status.State.IsTerminal() {
			for _, art := range ev.Artifacts {
				r.applyArtifact(art)
			}
		}
		r.applyStatus(ev.Status)
	}
}

// ApplyError records a transport failure as the failed outcome of the turn.
func (r *Reducer) ApplyError(err error) {
	if err == nil {
		return
	}
	r.state = StateFailed
	r.paused = false
	r.response = "Error: " + err.Error()
}

func (r *Reducer) track(taskID, contextID string) {
	if taskID != "" {
		r.taskID = taskID
	}
	if contextID != "" {
		r.contextID = contextID
	}
}

func (r *Reducer) applyStatus(status a2a.TaskStatus) {
	text := status.Message.Text()
	if status.State == a2a.TaskStateWorking && text != "" {
		r.notes = append(r.notes, text)
	}
	if r.hasArtifact {
		return
	}

	switch status.State {
	case a2a.TaskStateSubmitted, a2a.TaskStateWorking:
		r.state = StateWorking
		r.paused = false
	case a2a.TaskStateInputRequired:
		r.state = StateInputRequired
		r.response = text
		r.paused = true
	case a2a.TaskStateCompleted:
		r.settle(StateCompleted, text)
	case a2a.TaskStateFailed, a2a.TaskStateCanceled:
		r.settle(StateFailed, text)
	}
}

func (r *Reducer) settle(state State, text string) {
	r.state = state
	r.paused = false
	if text != "" {
		r.response = text
	}
}

func (r *Reducer) applyArtifact(art *a2a.Artifact) {
	r.hasArtifact = true
	r.state = StateCompleted
	r.paused = false
	r.response = art.Text()
}

// State returns the current state.
func (r *Reducer) State() State {
	if r.state == "" {
		return StateIdle
	}
	return r.state
}

// Paused reports whether the agent is waiting for a follow-up message.
func (r *Reducer) Paused() bool {
	return r.paused
}

// Notes returns the progress notes seen so far.
func (r *Reducer) Notes() []string {
	return r.notes
}

// Response returns the latest response.
func (r *Reducer) Response() string {
	return r.response
}

// Finish ends the turn. A turn that ended without a pause or a terminal
// update is reported as completed.
func (r *Reducer) Finish() Outcome {
	if r.state == "" || r.state == StateIdle || r.state == StateWorking {
		if r.events > 0 {
			r.state = StateCompleted
		}
	}
	out := Outcome{
		State:     r.State(),
		TaskID:    r.taskID,
		ContextID: r.contextID,
		Notes:     r.notes,
		Response:  r.response,
		Paused:    r.paused,
	}
	if r.response == "" && len(r.notes) == 0 {
		out.Diagnostic = &Diagnostic{Event: r.last, Events: r.events}
	}
	return out
}
