// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/taskbridge"
)

func status(state a2a.TaskState, text string, final bool) *a2a.TaskStatusUpdateEvent {
	var msg *a2a.Message
	if text != "" {
		msg = a2a.NewAgentTextMessage(text, "ctx-1", "task-1")
	}
	return a2a.NewStatusUpdateEvent("task-1", "ctx-1", state, msg, final)
}

func artifact(text string) *a2a.TaskArtifactUpdateEvent {
	return a2a.NewArtifactUpdateEvent("task-1", "ctx-1", a2a.NewTextArtifact("weather_result", text), false)
}

func TestReducer(t *testing.T) {
	tests := []struct {
		name           string
		events         []a2a.Event
		wantState      State
		wantNotes      []string
		wantResponse   string
		wantPaused     bool
		wantDiagnostic bool
	}{
		{
			name: "working notes accumulate",
			events: []a2a.Event{
				status(a2a.TaskStateWorking, "Looking up weather information (get_current_weather)...", false),
				status(a2a.TaskStateWorking, "", false),
				status(a2a.TaskStateWorking, "Processing weather data...", false),
			},
			wantState: StateCompleted,
			wantNotes: []string{"Looking up weather information (get_current_weather)...", "Processing weather data..."},
		},
		{
			name: "input required pauses",
			events: []a2a.Event{
				status(a2a.TaskStateWorking, "Looking up weather information (get_current_weather)...", false),
				status(a2a.TaskStateInputRequired, "Which city?", true),
			},
			wantState:    StateInputRequired,
			wantNotes:    []string{"Looking up weather information (get_current_weather)..."},
			wantResponse: "Which city?",
			wantPaused:   true,
		},
		{
			name:         "completed records text",
			events:       []a2a.Event{status(a2a.TaskStateCompleted, "Seoul: sunny", true)},
			wantState:    StateCompleted,
			wantResponse: "Seoul: sunny",
		},
		{
			name: "completed without text keeps earlier response",
			events: []a2a.Event{
				status(a2a.TaskStateInputRequired, "Which city?", true),
				status(a2a.TaskStateCompleted, "", true),
			},
			wantState:    StateCompleted,
			wantResponse: "Which city?",
		},
		{
			name:         "failed records text",
			events:       []a2a.Event{status(a2a.TaskStateFailed, "agent crashed", true)},
			wantState:    StateFailed,
			wantResponse: "agent crashed",
		},
		{
			name:         "canceled reduces to failed",
			events:       []a2a.Event{status(a2a.TaskStateCanceled, "stopped", true)},
			wantState:    StateFailed,
			wantResponse: "stopped",
		},
		{
			name: "artifact overwrites response and completes",
			events: []a2a.Event{
				status(a2a.TaskStateInputRequired, "Which city?", false),
				artifact("Seoul: clear sky"),
			},
			wantState:    StateCompleted,
			wantResponse: "Seoul: clear sky",
		},
		{
			name: "artifact is authoritative over later status",
			events: []a2a.Event{
				artifact("Seoul: clear sky"),
				status(a2a.TaskStateFailed, "late failure", true),
			},
			wantState:    StateCompleted,
			wantResponse: "Seoul: clear sky",
		},
		{
			name: "working notes after an artifact still append",
			events: []a2a.Event{
				artifact("Seoul: clear sky"),
				status(a2a.TaskStateWorking, "Formatting weather report...", false),
				status(a2a.TaskStateCompleted, "", true),
			},
			wantState:    StateCompleted,
			wantNotes:    []string{"Formatting weather report..."},
			wantResponse: "Seoul: clear sky",
		},
		{
			name: "paused snapshot ignores artifacts of earlier turns",
			events: []a2a.Event{&a2a.Task{
				ID:        "task-1",
				ContextID: "ctx-1",
				Status: a2a.TaskStatus{
					State:   a2a.TaskStateInputRequired,
					Message: a2a.NewAgentTextMessage("Which city?", "ctx-1", "task-1"),
				},
				Artifacts: []*a2a.Artifact{a2a.NewTextArtifact("weather_result", "Busan: rain")},
				Kind:      a2a.EventKindTask,
			}},
			wantState:    StateInputRequired,
			wantResponse: "Which city?",
			wantPaused:   true,
		},
		{
			name:           "terminal event without text is diagnosed",
			events:         []a2a.Event{status(a2a.TaskStateCompleted, "", true)},
			wantState:      StateCompleted,
			wantDiagnostic: true,
		},
		{
			name:           "no events is diagnosed",
			wantState:      StateIdle,
			wantDiagnostic: true,
		},
		{
			name: "task snapshot",
			events: []a2a.Event{&a2a.Task{
				ID:        "task-1",
				ContextID: "ctx-1",
				Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted},
				Artifacts: []*a2a.Artifact{a2a.NewTextArtifact("weather_result", "Busan: rain")},
				Kind:      a2a.EventKindTask,
			}},
			wantState:    StateCompleted,
			wantResponse: "Busan: rain",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewReducer()
			for _, ev := range tt.events {
				r.Apply(ev)
			}
			out := r.Finish()

			if out.State != tt.wantState {
				t.Errorf("State = %s, want %s", out.State, tt.wantState)
			}
			if diff := cmp.Diff(tt.wantNotes, out.Notes); diff != "" {
				t.Errorf("Notes mismatch (-want +got):\n%s", diff)
			}
			if out.Response != tt.wantResponse {
				t.Errorf("Response = %q, want %q", out.Response, tt.wantResponse)
			}
			if out.Paused != tt.wantPaused {
				t.Errorf("Paused = %v, want %v", out.Paused, tt.wantPaused)
			}
			if (out.Diagnostic != nil) != tt.wantDiagnostic {
				t.Errorf("Diagnostic = %v, want present %v", out.Diagnostic, tt.wantDiagnostic)
			}
			if len(tt.events) > 0 && (out.TaskID != "task-1" || out.ContextID != "ctx-1") {
				t.Errorf("ids = %s/%s, want task-1/ctx-1", out.TaskID, out.ContextID)
			}
		})
	}
}

func TestReducerDiagnosticCarriesEvent(t *testing.T) {
	r := NewReducer()
	final := status(a2a.TaskStateCompleted, "", true)
	r.Apply(status(a2a.TaskStateSubmitted, "", false))
	r.Apply(final)

	d := r.Finish().Diagnostic
	if d == nil {
		t.Fatal("Finish() without text returned no diagnostic")
	}
	if d.Event != final || d.Events != 2 {
		t.Errorf("Diagnostic = {%v %d}, want the final event of 2", d.Event, d.Events)
	}
	if s := d.String(); !strings.Contains(s, `"completed"`) || !strings.Contains(s, `"task-1"`) {
		t.Errorf("Diagnostic.String() = %s, want the raw event", s)
	}
}

func TestReducerDiagnosticKeepsUnknownPayload(t *testing.T) {
	r := NewReducer()
	unknown := &a2a.UnknownEvent{Raw: []byte(`{"root":{"weather":"sunny"}}`)}
	r.Apply(unknown)

	out := r.Finish()
	if out.State != StateCompleted {
		t.Errorf("State = %s, want %s", out.State, StateCompleted)
	}
	if out.Diagnostic == nil {
		t.Fatal("Finish() after an unknown event returned no diagnostic")
	}
	if out.Diagnostic.Event != unknown || out.Diagnostic.Events != 1 {
		t.Errorf("Diagnostic = {%v %d}, want the unknown event of 1", out.Diagnostic.Event, out.Diagnostic.Events)
	}
	if s := out.Diagnostic.String(); !strings.Contains(s, `"sunny"`) {
		t.Errorf("Diagnostic.String() = %s, want the raw payload", s)
	}
}

func TestReducerApplyError(t *testing.T) {
	r := NewReducer()
	r.Apply(status(a2a.TaskStateWorking, "Processing weather data...", false))
	r.ApplyError(errors.New("connection reset"))

	out := r.Finish()
	if out.State != StateFailed || out.Response != "Error: connection reset" {
		t.Errorf("Finish() = %s %q, want failed with the error", out.State, out.Response)
	}
	if out.Diagnostic != nil {
		t.Errorf("Diagnostic = %v, want none", out.Diagnostic)
	}
}
