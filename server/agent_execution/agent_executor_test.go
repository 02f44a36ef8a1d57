// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package agent_execution

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/taskbridge"
)

type call struct {
	op    string
	state a2a.TaskState
	text  string
	final bool
}

type fakeUpdater struct {
	calls []call
}

func (f *fakeUpdater) UpdateStatus(_ context.Context, state a2a.TaskState, msg *a2a.Message, final bool) error {
	f.calls = append(f.calls, call{op: "status", state: state, text: msg.Text(), final: final})
	return nil
}

func (f *fakeUpdater) AddArtifact(_ context.Context, parts []a2a.Part, name string) error {
	f.calls = append(f.calls, call{op: "artifact:" + name, text: a2a.ExtractText(parts)})
	return nil
}

func (f *fakeUpdater) StartWork(ctx context.Context, msg *a2a.Message) error {
	return f.UpdateStatus(ctx, a2a.TaskStateWorking, msg, false)
}

func (f *fakeUpdater) RequiresInput(ctx context.Context, msg *a2a.Message) error {
	return f.UpdateStatus(ctx, a2a.TaskStateInputRequired, msg, true)
}

func (f *fakeUpdater) Complete(ctx context.Context) error {
	return f.UpdateStatus(ctx, a2a.TaskStateCompleted, nil, true)
}

func (f *fakeUpdater) Failed(ctx context.Context, msg *a2a.Message) error {
	return f.UpdateStatus(ctx, a2a.TaskStateFailed, msg, true)
}

func (f *fakeUpdater) Cancel(ctx context.Context) error {
	return f.UpdateStatus(ctx, a2a.TaskStateCanceled, nil, true)
}

func (f *fakeUpdater) NewAgentMessage(text string) *a2a.Message {
	return a2a.NewAgentTextMessage(text, "ctx", "task")
}

type scriptedAgent struct {
	items []Item
	err   error
}

func (a scriptedAgent) Stream(context.Context, string, string) iter.Seq2[Item, error] {
	return func(yield func(Item, error) bool) {
		for _, it := range a.items {
			if !yield(it, nil) {
				return
			}
		}
		if a.err != nil {
			yield(Item{}, a.err)
		}
	}
}

func newRequestContext(text string) *RequestContext {
	task := a2a.NewTask(a2a.NewUserTextMessage(text, "ctx", "task"))
	return &RequestContext{
		TaskID:    task.ID,
		ContextID: task.ContextID,
		Message:   task.History[0],
		Task:      task,
	}
}

func TestStreamExecutorExecute(t *testing.T) {
	tests := []struct {
		name    string
		items   []Item
		err     error
		want    []call
		wantErr error
	}{
		{
			name: "progress then answer",
			items: []Item{
				{Content: "Looking up weather information..."},
				{Content: "Processing weather data..."},
				{Content: "Seoul: clear sky", Complete: true},
			},
			want: []call{
				{op: "status", state: a2a.TaskStateWorking, text: "Looking up weather information..."},
				{op: "status", state: a2a.TaskStateWorking, text: "Processing weather data..."},
				{op: "artifact:weather_result", text: "Seoul: clear sky"},
				{op: "status", state: a2a.TaskStateCompleted, final: true},
			},
		},
		{
			name:  "question pauses the task",
			items: []Item{{Content: "Which city?", RequiresInput: true}, {Content: "ignored"}},
			want: []call{
				{op: "status", state: a2a.TaskStateInputRequired, text: "Which city?", final: true},
			},
		},
		{
			name:    "stream error",
			items:   []Item{{Content: "Looking up weather information..."}},
			err:     errors.New("upstream unavailable"),
			want:    []call{{op: "status", state: a2a.TaskStateWorking, text: "Looking up weather information..."}},
			wantErr: errors.New("upstream unavailable"),
		},
		{
			name:    "no outcome",
			items:   []Item{{Content: "thinking"}},
			want:    []call{{op: "status", state: a2a.TaskStateWorking, text: "thinking"}},
			wantErr: ErrNoOutcome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := NewStreamExecutor(scriptedAgent{items: tt.items, err: tt.err}, "weather_result")
			u := &fakeUpdater{}

			err := exec.Execute(t.Context(), newRequestContext("weather?"), u)
			if (err != nil) != (tt.wantErr != nil) {
				t.Fatalf("Execute() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr != nil && err.Error() != tt.wantErr.Error() {
				t.Errorf("Execute() error = %v, want %v", err, tt.wantErr)
			}
			if diff := cmp.Diff(tt.want, u.calls, cmp.AllowUnexported(call{})); diff != "" {
				t.Errorf("updater calls mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStreamExecutorCancelUnsupported(t *testing.T) {
	exec := NewStreamExecutor(scriptedAgent{}, "")
	if exec.ArtifactName != DefaultArtifactName {
		t.Errorf("ArtifactName = %q, want %q", exec.ArtifactName, DefaultArtifactName)
	}
	err := exec.Cancel(t.Context(), newRequestContext("x"), &fakeUpdater{})
	if !errors.Is(err, a2a.ErrUnsupportedOperation) {
		t.Errorf("Cancel() error = %v, want ErrUnsupportedOperation", err)
	}
}

type listerFunc func(ctx context.Context, contextID string) ([]*a2a.Task, error)

func (f listerFunc) List(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	return f(ctx, contextID)
}

func TestSimpleRequestContextBuilder(t *testing.T) {
	task := a2a.NewTask(a2a.NewUserTextMessage("What's the weather?", "ctx-1", ""))
	earlier := a2a.NewTask(a2a.NewUserTextMessage("Weather in Busan?", "ctx-1", ""))
	params := &a2a.MessageSendParams{
		Message:  a2a.NewUserTextMessage("Seoul", "", ""),
		Metadata: map[string]any{"client": "test"},
	}

	lister := listerFunc(func(_ context.Context, contextID string) ([]*a2a.Task, error) {
		if contextID != "ctx-1" {
			t.Errorf("List() contextID = %q", contextID)
		}
		return []*a2a.Task{earlier, task}, nil
	})

	reqCtx, err := NewSimpleRequestContextBuilder(lister).Build(t.Context(), params, task, true)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if reqCtx.TaskID != task.ID || reqCtx.ContextID != "ctx-1" || !reqCtx.Resumed {
		t.Errorf("Build() = %+v", reqCtx)
	}
	if reqCtx.Message.TaskID != task.ID || reqCtx.Message.ContextID != "ctx-1" {
		t.Errorf("message not bound to the task: %+v", reqCtx.Message)
	}
	if params.Message.TaskID != "" {
		t.Error("Build() mutated the inbound message")
	}
	if got := reqCtx.UserInput(); got != "Seoul" {
		t.Errorf("UserInput() = %q, want Seoul", got)
	}
	if len(reqCtx.RelatedTasks) != 1 || reqCtx.RelatedTasks[0].ID != earlier.ID {
		t.Errorf("RelatedTasks = %v, want only the earlier task", reqCtx.RelatedTasks)
	}

	if _, err := NewSimpleRequestContextBuilder(nil).Build(t.Context(), nil, task, false); err == nil {
		t.Error("Build(nil params) error = nil")
	}
}
