// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/telemetry"
)

// Publisher receives the protocol events produced by an [Updater].
type Publisher interface {
	Publish(ev a2a.Event)
}

// UpdaterConfig holds configuration for creating an [Updater].
type UpdaterConfig struct {
	TaskID    string
	ContextID string

	// Store persists every mutation before it is published. Required.
	Store TaskStore

	// Queue receives the events. Required.
	Queue Publisher

	// Notifier is told about every status transition. Optional.
	Notifier Notifier

	Logger    *slog.Logger
	Telemetry *telemetry.Telemetry
}

// Updater is the single writer of one task's state.
//
// Every mutation is applied in three steps under one lock: persist the new
// task record, publish the matching event, then schedule a push
// notification for status transitions. Events of one task are therefore
// published in the order the mutations were made, and every published event
// is already visible to [TaskStore.Get].
//
// Once a final status has been emitted the Updater rejects further
// mutations. A task paused in input-required is resumed with a new Updater.
type Updater struct {
	taskID    string
	contextID string
	store     TaskStore
	queue     Publisher
	notifier  Notifier
	logger    *slog.Logger
	tel       *telemetry.Telemetry

	mu     sync.Mutex
	closed bool
}

// NewUpdater creates an [Updater] with the given configuration.
func NewUpdater(config UpdaterConfig) (*Updater, error) {
	if config.TaskID == "" {
		return nil, errors.New("task ID cannot be empty")
	}
	if config.ContextID == "" {
		return nil, errors.New("context ID cannot be empty")
	}
	if config.Store == nil {
		return nil, errors.New("task store cannot be nil")
	}
	if config.Queue == nil {
		return nil, errors.New("event queue cannot be nil")
	}

	notifier := config.Notifier
	if notifier == nil {
		notifier = NoopNotifier{}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tel := config.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}

	return &Updater{
		taskID:    config.TaskID,
		contextID: config.ContextID,
		store:     config.Store,
		queue:     config.Queue,
		notifier:  notifier,
		logger:    logger.With(slog.String("task_id", config.TaskID)),
		tel:       tel,
	}, nil
}

// TaskID returns the id of the task this updater writes.
func (u *Updater) TaskID() string { return u.taskID }

// ContextID returns the context id of the task this updater writes.
func (u *Updater) ContextID() string { return u.contextID }

// Closed reports whether a final status has been emitted.
func (u *Updater) Closed() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.closed
}

// NewAgentMessage creates an agent text message bound to this task.
func (u *Updater) NewAgentMessage(text string) *a2a.Message {
	return a2a.NewAgentTextMessage(text, u.contextID, u.taskID)
}

// Create persists a freshly submitted task and publishes its snapshot.
func (u *Updater) Create(ctx context.Context, task *a2a.Task) error {
	if task == nil || task.ID != u.taskID {
		return a2a.NewInvalidParamsError("task must have id %s", u.taskID)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	if err := u.store.Save(ctx, task); err != nil {
		return err
	}
	u.publish(ctx, task.Clone())
	u.notifier.Notify(task)
	return nil
}

// AppendMessage records msg in the task history without emitting an event.
// It is used when a follow-up message resumes a paused task.
func (u *Updater) AppendMessage(ctx context.Context, msg *a2a.Message) error {
	u.mu.Lock()
	defer u.mu.Unlock()

	if u.closed {
		return a2a.InvalidTransitionError{TaskID: u.taskID}
	}
	task, err := u.store.Get(ctx, u.taskID)
	if err != nil {
		return err
	}
	if task.Status.State.IsTerminal() {
		return a2a.InvalidTransitionError{TaskID: u.taskID, From: task.Status.State, To: a2a.TaskStateWorking}
	}
	task.History = append(task.History, u.bind(msg))
	return u.store.Save(ctx, task)
}

// UpdateStatus moves the task to state with an optional message.
//
// A terminal state always produces a final event. final may also be set for
// input-required, which ends the current turn without ending the task.
// Updating a task that is already terminal fails with
// [a2a.InvalidTransitionError] and leaves the task unchanged.
func (u *Updater) UpdateStatus(ctx context.Context, state a2a.TaskState, msg *a2a.Message, final bool) (err error) {
	ctx, span := u.tel.Start(ctx, "a2a.task.update_status", u.taskID, telemetry.StateKey.String(string(state)))
	defer func() { telemetry.End(span, err) }()

	if state.IsTerminal() {
		final = true
	}
	if final && !state.IsTerminal() && !state.IsPause() {
		return a2a.NewInvalidParamsError("state %s cannot be final", state)
	}

	u.mu.Lock()
	defer u.mu.Unlock()

	task, err := u.store.Get(ctx, u.taskID)
	if err != nil {
		return err
	}
	if err := u.checkTransition(task.Status.State, state); err != nil {
		return err
	}

	msg = u.bind(msg)
	if msg != nil {
		task.History = append(task.History, msg)
	}
	task.Status = a2a.TaskStatus{
		State:     state,
		Message:   msg,
		Timestamp: time.Now().UTC(),
	}
	if err := u.store.Save(ctx, task); err != nil {
		return err
	}

	ev := &a2a.TaskStatusUpdateEvent{
		TaskID:    u.taskID,
		ContextID: u.contextID,
		Kind:      a2a.EventKindStatusUpdate,
		Status:    task.Status.Clone(),
		Final:     final,
	}
	u.publish(ctx, ev)
	if final {
		u.closed = true
	}
	u.notifier.Notify(task)

	u.logger.DebugContext(ctx, "task status updated", slog.String("state", string(state)), slog.Bool("final", final))
	return nil
}

func (u *Updater) checkTransition(from, to a2a.TaskState) error {
	if u.closed || from.IsTerminal() || to == a2a.TaskStateSubmitted {
		return a2a.InvalidTransitionError{TaskID: u.taskID, From: from, To: to}
	}
	return nil
}

// AddArtifact attaches a new artifact built from parts to the task.
func (u *Updater) AddArtifact(ctx context.Context, parts []a2a.Part, name string) error {
	if len(parts) == 0 {
		return a2a.NewInvalidParamsError("artifact requires at least one part")
	}
	_, err := u.putArtifact(ctx, a2a.NewArtifact(name, parts...), false)
	return err
}

// AppendArtifact extends the artifact with the given id by parts.
func (u *Updater) AppendArtifact(ctx context.Context, artifactID string, parts []a2a.Part) error {
	if len(parts) == 0 {
		return a2a.NewInvalidParamsError("artifact requires at least one part")
	}
	_, err := u.putArtifact(ctx, &a2a.Artifact{ArtifactID: artifactID, Parts: parts}, true)
	return err
}

func (u *Updater) putArtifact(ctx context.Context, artifact *a2a.Artifact, appendParts bool) (_ *a2a.Artifact, err error) {
	ctx, span := u.tel.Start(ctx, "a2a.task.add_artifact", u.taskID)
	defer func() { telemetry.End(span, err) }()

	u.mu.Lock()
	defer u.mu.Unlock()

	task, err := u.store.Get(ctx, u.taskID)
	if err != nil {
		return nil, err
	}
	if u.closed || task.Status.State.IsTerminal() {
		return nil, a2a.InvalidTransitionError{TaskID: u.taskID, From: task.Status.State, To: task.Status.State}
	}

	idx := slices.IndexFunc(task.Artifacts, func(a *a2a.Artifact) bool { return a.ArtifactID == artifact.ArtifactID })
	switch {
	case appendParts && idx < 0:
		return nil, a2a.NewInvalidParamsError("artifact %s not found", artifact.ArtifactID)
	case appendParts:
		task.Artifacts[idx].Parts = append(task.Artifacts[idx].Parts, artifact.Parts...)
	case idx >= 0:
		task.Artifacts[idx] = artifact
	default:
		task.Artifacts = append(task.Artifacts, artifact)
	}
	if err := u.store.Save(ctx, task); err != nil {
		return nil, err
	}

	u.publish(ctx, a2a.NewArtifactUpdateEvent(u.taskID, u.contextID, artifact.Clone(), appendParts))
	return artifact, nil
}

// StartWork marks the task as working.
func (u *Updater) StartWork(ctx context.Context, msg *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateWorking, msg, false)
}

// RequiresInput pauses the task until a follow-up message arrives.
func (u *Updater) RequiresInput(ctx context.Context, msg *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateInputRequired, msg, true)
}

// Complete marks the task as completed.
func (u *Updater) Complete(ctx context.Context) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCompleted, nil, true)
}

// Failed marks the task as failed.
func (u *Updater) Failed(ctx context.Context, msg *a2a.Message) error {
	return u.UpdateStatus(ctx, a2a.TaskStateFailed, msg, true)
}

// Cancel marks the task as canceled.
func (u *Updater) Cancel(ctx context.Context) error {
	return u.UpdateStatus(ctx, a2a.TaskStateCanceled, nil, true)
}

func (u *Updater) bind(msg *a2a.Message) *a2a.Message {
	if msg == nil {
		return nil
	}
	m := msg.Clone()
	if m.TaskID == "" {
		m.TaskID = u.taskID
	}
	if m.ContextID == "" {
		m.ContextID = u.contextID
	}
	return m
}

func (u *Updater) publish(ctx context.Context, ev a2a.Event) {
	u.queue.Publish(ev)
	u.tel.Add(ctx, u.tel.EventsPublished, telemetry.EventKindKey.String(string(ev.EventKind())))
}

// String implements [fmt.Stringer].
func (u *Updater) String() string {
	return fmt.Sprintf("Updater(task=%s, context=%s)", u.taskID, u.contextID)
}
