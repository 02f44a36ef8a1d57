// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/server/agent_execution"
	"github.com/go-a2a/taskbridge/server/event"
	"github.com/go-a2a/taskbridge/server/task"
	"github.com/go-a2a/taskbridge/telemetry"
)

// DefaultRequestHandler is the default [RequestHandler].
//
// At most one agent invocation owns a task id; a message for a task whose
// agent has not yet emitted a final status is rejected with
// [a2a.ErrTaskBusy]. Once the final status is out, the task may be claimed
// again while the previous agent is still returning. Agents run detached
// from the request that started them, so a caller that goes away does not
// stop the work.
type DefaultRequestHandler struct {
	executor    agent_execution.AgentExecutor
	tasks       task.TaskStore
	pushConfigs task.PushConfigStore
	notifier    task.Notifier
	queues      *event.QueueManager
	builder     agent_execution.RequestContextBuilder
	logger      *slog.Logger
	tel         *telemetry.Telemetry

	mu                sync.Mutex
	runs              map[string]*run
	draining          map[*run]struct{}
	cancelUnsupported map[string]struct{}
	wg                conc.WaitGroup
}

var _ RequestHandler = (*DefaultRequestHandler)(nil)

// run is one agent invocation on a task.
type run struct {
	taskID  string
	updater *task.Updater
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{}

	mu     sync.Mutex
	reqCtx *agent_execution.RequestContext
	err    error
}

func (r *run) setRequestContext(reqCtx *agent_execution.RequestContext) {
	r.mu.Lock()
	r.reqCtx = reqCtx
	r.mu.Unlock()
}

func (r *run) requestContext() *agent_execution.RequestContext {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reqCtx
}

func (r *run) fail(err error) {
	r.mu.Lock()
	r.err = err
	r.mu.Unlock()
}

func (r *run) failure() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

// DefaultRequestHandlerOption configures a [DefaultRequestHandler].
type DefaultRequestHandlerOption func(*DefaultRequestHandler)

// WithPushConfigStore enables the push notification methods.
func WithPushConfigStore(store task.PushConfigStore) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.pushConfigs = store
	}
}

// WithNotifier sets the notifier told about every status transition.
func WithNotifier(n task.Notifier) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.notifier = n
	}
}

// WithQueueManager sets the queue manager that fans events out to streams.
func WithQueueManager(qm *event.QueueManager) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.queues = qm
	}
}

// WithRequestContextBuilder sets the builder of agent request contexts.
func WithRequestContextBuilder(b agent_execution.RequestContextBuilder) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.builder = b
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.logger = logger
	}
}

// WithTelemetry sets the telemetry instruments.
func WithTelemetry(tel *telemetry.Telemetry) DefaultRequestHandlerOption {
	return func(h *DefaultRequestHandler) {
		h.tel = tel
	}
}

// NewDefaultRequestHandler creates a new DefaultRequestHandler with the required dependencies.
func NewDefaultRequestHandler(executor agent_execution.AgentExecutor, tasks task.TaskStore, opts ...DefaultRequestHandlerOption) *DefaultRequestHandler {
	if executor == nil {
		panic("agent executor cannot be nil")
	}
	if tasks == nil {
		panic("task store cannot be nil")
	}

	h := &DefaultRequestHandler{
		executor:          executor,
		tasks:             tasks,
		runs:              make(map[string]*run),
		draining:          make(map[*run]struct{}),
		cancelUnsupported: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(h)
	}

	if h.notifier == nil {
		h.notifier = task.NoopNotifier{}
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.queues == nil {
		h.queues = event.NewQueueManager(event.WithLogger(h.logger))
	}
	if h.builder == nil {
		h.builder = agent_execution.NewSimpleRequestContextBuilder(tasks)
	}
	if h.tel == nil {
		h.tel = telemetry.Noop()
	}
	return h
}

// OnMessageSend implements [RequestHandler].
func (h *DefaultRequestHandler) OnMessageSend(ctx context.Context, params *a2a.MessageSendParams) (_ *a2a.Task, err error) {
	ctx, span := h.tel.Start(ctx, "a2a.handler.message_send", messageTaskID(params), telemetry.MethodKey.String(a2a.MethodMessageSend))
	defer func() { telemetry.End(span, err) }()

	r, q, err := h.start(ctx, params)
	if err != nil {
		return nil, err
	}
	defer q.Close()

	if cfg := params.Configuration; cfg == nil || cfg.Blocking == nil || *cfg.Blocking {
		if err := h.awaitTurn(ctx, r, q); err != nil {
			return nil, err
		}
	}

	snap, err := h.tasks.Get(context.WithoutCancel(ctx), r.taskID)
	if err != nil {
		return nil, err
	}
	return snap.WithHistoryLength(historyLength(params.Configuration)), nil
}

// awaitTurn blocks until the run emits a final status or ends.
func (h *DefaultRequestHandler) awaitTurn(ctx context.Context, r *run, q *event.EventQueue) error {
	waitCtx, stop := untilDone(ctx, r)
	defer stop()

	for {
		ev, err := q.Dequeue(waitCtx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, event.ErrQueueOverflow) {
				select {
				case <-r.done:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			break
		}
		if a2a.IsFinal(ev) {
			break
		}
	}
	return r.failure()
}

// OnMessageSendStream implements [RequestHandler].
func (h *DefaultRequestHandler) OnMessageSendStream(ctx context.Context, params *a2a.MessageSendParams) (iter.Seq2[a2a.Event, error], error) {
	r, q, err := h.start(ctx, params)
	if err != nil {
		return nil, err
	}

	return func(yield func(a2a.Event, error) bool) {
		defer q.Close()

		waitCtx, stop := untilDone(ctx, r)
		defer stop()

		for {
			ev, err := q.Dequeue(waitCtx)
			if err != nil {
				switch {
				case ctx.Err() != nil:
					h.logger.DebugContext(ctx, "stream consumer detached", slog.String("task_id", r.taskID))
				case errors.Is(err, event.ErrQueueOverflow):
					yield(nil, err)
				default:
					if fault := r.failure(); fault != nil {
						yield(nil, fault)
					}
				}
				return
			}
			if !yield(ev, nil) || a2a.IsFinal(ev) {
				return
			}
		}
	}, nil
}

// untilDone derives a context that is also canceled once r has ended.
func untilDone(ctx context.Context, r *run) (context.Context, context.CancelFunc) {
	waitCtx, cancel := context.WithCancel(ctx)
	go func() {
		select {
		case <-r.done:
			cancel()
		case <-waitCtx.Done():
		}
	}()
	return waitCtx, cancel
}

// start resolves the task of params, taps its events and launches the agent.
func (h *DefaultRequestHandler) start(ctx context.Context, params *a2a.MessageSendParams) (*run, *event.EventQueue, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}
	var inlinePush *a2a.PushNotificationConfig
	if cfg := params.Configuration; cfg != nil && cfg.PushNotificationConfig != nil {
		if h.pushConfigs == nil {
			return nil, nil, a2a.ErrPushNotificationNotSupported
		}
		inlinePush = cfg.PushNotificationConfig
	}

	msg := params.Message
	taskID := msg.TaskID
	if taskID == "" && msg.ContextID != "" {
		var err error
		if taskID, err = h.pausedTask(ctx, msg.ContextID); err != nil {
			return nil, nil, err
		}
	}

	var (
		r       *run
		q       *event.EventQueue
		current *a2a.Task
		err     error
	)
	resumed := taskID != ""
	if resumed {
		r, current, err = h.resume(ctx, taskID, msg)
		if err != nil {
			return nil, nil, err
		}
		if err := h.setInlinePush(ctx, r, current.ID, inlinePush); err != nil {
			return nil, nil, err
		}
		q = h.queues.Tap(current.ID)
	} else {
		current = a2a.NewTask(msg)
		if r, err = h.claim(ctx, current); err != nil {
			return nil, nil, err
		}
		if err := h.setInlinePush(ctx, r, current.ID, inlinePush); err != nil {
			return nil, nil, err
		}
		q = h.queues.Tap(current.ID)
		if err := r.updater.Create(ctx, current); err != nil {
			q.Close()
			h.release(r)
			return nil, nil, err
		}
	}

	reqCtx, err := h.builder.Build(ctx, params, current, resumed)
	if err != nil {
		q.Close()
		h.release(r)
		return nil, nil, err
	}
	r.setRequestContext(reqCtx)

	h.logger.InfoContext(ctx, "starting agent",
		slog.String("task_id", current.ID),
		slog.String("context_id", current.ContextID),
		slog.Bool("resumed", resumed),
	)
	h.wg.Go(func() {
		defer h.release(r)
		h.execute(r)
	})
	return r, q, nil
}

func (h *DefaultRequestHandler) setInlinePush(ctx context.Context, r *run, taskID string, config *a2a.PushNotificationConfig) error {
	if config == nil {
		return nil
	}
	if err := h.pushConfigs.Set(ctx, taskID, config); err != nil {
		h.release(r)
		return err
	}
	return nil
}

// pausedTask returns the id of the most recent input-required task of
// contextID, or "" when there is none.
func (h *DefaultRequestHandler) pausedTask(ctx context.Context, contextID string) (string, error) {
	tasks, err := h.tasks.List(ctx, contextID)
	if err != nil {
		return "", err
	}
	for _, t := range slices.Backward(tasks) {
		if t.Status.State.IsPause() {
			return t.ID, nil
		}
	}
	return "", nil
}

// resume claims an existing task for a follow-up message.
func (h *DefaultRequestHandler) resume(ctx context.Context, taskID string, msg *a2a.Message) (*run, *a2a.Task, error) {
	current, err := h.tasks.Get(ctx, taskID)
	if err != nil {
		return nil, nil, err
	}
	if msg.ContextID != "" && msg.ContextID != current.ContextID {
		return nil, nil, a2a.NewInvalidParamsError("message context %s does not match task context %s", msg.ContextID, current.ContextID)
	}

	r, err := h.claim(ctx, current)
	if err != nil {
		return nil, nil, err
	}

	// Re-read under the claim: the task may have moved since the first read.
	current, err = h.tasks.Get(ctx, taskID)
	if err == nil {
		err = h.checkResumable(current)
	}
	if err == nil {
		err = r.updater.AppendMessage(ctx, msg)
	}
	if err == nil {
		current, err = h.tasks.Get(ctx, taskID)
	}
	if err != nil {
		h.release(r)
		return nil, nil, err
	}
	return r, current, nil
}

func (h *DefaultRequestHandler) checkResumable(t *a2a.Task) error {
	state := t.Status.State
	if !state.IsTerminal() {
		return nil
	}
	if state == a2a.TaskStateCanceled {
		h.mu.Lock()
		_, unsupported := h.cancelUnsupported[t.ID]
		h.mu.Unlock()
		if unsupported {
			return a2a.UnsupportedOperationError{Operation: "resume canceled task " + t.ID}
		}
	}
	return a2a.InvalidTransitionError{TaskID: t.ID, From: state, To: a2a.TaskStateWorking}
}

// claim registers a run for t. It fails with [a2a.ErrTaskBusy] while the
// current run of t has not emitted its final status.
func (h *DefaultRequestHandler) claim(ctx context.Context, t *a2a.Task) (*run, error) {
	updater, err := h.newUpdater(t)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if prev, ok := h.runs[t.ID]; ok {
		if !prev.updater.Closed() {
			return nil, fmt.Errorf("task %s: %w", t.ID, a2a.ErrTaskBusy)
		}
		// prev ended its turn; it only has to return now.
		h.draining[prev] = struct{}{}
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		taskID:  t.ID,
		updater: updater,
		ctx:     runCtx,
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	h.runs[t.ID] = r
	return r, nil
}

func (h *DefaultRequestHandler) release(r *run) {
	h.mu.Lock()
	if h.runs[r.taskID] == r {
		delete(h.runs, r.taskID)
	}
	delete(h.draining, r)
	h.mu.Unlock()

	r.cancel()
	close(r.done)
}

func (h *DefaultRequestHandler) newUpdater(t *a2a.Task) (*task.Updater, error) {
	return task.NewUpdater(task.UpdaterConfig{
		TaskID:    t.ID,
		ContextID: t.ContextID,
		Store:     h.tasks,
		Queue:     h.queues,
		Notifier:  h.notifier,
		Logger:    h.logger,
		Telemetry: h.tel,
	})
}

// execute runs the agent and fails the task when it ends without a final status.
func (h *DefaultRequestHandler) execute(r *run) {
	ctx, span := h.tel.Start(r.ctx, "a2a.handler.execute", r.taskID)
	h.tel.Add(ctx, h.tel.WorkerRuns)

	var (
		err     error
		catcher panics.Catcher
	)
	catcher.Try(func() {
		err = h.executor.Execute(ctx, r.requestContext(), r.updater)
	})
	if recovered := catcher.Recovered(); recovered != nil {
		err = recovered.AsError()
	}
	defer func() { telemetry.End(span, err) }()

	if r.updater.Closed() {
		if err != nil {
			h.logger.DebugContext(ctx, "agent returned after its final status",
				slog.String("task_id", r.taskID),
				slog.Any("error", err),
			)
		}
		return
	}
	if err == nil {
		err = agent_execution.ErrNoOutcome
	}

	fault := a2a.InternalError{TaskID: r.taskID, Err: err}
	r.fail(fault)
	h.tel.Add(ctx, h.tel.WorkerFailures)
	h.logger.ErrorContext(ctx, "agent failed", slog.String("task_id", r.taskID), slog.Any("error", err))

	if ferr := r.updater.Failed(context.WithoutCancel(ctx), r.updater.NewAgentMessage(err.Error())); ferr != nil {
		h.logger.ErrorContext(ctx, "record agent failure", slog.String("task_id", r.taskID), slog.Any("error", ferr))
	}
}

// OnGetTask implements [RequestHandler].
func (h *DefaultRequestHandler) OnGetTask(ctx context.Context, params *a2a.TaskQueryParams) (*a2a.Task, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	t, err := h.tasks.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	if params.HistoryLength != nil {
		return t.WithHistoryLength(*params.HistoryLength), nil
	}
	return t, nil
}

// OnCancelTask implements [RequestHandler].
func (h *DefaultRequestHandler) OnCancelTask(ctx context.Context, params *a2a.TaskIDParams) (_ *a2a.Task, err error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	ctx, span := h.tel.Start(ctx, "a2a.handler.cancel", params.ID, telemetry.MethodKey.String(a2a.MethodTasksCancel))
	defer func() { telemetry.End(span, err) }()

	current, err := h.tasks.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	r := h.runs[params.ID]
	h.mu.Unlock()
	if r == nil {
		if r, err = h.claim(ctx, current); err != nil {
			return nil, err
		}
		defer h.release(r)
	}

	if current, err = h.tasks.Get(ctx, params.ID); err != nil {
		return nil, err
	}
	if current.Status.State.IsTerminal() {
		return nil, a2a.InvalidTransitionError{TaskID: current.ID, From: current.Status.State, To: a2a.TaskStateCanceled}
	}

	updater := r.updater
	if updater.Closed() {
		// The run already paused; its agent is on the way out.
		if updater, err = h.newUpdater(current); err != nil {
			return nil, err
		}
	}

	reqCtx := r.requestContext()
	if reqCtx == nil {
		reqCtx = &agent_execution.RequestContext{TaskID: current.ID, ContextID: current.ContextID, Task: current}
	}
	if cerr := h.executor.Cancel(ctx, reqCtx, updater); cerr != nil {
		if !errors.Is(cerr, a2a.ErrUnsupportedOperation) {
			h.logger.WarnContext(ctx, "agent cancel failed", slog.String("task_id", current.ID), slog.Any("error", cerr))
		}
		h.mu.Lock()
		h.cancelUnsupported[current.ID] = struct{}{}
		h.mu.Unlock()
	}
	if !updater.Closed() {
		if err := updater.Cancel(ctx); err != nil && !errors.Is(err, a2a.ErrInvalidTransition) {
			return nil, err
		}
	}
	r.cancel()

	return h.tasks.Get(ctx, params.ID)
}

// OnSetPushConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnSetPushConfig(ctx context.Context, params *a2a.TaskPushNotificationConfig) (*a2a.TaskPushNotificationConfig, error) {
	if h.pushConfigs == nil {
		return nil, a2a.ErrPushNotificationNotSupported
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if _, err := h.tasks.Get(ctx, params.TaskID); err != nil {
		return nil, err
	}
	if err := h.pushConfigs.Set(ctx, params.TaskID, params.PushNotificationConfig); err != nil {
		return nil, err
	}
	return &a2a.TaskPushNotificationConfig{
		TaskID:                 params.TaskID,
		PushNotificationConfig: params.PushNotificationConfig.Clone(),
	}, nil
}

// OnGetPushConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnGetPushConfig(ctx context.Context, params *a2a.TaskIDParams) (*a2a.TaskPushNotificationConfig, error) {
	if h.pushConfigs == nil {
		return nil, a2a.ErrPushNotificationNotSupported
	}
	if err := params.Validate(); err != nil {
		return nil, err
	}
	config, err := h.pushConfigs.Get(ctx, params.ID)
	if err != nil {
		return nil, err
	}
	return &a2a.TaskPushNotificationConfig{TaskID: params.ID, PushNotificationConfig: config}, nil
}

// OnDeletePushConfig implements [RequestHandler].
func (h *DefaultRequestHandler) OnDeletePushConfig(ctx context.Context, params *a2a.TaskIDParams) error {
	if h.pushConfigs == nil {
		return a2a.ErrPushNotificationNotSupported
	}
	if err := params.Validate(); err != nil {
		return err
	}
	return h.pushConfigs.Delete(ctx, params.ID)
}

// Running reports whether an agent is running for taskID.
func (h *DefaultRequestHandler) Running(taskID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.runs[taskID]
	return ok
}

// Shutdown waits for running agents to finish. When ctx is done first, the
// remaining agents are canceled and ctx's error is returned.
func (h *DefaultRequestHandler) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		h.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		h.mu.Lock()
		for _, r := range h.runs {
			r.cancel()
		}
		for r := range h.draining {
			r.cancel()
		}
		h.mu.Unlock()
		return ctx.Err()
	}
}

func messageTaskID(params *a2a.MessageSendParams) string {
	if params == nil || params.Message == nil {
		return ""
	}
	return params.Message.TaskID
}

func historyLength(cfg *a2a.MessageSendConfiguration) int {
	if cfg == nil || cfg.HistoryLength == nil {
		return -1
	}
	return *cfg.HistoryLength
}
