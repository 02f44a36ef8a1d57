// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package event fans protocol events out to the streams observing a task.
//
// A [QueueManager] holds one topic per task id. Every call to
// [QueueManager.Tap] opens an [EventQueue] that receives the events published
// for that task after the tap, in publish order. Publishing never blocks: a
// queue that falls more than its capacity behind is dropped and reports
// [ErrQueueOverflow] once its buffered events are drained.
package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/oklog/ulid/v2"

	a2a "github.com/go-a2a/taskbridge"
)

// DefaultMaxQueueSize is the default number of undelivered events a queue may hold.
const DefaultMaxQueueSize = 256

// ErrQueueOverflow is returned by [EventQueue.Dequeue] after the queue was
// dropped for falling behind.
var ErrQueueOverflow = errors.New("event queue overflow")

// QueueManager routes events to the queues tapped on each task.
type QueueManager struct {
	mu      sync.Mutex
	topics  map[string]map[string]*EventQueue
	maxSize int
	logger  *slog.Logger
}

// QueueManagerOption configures a [QueueManager].
type QueueManagerOption func(*QueueManager)

// WithMaxQueueSize sets the capacity of every queue opened by Tap.
func WithMaxQueueSize(n int) QueueManagerOption {
	return func(m *QueueManager) {
		if n > 0 {
			m.maxSize = n
		}
	}
}

// WithLogger sets the logger used to report dropped queues.
func WithLogger(logger *slog.Logger) QueueManagerOption {
	return func(m *QueueManager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewQueueManager creates a [QueueManager].
func NewQueueManager(opts ...QueueManagerOption) *QueueManager {
	m := &QueueManager{
		topics:  make(map[string]map[string]*EventQueue),
		maxSize: DefaultMaxQueueSize,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Tap opens a queue receiving every event published for taskID from now on.
// The caller must Close the queue when done.
func (m *QueueManager) Tap(taskID string) *EventQueue {
	q := &EventQueue{
		ID:      ulid.Make().String(),
		TaskID:  taskID,
		maxSize: m.maxSize,
		ready:   make(chan struct{}, 1),
		manager: m,
	}

	m.mu.Lock()
	subs, ok := m.topics[taskID]
	if !ok {
		subs = make(map[string]*EventQueue)
		m.topics[taskID] = subs
	}
	subs[q.ID] = q
	m.mu.Unlock()

	return q
}

// Publish appends ev to every queue tapped on its task. It never blocks.
func (m *QueueManager) Publish(ev a2a.Event) {
	taskID := ev.EventTaskID()

	m.mu.Lock()
	defer m.mu.Unlock()

	for id, q := range m.topics[taskID] {
		if !q.enqueue(ev) {
			m.logger.Warn("dropping slow event queue", slog.String("task_id", taskID), slog.String("queue_id", id))
			m.removeLocked(q)
		}
	}
}

// Count returns the number of open queues of taskID.
func (m *QueueManager) Count(taskID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.topics[taskID])
}

func (m *QueueManager) remove(q *EventQueue) {
	m.mu.Lock()
	m.removeLocked(q)
	m.mu.Unlock()
}

func (m *QueueManager) removeLocked(q *EventQueue) {
	subs := m.topics[q.TaskID]
	delete(subs, q.ID)
	if len(subs) == 0 {
		delete(m.topics, q.TaskID)
	}
}

// EventQueue is one observer of a task's events.
type EventQueue struct {
	ID     string
	TaskID string

	mu      sync.Mutex
	buf     []a2a.Event
	maxSize int
	err     error
	ready   chan struct{}
	manager *QueueManager
}

// enqueue reports false when the queue had to be dropped.
func (q *EventQueue) enqueue(ev a2a.Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return true
	}
	if len(q.buf) >= q.maxSize {
		q.err = ErrQueueOverflow
		q.signal()
		return false
	}
	q.buf = append(q.buf, ev)
	q.signal()
	return true
}

func (q *EventQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Dequeue returns the next event, blocking until one is published.
//
// Buffered events are returned before any error. Once the queue is closed
// and drained it returns [io.EOF]; a dropped queue returns [ErrQueueOverflow];
// otherwise the error of ctx is returned when it is done.
func (q *EventQueue) Dequeue(ctx context.Context) (a2a.Event, error) {
	for {
		q.mu.Lock()
		if len(q.buf) > 0 {
			ev := q.buf[0]
			q.buf[0] = nil
			q.buf = q.buf[1:]
			q.mu.Unlock()
			return ev, nil
		}
		err := q.err
		q.mu.Unlock()
		if err != nil {
			return nil, err
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			q.mu.Lock()
			pending := len(q.buf)
			q.mu.Unlock()
			if pending == 0 {
				return nil, ctx.Err()
			}
		}
	}
}

// Close detaches the queue from its task. Events already buffered can still
// be dequeued.
func (q *EventQueue) Close() {
	q.manager.remove(q)

	q.mu.Lock()
	if q.err == nil {
		q.err = io.EOF
	}
	q.signal()
	q.mu.Unlock()
}
