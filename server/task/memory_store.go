// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"cmp"
	"context"
	"slices"
	"sync"

	a2a "github.com/go-a2a/taskbridge"
)

// MemoryTaskStore is an in-memory [TaskStore].
// Task data is lost when the process stops.
type MemoryTaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*a2a.Task
}

var _ TaskStore = (*MemoryTaskStore)(nil)

// NewMemoryTaskStore creates an empty [MemoryTaskStore].
func NewMemoryTaskStore() *MemoryTaskStore {
	return &MemoryTaskStore{
		tasks: make(map[string]*a2a.Task),
	}
}

// Get implements [TaskStore].
func (s *MemoryTaskStore) Get(_ context.Context, taskID string) (*a2a.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[taskID]
	if !ok {
		return nil, a2a.TaskNotFoundError{TaskID: taskID}
	}
	return task.Clone(), nil
}

// Save implements [TaskStore].
func (s *MemoryTaskStore) Save(_ context.Context, task *a2a.Task) error {
	if task == nil || task.ID == "" {
		return NewTaskStoreError("save", "", errEmptyTask)
	}

	s.mu.Lock()
	s.tasks[task.ID] = task.Clone()
	s.mu.Unlock()
	return nil
}

// List implements [TaskStore].
func (s *MemoryTaskStore) List(_ context.Context, contextID string) ([]*a2a.Task, error) {
	s.mu.RLock()
	var tasks []*a2a.Task
	for _, t := range s.tasks {
		if t.ContextID == contextID {
			tasks = append(tasks, t.Clone())
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(tasks, func(a, b *a2a.Task) int {
		return cmp.Or(a.Status.Timestamp.Compare(b.Status.Timestamp), cmp.Compare(a.ID, b.ID))
	})
	return tasks, nil
}

// Len returns the number of stored tasks.
func (s *MemoryTaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
