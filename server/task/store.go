// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package task implements task persistence, push-notification configuration
// and delivery, and the [Updater] that is the single writer of task state.
package task

import (
	"context"

	a2a "github.com/go-a2a/taskbridge"
)

// TaskStore persists Task records keyed by id.
//
// Implementations only store and retrieve: they hold no lifecycle policy.
// Writers for one id are serialized by the [Updater], so a store must only
// guarantee read-after-write visibility per id and safe concurrent access
// across distinct ids.
type TaskStore interface {
	// Get returns the task with the given id, or an error matching
	// [a2a.ErrNotFound].
	Get(ctx context.Context, taskID string) (*a2a.Task, error)

	// Save inserts or replaces the task keyed by its id.
	Save(ctx context.Context, task *a2a.Task) error

	// List returns the tasks of one context ordered by status timestamp,
	// oldest first.
	List(ctx context.Context, contextID string) ([]*a2a.Task, error)
}
