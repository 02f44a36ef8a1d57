// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	a2a "github.com/go-a2a/taskbridge"
)

// DatabaseTaskStore is a [TaskStore] backed by GORM.
type DatabaseTaskStore struct {
	db *gorm.DB
}

var _ TaskStore = (*DatabaseTaskStore)(nil)

// NewDatabaseTaskStore creates a [DatabaseTaskStore] over db.
func NewDatabaseTaskStore(db *gorm.DB) (*DatabaseTaskStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &DatabaseTaskStore{db: db}, nil
}

// Initialize creates or migrates the tasks table.
func (s *DatabaseTaskStore) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&TaskModel{}); err != nil {
		return NewTaskStoreError("migrate", "", err)
	}
	return nil
}

// Get implements [TaskStore].
func (s *DatabaseTaskStore) Get(ctx context.Context, taskID string) (*a2a.Task, error) {
	var model TaskModel
	if err := s.db.WithContext(ctx).Where("id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.TaskNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get", taskID, err)
	}
	return model.ToTask(), nil
}

// Save implements [TaskStore].
func (s *DatabaseTaskStore) Save(ctx context.Context, task *a2a.Task) error {
	if task == nil || task.ID == "" {
		return NewTaskStoreError("save", "", errEmptyTask)
	}

	model := NewTaskModel(task)
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model).Error
	if err != nil {
		return NewTaskStoreError("save", task.ID, err)
	}
	return nil
}

// List implements [TaskStore].
func (s *DatabaseTaskStore) List(ctx context.Context, contextID string) ([]*a2a.Task, error) {
	var models []TaskModel
	err := s.db.WithContext(ctx).
		Where("context_id = ?", contextID).
		Order("status_at, id").
		Find(&models).Error
	if err != nil {
		return nil, NewTaskStoreError("list", "", err)
	}

	tasks := make([]*a2a.Task, 0, len(models))
	for i := range models {
		tasks = append(tasks, models[i].ToTask())
	}
	return tasks, nil
}
