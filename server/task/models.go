// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/go-json-experiment/json"

	a2a "github.com/go-a2a/taskbridge"
)

// JSONColumn stores a value of type T as JSON text in a single column.
type JSONColumn[T any] struct {
	V T
}

// Value implements [driver.Valuer].
func (c JSONColumn[T]) Value() (driver.Value, error) {
	b, err := json.Marshal(c.V)
	if err != nil {
		return nil, fmt.Errorf("encode json column: %w", err)
	}
	return string(b), nil
}

// Scan implements [sql.Scanner].
func (c *JSONColumn[T]) Scan(value any) error {
	var b []byte
	switch v := value.(type) {
	case nil:
		var zero T
		c.V = zero
		return nil
	case []byte:
		b = v
	case string:
		b = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into JSONColumn", value)
	}
	if err := json.Unmarshal(b, &c.V); err != nil {
		return fmt.Errorf("decode json column: %w", err)
	}
	return nil
}

// TaskModel is the database row of a [a2a.Task].
type TaskModel struct {
	ID        string                      `gorm:"primaryKey;size:64"`
	ContextID string                      `gorm:"index;size:64;not null"`
	State     string                      `gorm:"index;size:32;not null"`
	Status    JSONColumn[a2a.TaskStatus]  `gorm:"type:text"`
	Artifacts JSONColumn[[]*a2a.Artifact] `gorm:"type:text"`
	History   JSONColumn[[]*a2a.Message]  `gorm:"type:text"`
	Metadata  JSONColumn[map[string]any]  `gorm:"type:text"`
	StatusAt  time.Time                   `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName implements gorm's tabler.
func (TaskModel) TableName() string { return "tasks" }

// NewTaskModel converts task into its row.
func NewTaskModel(task *a2a.Task) *TaskModel {
	return &TaskModel{
		ID:        task.ID,
		ContextID: task.ContextID,
		State:     string(task.Status.State),
		Status:    JSONColumn[a2a.TaskStatus]{V: task.Status},
		Artifacts: JSONColumn[[]*a2a.Artifact]{V: task.Artifacts},
		History:   JSONColumn[[]*a2a.Message]{V: task.History},
		Metadata:  JSONColumn[map[string]any]{V: task.Metadata},
		StatusAt:  task.Status.Timestamp,
	}
}

// ToTask converts the row back into a task.
func (m *TaskModel) ToTask() *a2a.Task {
	task := &a2a.Task{
		ID:        m.ID,
		ContextID: m.ContextID,
		Status:    m.Status.V,
		Artifacts: m.Artifacts.V,
		History:   m.History.V,
		Metadata:  m.Metadata.V,
		Kind:      a2a.EventKindTask,
	}
	if len(task.Artifacts) == 0 {
		task.Artifacts = nil
	}
	if len(task.History) == 0 {
		task.History = nil
	}
	if len(task.Metadata) == 0 {
		task.Metadata = nil
	}
	return task
}

// PushConfigModel is the database row of a task's webhook configuration.
type PushConfigModel struct {
	TaskID    string                                 `gorm:"primaryKey;size:64"`
	Config    JSONColumn[a2a.PushNotificationConfig] `gorm:"type:text"`
	UpdatedAt time.Time
}

// TableName implements gorm's tabler.
func (PushConfigModel) TableName() string { return "push_notification_configs" }
