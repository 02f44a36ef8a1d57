// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	a2a "github.com/go-a2a/taskbridge"
)

// PushConfigStore maps a task id to at most one webhook configuration.
// Set overwrites, so the last writer wins.
type PushConfigStore interface {
	// Set stores config for taskID, replacing any previous config.
	Set(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) error

	// Get returns the config of taskID, or an error matching [a2a.ErrNotFound].
	Get(ctx context.Context, taskID string) (*a2a.PushNotificationConfig, error)

	// Delete removes the config of taskID. Deleting a missing config is not an error.
	Delete(ctx context.Context, taskID string) error
}

// MemoryPushConfigStore is an in-memory [PushConfigStore].
type MemoryPushConfigStore struct {
	mu      sync.RWMutex
	configs map[string]*a2a.PushNotificationConfig
}

var _ PushConfigStore = (*MemoryPushConfigStore)(nil)

// NewMemoryPushConfigStore creates an empty [MemoryPushConfigStore].
func NewMemoryPushConfigStore() *MemoryPushConfigStore {
	return &MemoryPushConfigStore{
		configs: make(map[string]*a2a.PushNotificationConfig),
	}
}

// Set implements [PushConfigStore].
func (s *MemoryPushConfigStore) Set(_ context.Context, taskID string, config *a2a.PushNotificationConfig) error {
	if taskID == "" || config == nil {
		return a2a.NewInvalidParamsError("task id and push notification config are required")
	}

	s.mu.Lock()
	s.configs[taskID] = config.Clone()
	s.mu.Unlock()
	return nil
}

// Get implements [PushConfigStore].
func (s *MemoryPushConfigStore) Get(_ context.Context, taskID string) (*a2a.PushNotificationConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	config, ok := s.configs[taskID]
	if !ok {
		return nil, a2a.PushConfigNotFoundError{TaskID: taskID}
	}
	return config.Clone(), nil
}

// Delete implements [PushConfigStore].
func (s *MemoryPushConfigStore) Delete(_ context.Context, taskID string) error {
	s.mu.Lock()
	delete(s.configs, taskID)
	s.mu.Unlock()
	return nil
}

// DatabasePushConfigStore is a [PushConfigStore] backed by GORM.
type DatabasePushConfigStore struct {
	db *gorm.DB
}

var _ PushConfigStore = (*DatabasePushConfigStore)(nil)

// NewDatabasePushConfigStore creates a [DatabasePushConfigStore] over db.
func NewDatabasePushConfigStore(db *gorm.DB) (*DatabasePushConfigStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection cannot be nil")
	}
	return &DatabasePushConfigStore{db: db}, nil
}

// Initialize creates or migrates the push config table.
func (s *DatabasePushConfigStore) Initialize(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&PushConfigModel{}); err != nil {
		return NewTaskStoreError("migrate push config", "", err)
	}
	return nil
}

// Set implements [PushConfigStore].
func (s *DatabasePushConfigStore) Set(ctx context.Context, taskID string, config *a2a.PushNotificationConfig) error {
	if taskID == "" || config == nil {
		return a2a.NewInvalidParamsError("task id and push notification config are required")
	}

	model := &PushConfigModel{
		TaskID: taskID,
		Config: JSONColumn[a2a.PushNotificationConfig]{V: *config},
	}
	err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{UpdateAll: true}).
		Create(model).Error
	if err != nil {
		return NewTaskStoreError("set push config", taskID, err)
	}
	return nil
}

// Get implements [PushConfigStore].
func (s *DatabasePushConfigStore) Get(ctx context.Context, taskID string) (*a2a.PushNotificationConfig, error) {
	var model PushConfigModel
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, a2a.PushConfigNotFoundError{TaskID: taskID}
		}
		return nil, NewTaskStoreError("get push config", taskID, err)
	}
	config := model.Config.V
	return &config, nil
}

// Delete implements [PushConfigStore].
func (s *DatabasePushConfigStore) Delete(ctx context.Context, taskID string) error {
	if err := s.db.WithContext(ctx).Where("task_id = ?", taskID).Delete(&PushConfigModel{}).Error; err != nil {
		return NewTaskStoreError("delete push config", taskID, err)
	}
	return nil
}
