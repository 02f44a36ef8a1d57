// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/go-cmp/cmp"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	a2a "github.com/go-a2a/taskbridge"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "tasks.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func taskStores(t *testing.T) map[string]TaskStore {
	t.Helper()
	db, err := NewDatabaseTaskStore(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Initialize(t.Context()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return map[string]TaskStore{
		"memory":   NewMemoryTaskStore(),
		"database": db,
	}
}

func pushConfigStores(t *testing.T) map[string]PushConfigStore {
	t.Helper()
	db, err := NewDatabasePushConfigStore(openTestDB(t))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.Initialize(t.Context()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return map[string]PushConfigStore{
		"memory":   NewMemoryPushConfigStore(),
		"database": db,
	}
}

func TestTaskStoreSaveGet(t *testing.T) {
	for name, store := range taskStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			if _, err := store.Get(ctx, "missing"); !errors.Is(err, a2a.ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}

			task := a2a.NewTask(a2a.NewUserTextMessage("weather in Seoul?", "ctx-1", ""))
			task.Artifacts = []*a2a.Artifact{a2a.NewTextArtifact("weather_result", "Sunny")}
			task.Metadata = map[string]any{"source": "test"}
			if err := store.Save(ctx, task); err != nil {
				t.Fatalf("Save() error = %v", err)
			}

			got, err := store.Get(ctx, task.ID)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if diff := cmp.Diff(task, got); diff != "" {
				t.Errorf("Get() mismatch (-want +got):\n%s", diff)
			}

			// Mutating the returned copy must not affect the store.
			got.Status.State = a2a.TaskStateFailed
			again, _ := store.Get(ctx, task.ID)
			if again.Status.State != a2a.TaskStateSubmitted {
				t.Errorf("store state = %s after mutating a returned copy", again.Status.State)
			}

			task.Status = a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now().UTC()}
			if err := store.Save(ctx, task); err != nil {
				t.Fatalf("Save() overwrite error = %v", err)
			}
			got, _ = store.Get(ctx, task.ID)
			if got.Status.State != a2a.TaskStateCompleted {
				t.Errorf("state after overwrite = %s, want completed", got.Status.State)
			}
		})
	}
}

func TestTaskStoreSaveRejectsEmpty(t *testing.T) {
	for name, store := range taskStores(t) {
		t.Run(name, func(t *testing.T) {
			if err := store.Save(t.Context(), &a2a.Task{}); err == nil {
				t.Error("Save(empty) error = nil")
			}
		})
	}
}

func TestTaskStoreList(t *testing.T) {
	for name, store := range taskStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()
			base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

			var ids []string
			for i := range 3 {
				task := a2a.NewTask(a2a.NewUserTextMessage("q", "ctx-list", ""))
				task.Status.Timestamp = base.Add(time.Duration(2-i) * time.Minute)
				if err := store.Save(ctx, task); err != nil {
					t.Fatal(err)
				}
				ids = append([]string{task.ID}, ids...)
			}
			other := a2a.NewTask(a2a.NewUserTextMessage("q", "ctx-other", ""))
			if err := store.Save(ctx, other); err != nil {
				t.Fatal(err)
			}

			tasks, err := store.List(ctx, "ctx-list")
			if err != nil {
				t.Fatalf("List() error = %v", err)
			}
			var got []string
			for _, task := range tasks {
				got = append(got, task.ID)
			}
			if diff := cmp.Diff(ids, got); diff != "" {
				t.Errorf("List() order mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPushConfigStore(t *testing.T) {
	for name, store := range pushConfigStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := t.Context()

			if _, err := store.Get(ctx, "t1"); !errors.Is(err, a2a.ErrNotFound) {
				t.Errorf("Get() before Set error = %v, want ErrNotFound", err)
			}

			first := &a2a.PushNotificationConfig{URL: "https://hooks.example.com/a", Token: "one"}
			second := &a2a.PushNotificationConfig{
				URL:   "https://hooks.example.com/b",
				Token: "two",
				Authentication: &a2a.PushNotificationAuthenticationInfo{
					Schemes:     []string{"Bearer"},
					Credentials: "creds",
				},
			}
			if err := store.Set(ctx, "t1", first); err != nil {
				t.Fatalf("Set() error = %v", err)
			}
			if err := store.Set(ctx, "t1", second); err != nil {
				t.Fatalf("Set() overwrite error = %v", err)
			}

			got, err := store.Get(ctx, "t1")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if diff := cmp.Diff(second, got); diff != "" {
				t.Errorf("Get() mismatch, last writer must win (-want +got):\n%s", diff)
			}

			if err := store.Delete(ctx, "t1"); err != nil {
				t.Fatalf("Delete() error = %v", err)
			}
			if err := store.Delete(ctx, "t1"); err != nil {
				t.Errorf("Delete() of missing config error = %v", err)
			}
			if _, err := store.Get(ctx, "t1"); !errors.Is(err, a2a.ErrNotFound) {
				t.Errorf("Get() after Delete error = %v, want ErrNotFound", err)
			}
		})
	}
}
