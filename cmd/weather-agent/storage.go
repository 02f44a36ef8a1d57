// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/go-a2a/taskbridge/internal/config"
	"github.com/go-a2a/taskbridge/internal/weather"
	"github.com/go-a2a/taskbridge/server/task"
)

type storage struct {
	tasks       task.TaskStore
	pushConfigs task.PushConfigStore
	history     weather.History
	close       func() error
}

func (s *storage) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

func openStorage(ctx context.Context, cfg config.StorageConfig, logger *slog.Logger) (*storage, error) {
	if cfg.Driver != config.DriverSQLite {
		return &storage{
			tasks:       task.NewMemoryTaskStore(),
			pushConfigs: task.NewMemoryPushConfigStore(),
			history:     weather.NewMemoryHistory(),
		}, nil
	}

	db, err := gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{
		Logger: gormlogger.New(slog.NewLogLogger(logger.Handler(), slog.LevelWarn), gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
		}),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %q: %w", cfg.DSN, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite allows one writer at a time.
	sqlDB.SetMaxOpenConns(1)

	tasks, err := task.NewDatabaseTaskStore(db)
	if err != nil {
		return nil, err
	}
	pushConfigs, err := task.NewDatabasePushConfigStore(db)
	if err != nil {
		return nil, err
	}
	history, err := weather.NewDatabaseHistory(db)
	if err != nil {
		return nil, err
	}

	for _, init := range []func(context.Context) error{tasks.Initialize, pushConfigs.Initialize, history.Initialize} {
		if err := init(ctx); err != nil {
			sqlDB.Close()
			return nil, err
		}
	}

	logger.InfoContext(ctx, "opened sqlite storage", slog.String("dsn", cfg.DSN))
	return &storage{
		tasks:       tasks,
		pushConfigs: pushConfigs,
		history:     history,
		close:       sqlDB.Close,
	}, nil
}
