// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/internal/config"
	"github.com/go-a2a/taskbridge/internal/weather"
)

func TestOpenStorage(t *testing.T) {
	drivers := map[string]config.StorageConfig{
		"memory": {Driver: config.DriverMemory},
		"sqlite": {Driver: config.DriverSQLite, DSN: filepath.Join(t.TempDir(), "agent.db")},
	}

	for name, cfg := range drivers {
		t.Run(name, func(t *testing.T) {
			st, err := openStorage(t.Context(), cfg, slog.New(slog.DiscardHandler))
			require.NoError(t, err)
			defer st.Close()

			task := &a2a.Task{ID: "task-1", ContextID: "ctx-1", Status: a2a.TaskStatus{State: a2a.TaskStateWorking}}
			require.NoError(t, st.tasks.Save(t.Context(), task))
			got, err := st.tasks.Get(t.Context(), "task-1")
			require.NoError(t, err)
			assert.Equal(t, a2a.TaskStateWorking, got.Status.State)

			require.NoError(t, st.pushConfigs.Set(t.Context(), "task-1", &a2a.PushNotificationConfig{URL: "http://localhost:5050/"}))
			require.NoError(t, st.history.Save(t.Context(), weather.Query{City: "Seoul", Units: weather.Metric}))
			recent, err := st.history.Recent(t.Context(), "", 5)
			require.NoError(t, err)
			assert.Len(t, recent, 1)
		})
	}
}

func TestNewForecaster(t *testing.T) {
	f, err := newForecaster(config.Defaults().Weather)
	require.NoError(t, err)
	assert.IsType(t, &weather.StaticForecaster{}, f)

	cfg := config.Defaults().Weather
	cfg.Provider = config.ProviderOpenWeather
	cfg.APIKey = "key"
	f, err = newForecaster(cfg)
	require.NoError(t, err)
	assert.IsType(t, &weather.OpenWeather{}, f)
}
