// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "taskbridge.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefaults_SetsExpectedValues(t *testing.T) {
	t.Parallel()

	cfg := Defaults()

	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, 10000, cfg.Server.Port)
	assert.Equal(t, "http://localhost:10000/", cfg.Server.PublicURL())
	assert.Equal(t, "localhost:10000", cfg.Server.Addr())
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, slog.LevelInfo, cfg.Log.SlogLevel())
	assert.Equal(t, DriverMemory, cfg.Storage.Driver)
	assert.Equal(t, 10*time.Second, cfg.Push.Timeout)
	assert.Equal(t, 256, cfg.Push.SubscriberBuffer)
	assert.Equal(t, ProviderStatic, cfg.Weather.Provider)
	require.NoError(t, validate(cfg))
}

func TestLoadFromFile_ParsesYAML(t *testing.T) {
	t.Setenv("WEATHER_KEY", "k-123")
	path := writeConfig(t, `
server:
  host: 0.0.0.0
  port: 9000
  base_url: https://weather.example.com/
  h2c: true
log:
  level: debug
  format: json
storage:
  driver: sqlite
  dsn: file:/var/lib/taskbridge/tasks.db
push:
  timeout: 3s
  sign_jwt: true
weather:
  provider: openweather
  api_key: ${WEATHER_KEY}
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:9000", cfg.Server.Addr())
	assert.Equal(t, "https://weather.example.com/", cfg.Server.PublicURL())
	assert.True(t, cfg.Server.H2C)
	assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, 3*time.Second, cfg.Push.Timeout)
	assert.True(t, cfg.Push.SignJWT)
	assert.Equal(t, "k-123", cfg.Weather.APIKey)
	assert.Equal(t, 256, cfg.Push.SubscriberBuffer, "unset keys keep their defaults")
}

func TestLoadFromFile_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("TASKBRIDGE_SERVER_PORT", "9100")
	t.Setenv("TASKBRIDGE_LOG_LEVEL", "warn")
	t.Setenv("TASKBRIDGE_STORAGE_DRIVER", "sqlite")
	t.Setenv("TASKBRIDGE_STORAGE_DSN", "file::memory:")
	t.Setenv("TASKBRIDGE_SERVER_CORS_ORIGINS", "http://a.example,http://b.example")
	t.Setenv("TASKBRIDGE_PUSH_TIMEOUT", "750ms")
	t.Setenv("HOST", "ignored.example")

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Server.Host)
	assert.Equal(t, slog.LevelWarn, cfg.Log.SlogLevel())
	assert.Equal(t, DriverSQLite, cfg.Storage.Driver)
	assert.Equal(t, "file::memory:", cfg.Storage.DSN)
	assert.Equal(t, []string{"http://a.example", "http://b.example"}, cfg.Server.CORSOrigins)
	assert.Equal(t, 750*time.Millisecond, cfg.Push.Timeout)
}

func TestLoadFromFile_Errors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFromFile(writeConfig(t, "server: [unclosed"))
	assert.ErrorContains(t, err, "parsing YAML")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "port too large", mutate: func(c *Config) { c.Server.Port = 70000 }, wantErr: "server.port"},
		{name: "relative base url", mutate: func(c *Config) { c.Server.BaseURL = "/agent" }, wantErr: "server.base_url"},
		{name: "unknown level", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "unknown format", mutate: func(c *Config) { c.Log.Format = "xml" }, wantErr: "log.format"},
		{name: "unknown driver", mutate: func(c *Config) { c.Storage.Driver = "postgres" }, wantErr: "storage.driver"},
		{name: "sqlite without dsn", mutate: func(c *Config) { c.Storage.Driver, c.Storage.DSN = DriverSQLite, "" }, wantErr: "storage.dsn"},
		{name: "zero push timeout", mutate: func(c *Config) { c.Push.Timeout = 0 }, wantErr: "push.timeout"},
		{name: "zero buffer", mutate: func(c *Config) { c.Push.SubscriberBuffer = 0 }, wantErr: "push.subscriber_buffer"},
		{name: "openweather without key", mutate: func(c *Config) { c.Weather.Provider = ProviderOpenWeather }, wantErr: "weather.api_key"},
		{name: "unknown provider", mutate: func(c *Config) { c.Weather.Provider = "almanac" }, wantErr: "weather.provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := Defaults()
			tt.mutate(cfg)
			assert.ErrorContains(t, validate(cfg), tt.wantErr)
		})
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "log:\n  level: info\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changes := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, slog.New(slog.DiscardHandler), func(c *Config) { changes <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: [broken\n"), 0o644))
	time.Sleep(DebounceInterval * 2)
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o644))

	select {
	case cfg := <-changes:
		assert.Equal(t, slog.LevelDebug, cfg.Log.SlogLevel())
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after the config file changed")
	}

	cancel()
	require.NoError(t, <-done)
}
