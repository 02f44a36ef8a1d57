// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, as in TASKBRIDGE_SERVER_PORT.
const EnvPrefix = "TASKBRIDGE"

// searchPaths returns the ordered list of config file locations to try.
func searchPaths() []string {
	paths := []string{
		"/etc/taskbridge/taskbridge.yaml",
	}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "taskbridge", "taskbridge.yaml"))
	}

	paths = append(paths, "taskbridge.yaml")

	if envPath := os.Getenv(EnvPrefix + "_CONFIG"); envPath != "" {
		paths = append(paths, envPath)
	}

	return paths
}

// Load reads configuration from YAML files and environment variables.
// Files are loaded in order, each overriding the previous:
// /etc/taskbridge/taskbridge.yaml < ~/.config/taskbridge/taskbridge.yaml <
// ./taskbridge.yaml < $TASKBRIDGE_CONFIG. Environment variables win over files.
func Load() (*Config, error) {
	cfg := Defaults()

	for _, path := range searchPaths() {
		if err := loadFile(cfg, path, true); err != nil {
			return nil, fmt.Errorf("loading config %s: %w", path, err)
		}
	}
	return finish(cfg)
}

// LoadFromFile reads configuration from a specific file path, which must exist.
func LoadFromFile(path string) (*Config, error) {
	cfg := Defaults()

	if err := loadFile(cfg, path, false); err != nil {
		return nil, fmt.Errorf("loading config %s: %w", path, err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// applyEnvOverrides applies TASKBRIDGE_* environment variables. Unset
// variables leave the loaded values untouched.
func applyEnvOverrides(cfg *Config) error {
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}
	return nil
}

func loadFile(cfg *Config, path string, optional bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from trusted config search paths
	if optional && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading file: %w", err)
	}

	slog.Debug("loading config file", "path", path)

	expanded := os.ExpandEnv(string(data))

	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}

	return nil
}

func validate(cfg *Config) error {
	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}
	if cfg.Server.BaseURL != "" {
		u, err := url.Parse(cfg.Server.BaseURL)
		if err != nil || !u.IsAbs() {
			return fmt.Errorf("server.base_url must be an absolute URL, got %q", cfg.Server.BaseURL)
		}
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		return errors.New("server.shutdown_timeout must be positive")
	}

	if err := checkLevel(cfg.Log.Level); err != nil {
		return err
	}
	if !slices.Contains([]string{"text", "json"}, cfg.Log.Format) {
		return fmt.Errorf("log.format must be text or json, got %q", cfg.Log.Format)
	}

	switch cfg.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if strings.TrimSpace(cfg.Storage.DSN) == "" {
			return errors.New("storage.dsn is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be memory or sqlite, got %q", cfg.Storage.Driver)
	}

	if cfg.Push.Timeout <= 0 {
		return errors.New("push.timeout must be positive")
	}
	if cfg.Push.SubscriberBuffer < 1 {
		return fmt.Errorf("push.subscriber_buffer must be at least 1, got %d", cfg.Push.SubscriberBuffer)
	}

	switch cfg.Weather.Provider {
	case ProviderStatic:
	case ProviderOpenWeather:
		if cfg.Weather.APIKey == "" {
			return errors.New("weather.api_key is required for the openweather provider")
		}
	default:
		return fmt.Errorf("weather.provider must be static or openweather, got %q", cfg.Weather.Provider)
	}
	if cfg.Weather.HistoryLimit < 1 {
		return fmt.Errorf("weather.history_limit must be at least 1, got %d", cfg.Weather.HistoryLimit)
	}

	return nil
}

func checkLevel(s string) error {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", s)
	}
	return nil
}
