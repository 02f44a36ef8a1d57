// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads the weather agent configuration.
package config

import (
	"fmt"
	"log/slog"
	"time"
)

// Config is the root configuration of the weather agent.
type Config struct {
	Server  ServerConfig  `yaml:"server" envconfig:"server"`
	Log     LogConfig     `yaml:"log" envconfig:"log"`
	Storage StorageConfig `yaml:"storage" envconfig:"storage"`
	Push    PushConfig    `yaml:"push" envconfig:"push"`
	Weather WeatherConfig `yaml:"weather" envconfig:"weather"`
}

type ServerConfig struct {
	Host string `yaml:"host" split_words:"true"`
	Port int    `yaml:"port" split_words:"true"`
	// BaseURL is advertised in the agent card. Empty means http://host:port/.
	BaseURL         string        `yaml:"base_url" split_words:"true"`
	H2C             bool          `yaml:"h2c" envconfig:"h2c"`
	CORSOrigins     []string      `yaml:"cors_origins" split_words:"true"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" split_words:"true"`
}

type LogConfig struct {
	Level  string `yaml:"level" split_words:"true"`
	Format string `yaml:"format" split_words:"true"`
}

type StorageConfig struct {
	Driver string `yaml:"driver" split_words:"true"`
	DSN    string `yaml:"dsn" split_words:"true"`
}

type PushConfig struct {
	Timeout          time.Duration `yaml:"timeout" split_words:"true"`
	SignJWT          bool          `yaml:"sign_jwt" split_words:"true"`
	SubscriberBuffer int           `yaml:"subscriber_buffer" split_words:"true"`
}

type WeatherConfig struct {
	// Provider is "static" or "openweather".
	Provider     string        `yaml:"provider" split_words:"true"`
	APIKey       string        `yaml:"api_key" split_words:"true"`
	Endpoint     string        `yaml:"endpoint" split_words:"true"`
	Timeout      time.Duration `yaml:"timeout" split_words:"true"`
	HistoryLimit int           `yaml:"history_limit" split_words:"true"`
}

// Storage drivers.
const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// Weather providers.
const (
	ProviderStatic      = "static"
	ProviderOpenWeather = "openweather"
)

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "localhost",
			Port:            10000,
			CORSOrigins:     []string{"*"},
			ShutdownTimeout: 10 * time.Second,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Storage: StorageConfig{
			Driver: DriverMemory,
			DSN:    "file:taskbridge.db",
		},
		Push: PushConfig{
			Timeout:          10 * time.Second,
			SubscriberBuffer: 256,
		},
		Weather: WeatherConfig{
			Provider:     ProviderStatic,
			Endpoint:     "https://api.openweathermap.org/data/2.5/weather",
			Timeout:      5 * time.Second,
			HistoryLimit: 5,
		},
	}
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// PublicURL returns the URL advertised in the agent card.
func (c *ServerConfig) PublicURL() string {
	if c.BaseURL != "" {
		return c.BaseURL
	}
	return fmt.Sprintf("http://%s:%d/", c.Host, c.Port)
}

// SlogLevel parses the configured level, falling back to info.
func (c *LogConfig) SlogLevel() slog.Level {
	if c == nil {
		return slog.LevelInfo
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.Level)); err != nil {
		return slog.LevelInfo
	}
	return level
}
