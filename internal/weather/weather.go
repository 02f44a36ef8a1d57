// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package weather implements the demo weather agent served by
// cmd/weather-agent.
//
// The agent understands two kinds of request: a current-conditions lookup for
// a city, and a listing of recent lookups. It reports progress as it works,
// asks for a city when it cannot find one in the request, and answers with a
// single line of text.
package weather

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Units selects the measurement system of a [Report].
type Units string

const (
	// Metric reports Celsius and metres per second.
	Metric Units = "metric"
	// Imperial reports Fahrenheit and miles per hour.
	Imperial Units = "imperial"
)

// ErrCityNotFound is returned by a [Forecaster] that does not know the city.
var ErrCityNotFound = errors.New("city not found")

// CityNotFoundError names the city a [Forecaster] could not resolve.
type CityNotFoundError struct {
	City string
}

func (e CityNotFoundError) Error() string {
	return fmt.Sprintf("city %q not found", e.City)
}

// Is reports whether target is [ErrCityNotFound].
func (e CityNotFoundError) Is(target error) bool { return target == ErrCityNotFound }

// Report holds current conditions for one city.
type Report struct {
	City        string  `json:"city"`
	Country     string  `json:"country,omitempty"`
	Temperature float64 `json:"temperature"`
	FeelsLike   float64 `json:"feels_like"`
	Humidity    int     `json:"humidity"`
	Description string  `json:"description"`
	WindSpeed   float64 `json:"wind_speed"`
	Units       Units   `json:"units"`
}

// Forecaster looks up current conditions.
type Forecaster interface {
	Current(ctx context.Context, city string, units Units) (*Report, error)
}

// String renders r as the agent's answer, for example
// "Seoul, KR: clear sky, 21.0°C (feels like 19.8°C), humidity 40%, wind 3.1 m/s".
func (r *Report) String() string {
	temp, speed := "°C", "m/s"
	if r.Units == Imperial {
		temp, speed = "°F", "mph"
	}

	var b strings.Builder
	b.WriteString(r.City)
	if r.Country != "" {
		b.WriteString(", ")
		b.WriteString(r.Country)
	}
	fmt.Fprintf(&b, ": %s, %.1f%s (feels like %.1f%s), humidity %d%%, wind %.1f %s",
		r.Description, r.Temperature, temp, r.FeelsLike, temp, r.Humidity, r.WindSpeed, speed)
	return b.String()
}
