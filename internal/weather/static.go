// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"context"
	"strings"
)

// StaticForecaster answers from a fixed table of metric readings. It needs no
// network access and is the default provider.
type StaticForecaster struct {
	reports map[string]Report
}

var _ Forecaster = (*StaticForecaster)(nil)

var defaultReports = []Report{
	{City: "Seoul", Country: "KR", Temperature: 21, FeelsLike: 19.8, Humidity: 40, Description: "clear sky", WindSpeed: 3.1},
	{City: "Busan", Country: "KR", Temperature: 23.4, FeelsLike: 23.9, Humidity: 68, Description: "few clouds", WindSpeed: 5.2},
	{City: "Tokyo", Country: "JP", Temperature: 24.2, FeelsLike: 24.6, Humidity: 61, Description: "scattered clouds", WindSpeed: 4.1},
	{City: "New York", Country: "US", Temperature: 17.5, FeelsLike: 16.9, Humidity: 55, Description: "light rain", WindSpeed: 6.7},
	{City: "London", Country: "GB", Temperature: 13.2, FeelsLike: 12.4, Humidity: 81, Description: "overcast clouds", WindSpeed: 4.6},
	{City: "Paris", Country: "FR", Temperature: 15.8, FeelsLike: 15.1, Humidity: 72, Description: "broken clouds", WindSpeed: 3.6},
	{City: "Berlin", Country: "DE", Temperature: 12.1, FeelsLike: 10.9, Humidity: 66, Description: "mist", WindSpeed: 2.4},
	{City: "Sydney", Country: "AU", Temperature: 19.6, FeelsLike: 19.2, Humidity: 58, Description: "clear sky", WindSpeed: 7.3},
	{City: "San Francisco", Country: "US", Temperature: 16.3, FeelsLike: 15.7, Humidity: 77, Description: "fog", WindSpeed: 5.8},
}

// NewStaticForecaster creates a [StaticForecaster]. With no reports it uses a
// built-in table of major cities. Reports are taken as metric.
func NewStaticForecaster(reports ...Report) *StaticForecaster {
	if len(reports) == 0 {
		reports = defaultReports
	}
	f := &StaticForecaster{reports: make(map[string]Report, len(reports))}
	for _, r := range reports {
		r.Units = Metric
		f.reports[strings.ToLower(r.City)] = r
	}
	return f
}

// Current implements [Forecaster].
func (f *StaticForecaster) Current(ctx context.Context, city string, units Units) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r, ok := f.reports[strings.ToLower(strings.TrimSpace(city))]
	if !ok {
		return nil, CityNotFoundError{City: city}
	}
	if units == Imperial {
		r.Temperature = celsiusToFahrenheit(r.Temperature)
		r.FeelsLike = celsiusToFahrenheit(r.FeelsLike)
		r.WindSpeed *= 2.236936
		r.Units = Imperial
	}
	return &r, nil
}

func celsiusToFahrenheit(c float64) float64 {
	return c*9/5 + 32
}
