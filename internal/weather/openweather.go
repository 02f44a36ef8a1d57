// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-json-experiment/json"
)

// DefaultOpenWeatherEndpoint is the current-conditions endpoint of OpenWeatherMap.
const DefaultOpenWeatherEndpoint = "https://api.openweathermap.org/data/2.5/weather"

// OpenWeather is a [Forecaster] backed by the OpenWeatherMap API.
type OpenWeather struct {
	endpoint string
	apiKey   string
	hc       *http.Client
}

var _ Forecaster = (*OpenWeather)(nil)

// OpenWeatherConfig configures [NewOpenWeather].
type OpenWeatherConfig struct {
	APIKey string

	// Endpoint defaults to [DefaultOpenWeatherEndpoint].
	Endpoint string

	// Timeout bounds one lookup. Zero means 10 seconds.
	Timeout time.Duration

	// Client overrides the HTTP client. Its Timeout is left untouched.
	Client *http.Client
}

// NewOpenWeather creates an [OpenWeather] forecaster.
func NewOpenWeather(config OpenWeatherConfig) (*OpenWeather, error) {
	if config.APIKey == "" {
		return nil, errors.New("openweather: api key is required")
	}
	if config.Endpoint == "" {
		config.Endpoint = DefaultOpenWeatherEndpoint
	}
	if _, err := url.Parse(config.Endpoint); err != nil {
		return nil, fmt.Errorf("openweather: invalid endpoint: %w", err)
	}
	hc := config.Client
	if hc == nil {
		timeout := config.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &OpenWeather{endpoint: config.Endpoint, apiKey: config.APIKey, hc: hc}, nil
}

// owmResponse is the subset of the OpenWeatherMap payload the agent reports.
type owmResponse struct {
	Name string `json:"name"`
	Sys  struct {
		Country string `json:"country"`
	} `json:"sys"`
	Main struct {
		Temp      float64 `json:"temp"`
		FeelsLike float64 `json:"feels_like"`
		Humidity  int     `json:"humidity"`
	} `json:"main"`
	Weather []struct {
		Description string `json:"description"`
	} `json:"weather"`
	Wind struct {
		Speed float64 `json:"speed"`
	} `json:"wind"`
}

// Current implements [Forecaster].
func (o *OpenWeather) Current(ctx context.Context, city string, units Units) (*Report, error) {
	if units == "" {
		units = Metric
	}

	u, _ := url.Parse(o.endpoint)
	q := u.Query()
	q.Set("q", city)
	q.Set("appid", o.apiKey)
	q.Set("units", string(units))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("openweather: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := o.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openweather: request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, CityNotFoundError{City: city}
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("openweather: unexpected status %s: %s", resp.Status, body)
	}

	var payload owmResponse
	if err := json.UnmarshalRead(io.LimitReader(resp.Body, 1<<20), &payload, json.RejectUnknownMembers(false)); err != nil {
		return nil, fmt.Errorf("openweather: decode response: %w", err)
	}

	report := &Report{
		City:        payload.Name,
		Country:     payload.Sys.Country,
		Temperature: payload.Main.Temp,
		FeelsLike:   payload.Main.FeelsLike,
		Humidity:    payload.Main.Humidity,
		WindSpeed:   payload.Wind.Speed,
		Units:       units,
	}
	if report.City == "" {
		report.City = city
	}
	if len(payload.Weather) > 0 {
		report.Description = payload.Weather[0].Description
	}
	return report, nil
}
