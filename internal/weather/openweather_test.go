// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const seoulPayload = `{
  "name": "Seoul",
  "sys": {"country": "KR"},
  "main": {"temp": 21.4, "feels_like": 20.9, "humidity": 44, "pressure": 1017},
  "weather": [{"id": 800, "main": "Clear", "description": "clear sky"}],
  "wind": {"speed": 2.6, "deg": 250}
}`

func TestOpenWeatherCurrent(t *testing.T) {
	var gotQuery map[string]string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		gotQuery = map[string]string{"q": q.Get("q"), "appid": q.Get("appid"), "units": q.Get("units")}
		switch q.Get("q") {
		case "Seoul":
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(seoulPayload))
		case "Atlantis":
			http.Error(w, `{"cod":"404","message":"city not found"}`, http.StatusNotFound)
		default:
			http.Error(w, `{"cod":401}`, http.StatusUnauthorized)
		}
	}))
	defer ts.Close()

	ow, err := NewOpenWeather(OpenWeatherConfig{APIKey: "secret", Endpoint: ts.URL + "/data/2.5/weather"})
	if err != nil {
		t.Fatal(err)
	}

	got, err := ow.Current(t.Context(), "Seoul", "")
	if err != nil {
		t.Fatalf("Current() error = %v", err)
	}
	want := &Report{
		City:        "Seoul",
		Country:     "KR",
		Temperature: 21.4,
		FeelsLike:   20.9,
		Humidity:    44,
		Description: "clear sky",
		WindSpeed:   2.6,
		Units:       Metric,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Current() mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(map[string]string{"q": "Seoul", "appid": "secret", "units": "metric"}, gotQuery); diff != "" {
		t.Errorf("query mismatch (-want +got):\n%s", diff)
	}

	_, err = ow.Current(t.Context(), "Atlantis", Metric)
	if !errors.Is(err, ErrCityNotFound) {
		t.Errorf("Current(Atlantis) error = %v, want ErrCityNotFound", err)
	}

	_, err = ow.Current(t.Context(), "Tokyo", Imperial)
	if err == nil || errors.Is(err, ErrCityNotFound) {
		t.Errorf("Current() on 401 error = %v, want a plain failure", err)
	}
}

func TestNewOpenWeatherRequiresKey(t *testing.T) {
	if _, err := NewOpenWeather(OpenWeatherConfig{}); err == nil {
		t.Error("NewOpenWeather() without a key succeeded")
	}
}
