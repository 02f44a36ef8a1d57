// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-a2a/taskbridge/server/agent_execution"
)

func collect(t *testing.T, a *Agent, query string) ([]agent_execution.Item, error) {
	t.Helper()
	var items []agent_execution.Item
	for item, err := range a.Stream(t.Context(), query, "ctx-1") {
		if err != nil {
			return items, err
		}
		items = append(items, item)
	}
	return items, nil
}

func TestParseRequest(t *testing.T) {
	tests := []struct {
		text string
		want request
	}{
		{text: "What is the weather?", want: request{units: Metric}},
		{text: "What's the weather in Seoul?", want: request{city: "Seoul", units: Metric}},
		{text: "weather for New York today", want: request{city: "New York", units: Metric}},
		{text: "How hot is it in Tokyo in fahrenheit?", want: request{city: "Tokyo", units: Imperial}},
		{text: "temperature of San Francisco right now please", want: request{city: "San Francisco", units: Metric}},
		{text: "Busan", want: request{city: "Busan", units: Metric}},
		{text: "  seoul. ", want: request{city: "seoul", units: Metric}},
		{text: "Show my recent weather searches", want: request{units: Metric, history: true}},
		{text: "history for Seoul", want: request{city: "Seoul", units: Metric, history: true}},
		{text: "can you tell me something nice about the sky", want: request{units: Metric}},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			got := parseRequest(tt.text)
			if diff := cmp.Diff(tt.want, got, cmp.AllowUnexported(request{})); diff != "" {
				t.Errorf("parseRequest(%q) mismatch (-want +got):\n%s", tt.text, diff)
			}
		})
	}
}

func TestAgentCurrentWeather(t *testing.T) {
	history := NewMemoryHistory()
	a := NewAgent(NewStaticForecaster(), WithHistory(history), WithLogger(slog.New(slog.DiscardHandler)))

	items, err := collect(t, a, "What's the weather in Seoul?")
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	want := []agent_execution.Item{
		{Content: "Looking up weather information (get_current_weather)..."},
		{Content: "Processing weather data..."},
		{Content: "Seoul, KR: clear sky, 21.0°C (feels like 19.8°C), humidity 40%, wind 3.1 m/s", Complete: true},
	}
	if diff := cmp.Diff(want, items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	recent, err := history.Recent(t.Context(), "", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 1 || recent[0].City != "Seoul" || recent[0].ContextID != "ctx-1" {
		t.Errorf("history = %+v, want one Seoul query for ctx-1", recent)
	}
}

func TestAgentAsksForCity(t *testing.T) {
	a := NewAgent(NewStaticForecaster())

	tests := []struct {
		name  string
		query string
		want  []agent_execution.Item
	}{
		{
			name:  "no city",
			query: "What is the weather?",
			want:  []agent_execution.Item{{Content: AskCity, RequiresInput: true}},
		},
		{
			name:  "unknown city",
			query: "weather in Atlantis",
			want: []agent_execution.Item{
				{Content: "Looking up weather information (get_current_weather)..."},
				{Content: `I couldn't find a city named "Atlantis". Which city?`, RequiresInput: true},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			items, err := collect(t, a, tt.query)
			if err != nil {
				t.Fatalf("Stream() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, items); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type failingForecaster struct{ err error }

func (f failingForecaster) Current(context.Context, string, Units) (*Report, error) {
	return nil, f.err
}

func TestAgentLookupFailure(t *testing.T) {
	boom := errors.New("upstream unavailable")
	a := NewAgent(failingForecaster{err: boom})

	items, err := collect(t, a, "weather in Seoul")
	if !errors.Is(err, boom) {
		t.Fatalf("Stream() error = %v, want %v", err, boom)
	}
	if len(items) != 1 {
		t.Errorf("got %d items before the failure, want 1", len(items))
	}
}

func TestAgentHistory(t *testing.T) {
	a := NewAgent(NewStaticForecaster(), WithHistoryLimit(2))

	items, err := collect(t, a, "Show my recent weather searches")
	if err != nil {
		t.Fatal(err)
	}
	if got := items[len(items)-1]; got.Content != NoHistory || !got.Complete {
		t.Errorf("empty history answer = %+v", got)
	}

	for _, city := range []string{"Seoul", "Tokyo", "Paris"} {
		if _, err := collect(t, a, "weather in "+city); err != nil {
			t.Fatal(err)
		}
	}

	items, err = collect(t, a, "Show my recent weather searches")
	if err != nil {
		t.Fatal(err)
	}
	if items[0].Content != "Looking up weather information (get_weather_history)..." {
		t.Errorf("progress = %q", items[0].Content)
	}
	answer := items[len(items)-1].Content
	if !strings.Contains(answer, "Paris") || !strings.Contains(answer, "Tokyo") || strings.Contains(answer, "Seoul") {
		t.Errorf("history answer = %q, want the two newest cities", answer)
	}
}

func TestStaticForecasterImperial(t *testing.T) {
	r, err := NewStaticForecaster().Current(t.Context(), "seoul", Imperial)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(r.Temperature-69.8) > 0.01 || r.Units != Imperial {
		t.Errorf("Current() = %+v, want 69.8°F", r)
	}
	if !strings.Contains(r.String(), "°F") || !strings.Contains(r.String(), "mph") {
		t.Errorf("String() = %q, want imperial units", r.String())
	}
}
