// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"regexp"
	"strings"

	"github.com/go-a2a/taskbridge/server/agent_execution"
)

// Agent messages.
const (
	ArtifactName = "weather_result"

	AskCity       = "Which city?"
	NoHistory     = "You have no recent weather searches."
	processingMsg = "Processing weather data..."
)

// Tool names reported in progress messages.
const (
	toolCurrentWeather = "get_current_weather"
	toolWeatherHistory = "get_weather_history"
)

// DefaultHistoryLimit bounds the weather_history answer.
const DefaultHistoryLimit = 5

// Agent answers weather questions as an [agent_execution.StreamingAgent].
type Agent struct {
	forecaster   Forecaster
	history      History
	historyLimit int
	logger       *slog.Logger
}

var _ agent_execution.StreamingAgent = (*Agent)(nil)

// Option configures an [Agent].
type Option func(*Agent)

// WithHistory sets where answered lookups are recorded.
func WithHistory(h History) Option {
	return func(a *Agent) { a.history = h }
}

// WithHistoryLimit sets how many lookups the history answer lists.
func WithHistoryLimit(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.historyLimit = n
		}
	}
}

// WithLogger sets the agent logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// NewAgent creates an [Agent] that reads conditions from f.
func NewAgent(f Forecaster, opts ...Option) *Agent {
	a := &Agent{
		forecaster:   f,
		historyLimit: DefaultHistoryLimit,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.history == nil {
		a.history = NewMemoryHistory()
	}
	return a
}

// Stream implements [agent_execution.StreamingAgent].
func (a *Agent) Stream(ctx context.Context, query, contextID string) iter.Seq2[agent_execution.Item, error] {
	req := parseRequest(query)
	return func(yield func(agent_execution.Item, error) bool) {
		if req.history {
			a.streamHistory(ctx, req, yield)
			return
		}
		a.streamCurrent(ctx, req, contextID, yield)
	}
}

func (a *Agent) streamCurrent(ctx context.Context, req request, contextID string, yield func(agent_execution.Item, error) bool) {
	if req.city == "" {
		yield(agent_execution.Item{Content: AskCity, RequiresInput: true}, nil)
		return
	}

	if !yield(progress(toolCurrentWeather), nil) {
		return
	}

	report, err := a.forecaster.Current(ctx, req.city, req.units)
	if errors.Is(err, ErrCityNotFound) {
		yield(agent_execution.Item{
			Content:       fmt.Sprintf("I couldn't find a city named %q. %s", req.city, AskCity),
			RequiresInput: true,
		}, nil)
		return
	}
	if err != nil {
		yield(agent_execution.Item{}, fmt.Errorf("weather lookup for %q: %w", req.city, err))
		return
	}

	if !yield(agent_execution.Item{Content: processingMsg}, nil) {
		return
	}

	q := Query{
		City:        report.City,
		Country:     report.Country,
		Temperature: report.Temperature,
		Description: report.Description,
		Units:       report.Units,
		ContextID:   contextID,
	}
	if err := a.history.Save(ctx, q); err != nil {
		a.logger.WarnContext(ctx, "failed to record weather query",
			slog.String("city", report.City),
			slog.String("context_id", contextID),
			slog.Any("error", err),
		)
	}

	yield(agent_execution.Item{Content: report.String(), Complete: true}, nil)
}

func (a *Agent) streamHistory(ctx context.Context, req request, yield func(agent_execution.Item, error) bool) {
	if !yield(progress(toolWeatherHistory), nil) {
		return
	}

	queries, err := a.history.Recent(ctx, req.city, a.historyLimit)
	if err != nil {
		yield(agent_execution.Item{}, err)
		return
	}
	if len(queries) == 0 {
		yield(agent_execution.Item{Content: NoHistory, Complete: true}, nil)
		return
	}

	var b strings.Builder
	b.WriteString("Your recent weather searches:")
	for _, q := range queries {
		temp := "°C"
		if q.Units == Imperial {
			temp = "°F"
		}
		fmt.Fprintf(&b, "\n- %s: %s, %.1f%s (%s)", q.City, q.Description, q.Temperature, temp, q.CreatedAt.Format("2006-01-02 15:04"))
	}
	yield(agent_execution.Item{Content: b.String(), Complete: true}, nil)
}

func progress(tool string) agent_execution.Item {
	return agent_execution.Item{Content: fmt.Sprintf("Looking up weather information (%s)...", tool)}
}

type request struct {
	city    string
	units   Units
	history bool
}

var (
	unitsPattern   = regexp.MustCompile(`(?i)\s*\b(?:in\s+)?(fahrenheit|imperial|celsius|metric)\b`)
	cityPattern    = regexp.MustCompile(`(?i)\b(?:in|for|at|of)\s+([\p{L}][\p{L}\s.'-]*)`)
	historyPattern = regexp.MustCompile(`(?i)\b(history|recent|previous|past)\b`)
	topicPattern   = regexp.MustCompile(`(?i)\b(weather|forecast|temperature|rain|sunny|hot|cold|humid)\b`)
	namePattern    = regexp.MustCompile(`^[\p{L}][\p{L}\s.'-]*$`)
)

var trailingFiller = []string{"today", "tonight", "right now", "now", "currently", "please", "like"}

// parseRequest extracts the intent, city and units from free text.
func parseRequest(text string) request {
	req := request{units: Metric}
	text = strings.TrimSpace(text)

	if m := unitsPattern.FindStringSubmatch(text); m != nil {
		switch strings.ToLower(m[1]) {
		case "fahrenheit", "imperial":
			req.units = Imperial
		}
		text = unitsPattern.ReplaceAllString(text, "")
	}

	req.history = historyPattern.MatchString(text)

	if m := cityPattern.FindStringSubmatch(text); m != nil {
		req.city = cleanCity(m[1])
	}
	if req.city == "" && !req.history && !topicPattern.MatchString(text) {
		// A bare reply such as "Seoul" answers an earlier question.
		if name := cleanCity(text); namePattern.MatchString(name) && len(strings.Fields(name)) <= 3 {
			req.city = name
		}
	}
	return req
}

func cleanCity(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "?!.,;: ")
	for trimmed := true; trimmed; {
		trimmed = false
		lower := strings.ToLower(s)
		for _, f := range trailingFiller {
			if strings.HasSuffix(lower, " "+f) {
				s = strings.TrimSpace(s[:len(s)-len(f)])
				trimmed = true
				break
			}
		}
	}
	return s
}
