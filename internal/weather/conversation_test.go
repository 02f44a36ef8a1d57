// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package weather_test

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-a2a/taskbridge/client"
	"github.com/go-a2a/taskbridge/internal/weather"
	"github.com/go-a2a/taskbridge/server"
	"github.com/go-a2a/taskbridge/server/agent_execution"
	"github.com/go-a2a/taskbridge/server/handler"
	"github.com/go-a2a/taskbridge/server/task"
)

func TestWeatherConversation(t *testing.T) {
	discard := slog.New(slog.DiscardHandler)

	var root http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		root.ServeHTTP(w, r)
	}))
	t.Cleanup(ts.Close)

	card := weather.Card(ts.URL+"/", false)
	h := handler.NewDefaultRequestHandler(
		agent_execution.NewStreamExecutor(weather.NewAgent(weather.NewStaticForecaster(), weather.WithLogger(discard)), weather.ArtifactName),
		task.NewMemoryTaskStore(),
		handler.WithLogger(discard),
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.Shutdown(ctx)
	})
	srv, err := server.New(card, handler.NewJSONRPCHandler(h, card), server.WithLogger(discard))
	require.NoError(t, err)
	root = srv.Handler()

	for _, streaming := range []bool{true, false} {
		name := "sync"
		if streaming {
			name = "stream"
		}
		t.Run(name, func(t *testing.T) {
			conv := client.NewConversation(client.NewClient(ts.URL+"/"), client.WithStreaming(streaming))

			first, err := conv.Send(t.Context(), "What is the weather?")
			require.NoError(t, err)
			assert.True(t, first.Paused)
			assert.Equal(t, client.StateInputRequired, first.State)
			assert.Equal(t, weather.AskCity, first.Response)
			assert.NotEmpty(t, conv.PendingTaskID())

			second, err := conv.Send(t.Context(), "Seoul")
			require.NoError(t, err)
			assert.Equal(t, client.StateCompleted, second.State)
			assert.Equal(t, first.TaskID, second.TaskID, "the answer resumes the paused task")
			assert.Contains(t, second.Response, "Seoul, KR: clear sky")
			if streaming {
				assert.Contains(t, second.Notes, "Looking up weather information (get_current_weather)...")
			}
			assert.Empty(t, conv.PendingTaskID())
		})
	}
}
