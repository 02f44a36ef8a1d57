// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/auth"
	"github.com/go-a2a/taskbridge/client"
	"github.com/go-a2a/taskbridge/server/task"
)

type inbox struct {
	mu    sync.Mutex
	tasks []*a2a.Task
}

func (in *inbox) handle(_ context.Context, t *a2a.Task) error {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.tasks = append(in.tasks, t)
	return nil
}

func (in *inbox) states() []a2a.TaskState {
	in.mu.Lock()
	defer in.mu.Unlock()
	var out []a2a.TaskState
	for _, t := range in.tasks {
		out = append(out, t.Status.State)
	}
	return out
}

const snapshot = `{"id":"task-1","contextId":"ctx-1","status":{"state":"completed"},"kind":"task"}`

func post(t *testing.T, h http.Handler, path, body string, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestPushReceiver(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		body       string
		header     http.Header
		wantStatus int
		wantTasks  int
	}{
		{name: "accepted", path: "/", body: snapshot, header: http.Header{a2a.NotificationTokenHeader: {"tok"}}, wantStatus: http.StatusOK, wantTasks: 1},
		{name: "accepted on task path", path: "/task-1", body: snapshot, header: http.Header{a2a.NotificationTokenHeader: {"tok"}}, wantStatus: http.StatusOK, wantTasks: 1},
		{name: "task path mismatch", path: "/task-2", body: snapshot, header: http.Header{a2a.NotificationTokenHeader: {"tok"}}, wantStatus: http.StatusBadRequest},
		{name: "wrong token", path: "/", body: snapshot, header: http.Header{a2a.NotificationTokenHeader: {"nope"}}, wantStatus: http.StatusUnauthorized},
		{name: "missing token", path: "/", body: snapshot, wantStatus: http.StatusUnauthorized},
		{name: "not a task", path: "/", body: `{"taskId":"task-1","status":{"state":"working"},"kind":"status-update"}`, header: http.Header{a2a.NotificationTokenHeader: {"tok"}}, wantStatus: http.StatusBadRequest},
		{name: "garbage", path: "/", body: `{`, header: http.Header{a2a.NotificationTokenHeader: {"tok"}}, wantStatus: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in inbox
			recv := client.NewPushReceiver(in.handle, client.WithExpectedToken("tok"), client.WithReceiverLogger(discard))

			rec := post(t, recv, tt.path, tt.body, tt.header)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Len(t, in.states(), tt.wantTasks)
		})
	}
}

func TestPushReceiverValidationToken(t *testing.T) {
	recv := client.NewPushReceiver(new(inbox).handle, client.WithReceiverLogger(discard))

	rec := httptest.NewRecorder()
	recv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/?validationToken=abc123", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "abc123", rec.Body.String())

	rec = httptest.NewRecorder()
	recv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPushReceiverHandlerError(t *testing.T) {
	recv := client.NewPushReceiver(func(context.Context, *a2a.Task) error { return errors.New("disk full") },
		client.WithReceiverLogger(discard))
	rec := post(t, recv, "/", snapshot, nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestPushReceiverVerifiesSignedDeliveries(t *testing.T) {
	signer, err := auth.NewSigner(auth.WithIssuer("weather-agent"))
	require.NoError(t, err)

	var in inbox
	var hook http.Handler
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { hook.ServeHTTP(w, r) }))
	defer ts.Close()
	webhook := ts.URL + "/task-1"

	hook = client.NewPushReceiver(in.handle,
		client.WithExpectedToken("tok"),
		client.WithTokenVerifier(auth.NewVerifier(signer.JWKS(), auth.WithAudience(webhook))),
		client.WithReceiverLogger(discard),
	)

	configs := task.NewMemoryPushConfigStore()
	require.NoError(t, configs.Set(t.Context(), "task-1", &a2a.PushNotificationConfig{URL: webhook, Token: "tok"}))
	sender, err := task.NewPushSender(task.PushSenderConfig{Store: configs, Signer: signer, Logger: discard})
	require.NoError(t, err)

	snap := &a2a.Task{
		ID:        "task-1",
		ContextID: "ctx-1",
		Status:    a2a.TaskStatus{State: a2a.TaskStateCompleted, Timestamp: time.Now().UTC()},
		Artifacts: []*a2a.Artifact{a2a.NewTextArtifact("weather_result", "Seoul: clear sky")},
		Kind:      a2a.EventKindTask,
	}
	sender.Notify(snap)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, sender.Close(ctx))

	require.Equal(t, []a2a.TaskState{a2a.TaskStateCompleted}, in.states())
	assert.Equal(t, "Seoul: clear sky", in.tasks[0].Artifacts[0].Text())

	// An unsigned delivery is refused.
	rec := post(t, hook, "/task-1", snapshot, http.Header{a2a.NotificationTokenHeader: {"tok"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body, _ := io.ReadAll(rec.Body)
	assert.Contains(t, string(body), "invalid authorization")
}
