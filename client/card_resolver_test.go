// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/go-cmp/cmp"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/client"
)

const cardJSON = `{
  "name": "Weather Agent",
  "url": "http://localhost:10000/",
  "version": "1.0.0",
  "capabilities": {"streaming": true, "pushNotifications": true},
  "skills": [{"id": "get_weather", "name": "Weather Lookup Tool"}],
  "futureField": {"ignored": true}
}`

func cardServer(t *testing.T, paths map[string]string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := paths[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestCardResolver(t *testing.T) {
	want := &a2a.AgentCard{
		Name:         "Weather Agent",
		URL:          "http://localhost:10000/",
		Version:      "1.0.0",
		Capabilities: a2a.AgentCapabilities{Streaming: true, PushNotifications: true},
		Skills:       []a2a.AgentSkill{{ID: "get_weather", Name: "Weather Lookup Tool"}},
	}

	tests := []struct {
		name    string
		paths   map[string]string
		wantErr bool
	}{
		{name: "current path", paths: map[string]string{a2a.AgentCardWellKnownPath: cardJSON}},
		{name: "legacy fallback", paths: map[string]string{a2a.LegacyAgentCardWellKnownPath: cardJSON}},
		{name: "not served", paths: map[string]string{}, wantErr: true},
		{name: "invalid card", paths: map[string]string{a2a.AgentCardWellKnownPath: `{"name":"x"}`}, wantErr: true},
		{name: "not json", paths: map[string]string{a2a.AgentCardWellKnownPath: `<html>`}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := cardServer(t, tt.paths)
			got, err := client.NewCardResolver(ts.URL+"/", ts.Client()).Resolve(t.Context())
			if (err != nil) != tt.wantErr {
				t.Fatalf("Resolve() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("card mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCardResolverAgainstServer(t *testing.T) {
	srv := newAgentServer(t, true)
	card, err := client.NewCardResolver(srv.URL, srv.Client()).Resolve(t.Context())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if diff := cmp.Diff(srv.card, card); diff != "" {
		t.Errorf("card mismatch (-want +got):\n%s", diff)
	}
}
