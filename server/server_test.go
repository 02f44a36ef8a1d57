// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/net/http2"

	a2a "github.com/go-a2a/taskbridge"
)

func testCard() *a2a.AgentCard {
	return &a2a.AgentCard{
		Name:         "Weather Agent",
		URL:          "http://localhost:10000/",
		Version:      "1.0.0",
		Capabilities: a2a.AgentCapabilities{Streaming: true, PushNotifications: true},
		Skills:       []a2a.AgentSkill{{ID: "get_weather", Name: "Weather Lookup Tool"}},
	}
}

var echoRPC = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
})

func newTestServer(t *testing.T, opts ...Option) *Server {
	t.Helper()
	opts = append([]Option{WithLogger(slog.New(slog.DiscardHandler))}, opts...)
	s, err := New(testCard(), echoRPC, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return s
}

func TestServerServesCard(t *testing.T) {
	s := newTestServer(t)

	for _, path := range []string{a2a.AgentCardWellKnownPath, a2a.LegacyAgentCardWellKnownPath} {
		t.Run(path, func(t *testing.T) {
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			var got a2a.AgentCard
			if err := sonic.ConfigDefault.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(*testCard(), got); diff != "" {
				t.Errorf("card mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestServerRoutesRPC(t *testing.T) {
	s := newTestServer(t, WithEndpoint("/a2a"))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/a2a", strings.NewReader(`{"jsonrpc":"2.0"}`)))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"jsonrpc":"2.0"}` {
		t.Errorf("POST /a2a = %d %q", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("POST / status = %d, want 404", rec.Code)
	}
}

func TestServerJWKSOptional(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, a2a.JWKSWellKnownPath, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status without key set = %d, want 404", rec.Code)
	}

	jwks := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { io.WriteString(w, `{"keys":[]}`) })
	rec = httptest.NewRecorder()
	newTestServer(t, WithJWKS(jwks)).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, a2a.JWKSWellKnownPath, nil))
	if rec.Code != http.StatusOK || rec.Body.String() != `{"keys":[]}` {
		t.Errorf("GET jwks = %d %q", rec.Code, rec.Body.String())
	}
}

func TestServerCORS(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "http://localhost:8501")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}

func TestServerRecoversPanics(t *testing.T) {
	boom := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") })
	s, err := New(testCard(), boom, WithLogger(slog.New(slog.DiscardHandler)))
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(&a2a.AgentCard{}, echoRPC); err == nil {
		t.Error("New() with empty card error = nil")
	}
	if _, err := New(testCard(), nil); err == nil {
		t.Error("New() with nil handler error = nil")
	}
}

func TestServeAndShutdown(t *testing.T) {
	s := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}

	served := make(chan error, 1)
	go func() { served <- s.Serve(context.Background(), ln) }()

	url := "http://" + ln.Addr().String() + a2a.AgentCardWellKnownPath
	var resp *http.Response
	for range 50 {
		if resp, err = http.Get(url); err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("GET card: %v", err)
	}
	resp.Body.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}
	if err := <-served; err != nil {
		t.Errorf("Serve() error = %v", err)
	}
}

func TestServerH2C(t *testing.T) {
	ts := httptest.NewServer(newTestServer(t, WithH2C(true)).Handler())
	defer ts.Close()

	hc := &http.Client{Transport: &http2.Transport{
		AllowHTTP: true,
		DialTLSContext: func(ctx context.Context, network, addr string, _ *tls.Config) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, addr)
		},
	}}
	resp, err := hc.Get(ts.URL + a2a.AgentCardWellKnownPath)
	if err != nil {
		t.Fatalf("h2c GET: %v", err)
	}
	defer resp.Body.Close()
	if resp.ProtoMajor != 2 {
		t.Errorf("ProtoMajor = %d, want 2", resp.ProtoMajor)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}
