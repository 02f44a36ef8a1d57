// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package server exposes an A2A agent over HTTP.
//
// A [Server] routes the discovery card, the JSON-RPC endpoint and,
// optionally, the key set that verifies signed push notifications. It
// serves HTTP/1.1 and, with [WithH2C], cleartext HTTP/2.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	a2a "github.com/go-a2a/taskbridge"
)

// DefaultReadHeaderTimeout bounds the time to read request headers.
const DefaultReadHeaderTimeout = 10 * time.Second

// Server implements the A2A protocol server.
type Server struct {
	card    *a2a.AgentCard
	rpc     http.Handler
	jwks    http.Handler
	rpcPath string
	addr    string
	origins []string
	h2c     bool
	logger  *slog.Logger

	handler http.Handler

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a [Server] serving card and dispatching JSON-RPC calls to rpc.
func New(card *a2a.AgentCard, rpc http.Handler, opts ...Option) (*Server, error) {
	if err := card.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent card: %w", err)
	}
	if rpc == nil {
		return nil, errors.New("rpc handler is required")
	}

	s := &Server{
		card:    card,
		rpc:     rpc,
		rpcPath: a2a.DefaultRPCURL,
		addr:    ":10000",
		origins: []string{"*"},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	s.handler = s.routes()
	return s, nil
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		slogMiddleware(s.logger),
		middleware.Recoverer,
	)

	r.Get(a2a.AgentCardWellKnownPath, s.serveCard)
	r.Get(a2a.LegacyAgentCardWellKnownPath, s.serveCard)
	if s.jwks != nil {
		r.Method(http.MethodGet, a2a.JWKSWellKnownPath, s.jwks)
	}
	r.Method(http.MethodPost, s.rpcPath, s.rpc)

	c := cors.New(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	})
	if !s.h2c {
		return c.Handler(r)
	}
	return h2c.NewHandler(c.Handler(r), &http2.Server{})
}

// Handler returns the root handler of s.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the address ListenAndServe binds.
func (s *Server) Addr() string {
	return s.addr
}

func (s *Server) serveCard(w http.ResponseWriter, r *http.Request) {
	b, err := sonic.ConfigDefault.Marshal(s.card)
	if err != nil {
		s.logger.ErrorContext(r.Context(), "encode agent card", slog.Any("error", err))
		http.Error(w, "failed to encode agent card", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(b)
}

// ListenAndServe listens on the configured address and serves until ctx is
// done or Shutdown is called.
func (s *Server) ListenAndServe(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln. It returns nil after a graceful shutdown.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: DefaultReadHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
		ErrorLog:          slog.NewLogLogger(s.logger.Handler(), slog.LevelWarn),
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "serving A2A agent",
		slog.String("addr", ln.Addr().String()),
		slog.String("agent", s.card.Name),
	)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting connections and waits for active requests.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

func slogMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			level := slog.LevelDebug
			switch {
			case ww.Status() >= http.StatusInternalServerError:
				level = slog.LevelError
			case ww.Status() >= http.StatusBadRequest:
				level = slog.LevelWarn
			}
			logger.Log(r.Context(), level, http.StatusText(ww.Status()),
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.String("proto", r.Proto),
				slog.String("request_id", middleware.GetReqID(r.Context())),
				slog.Int("status", ww.Status()),
				slog.Int("bytes_written", ww.BytesWritten()),
				slog.Duration("duration", time.Since(start)),
			)
		})
	}
}
