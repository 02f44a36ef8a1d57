// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package server

import (
	"log/slog"
	"net/http"
)

// Option represents an option for configuring the [Server].
type Option func(*Server)

// WithEndpoint sets the path of the JSON-RPC endpoint.
func WithEndpoint(endpoint string) Option {
	return func(s *Server) {
		if endpoint != "" {
			s.rpcPath = endpoint
		}
	}
}

// WithAddr sets the address ListenAndServe binds.
func WithAddr(addr string) Option {
	return func(s *Server) {
		if addr != "" {
			s.addr = addr
		}
	}
}

// WithAllowedOrigins sets the CORS origins. The default allows any origin.
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// WithJWKS serves h at [a2a.JWKSWellKnownPath].
func WithJWKS(h http.Handler) Option {
	return func(s *Server) {
		s.jwks = h
	}
}

// WithH2C enables cleartext HTTP/2 next to HTTP/1.1.
func WithH2C(enabled bool) Option {
	return func(s *Server) {
		s.h2c = enabled
	}
}

// WithLogger sets the [*slog.Logger] for the [Server].
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}
