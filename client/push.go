// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/auth"
)

// maxNotificationBytes bounds a webhook body.
const maxNotificationBytes = 1 << 20

// PushHandler handles one delivered task snapshot.
type PushHandler func(ctx context.Context, task *a2a.Task) error

// PushReceiver is the webhook an agent posts task snapshots to.
//
// It serves POST on its root and on "/{taskID}". A GET carrying a
// validationToken query parameter echoes the token back so that agents can
// check the endpoint before registering it.
type PushReceiver struct {
	handler  PushHandler
	token    string
	verifier *auth.Verifier
	logger   *slog.Logger
	router   chi.Router
}

// PushReceiverOption configures a [PushReceiver].
type PushReceiverOption func(*PushReceiver)

// WithExpectedToken rejects deliveries whose [a2a.NotificationTokenHeader]
// differs from token.
func WithExpectedToken(token string) PushReceiverOption {
	return func(p *PushReceiver) {
		p.token = token
	}
}

// WithTokenVerifier rejects deliveries whose bearer token does not verify
// against v.
func WithTokenVerifier(v *auth.Verifier) PushReceiverOption {
	return func(p *PushReceiver) {
		p.verifier = v
	}
}

// WithReceiverLogger sets the logger.
func WithReceiverLogger(logger *slog.Logger) PushReceiverOption {
	return func(p *PushReceiver) {
		p.logger = logger
	}
}

// NewPushReceiver creates a [PushReceiver] passing every accepted snapshot
// to handler.
func NewPushReceiver(handler PushHandler, opts ...PushReceiverOption) *PushReceiver {
	if handler == nil {
		panic("client: nil PushHandler")
	}
	p := &PushReceiver{handler: handler}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/", p.validate)
	r.With(middleware.AllowContentType("application/json")).Post("/", p.receive)
	r.With(middleware.AllowContentType("application/json")).Post("/{taskID}", p.receive)
	p.router = r
	return p
}

// ServeHTTP implements [http.Handler].
func (p *PushReceiver) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.router.ServeHTTP(w, r)
}

func (p *PushReceiver) validate(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("validationToken")
	if token == "" {
		http.Error(w, "missing validationToken", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, token)
}

func (p *PushReceiver) receive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if p.token != "" {
		got := r.Header.Get(a2a.NotificationTokenHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(p.token)) != 1 {
			p.logger.WarnContext(ctx, "push notification with wrong token", slog.String("remote_addr", r.RemoteAddr))
			http.Error(w, "invalid notification token", http.StatusUnauthorized)
			return
		}
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxNotificationBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, "notification too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if p.verifier != nil {
		if err := p.verifier.Verify(ctx, r.Header.Get("Authorization"), body); err != nil {
			p.logger.WarnContext(ctx, "push notification failed verification", slog.Any("error", err))
			http.Error(w, "invalid authorization", http.StatusUnauthorized)
			return
		}
	}

	ev, err := a2a.DecodeEvent(body)
	if err != nil {
		http.Error(w, "invalid task payload", http.StatusBadRequest)
		return
	}
	task, ok := ev.(*a2a.Task)
	if !ok {
		http.Error(w, "payload is not a task", http.StatusBadRequest)
		return
	}
	if id := chi.URLParam(r, "taskID"); id != "" && id != task.ID {
		http.Error(w, "task id does not match path", http.StatusBadRequest)
		return
	}

	if err := p.handler(ctx, task); err != nil {
		p.logger.ErrorContext(ctx, "handle push notification",
			slog.String("task_id", task.ID),
			slog.Any("error", err),
		)
		http.Error(w, "failed to handle notification", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}
