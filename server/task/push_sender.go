// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package task

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/sourcegraph/conc"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/telemetry"
)

// DefaultPushTimeout bounds one webhook delivery.
const DefaultPushTimeout = 10 * time.Second

// Notifier is told about every status transition of a task.
type Notifier interface {
	// Notify schedules delivery of task. It never blocks on the network.
	Notify(task *a2a.Task)
}

// PayloadSigner signs webhook bodies for receivers that verify the sender.
type PayloadSigner interface {
	Sign(ctx context.Context, body []byte, audience string) (string, error)
}

// PushSenderConfig holds configuration for [PushSender].
type PushSenderConfig struct {
	// Store resolves the webhook of a task. Required.
	Store PushConfigStore

	// Client is the HTTP client used for deliveries. Defaults to a client
	// with Timeout.
	Client *http.Client

	// Timeout bounds each delivery. Defaults to [DefaultPushTimeout].
	Timeout time.Duration

	// Signer, when set, attaches a signed JWT to deliveries whose config
	// carries no bearer credentials.
	Signer PayloadSigner

	Logger    *slog.Logger
	Telemetry *telemetry.Telemetry
}

// PushSender delivers task snapshots to the webhook configured for each task.
//
// Deliveries for one task are sent one at a time in order. While a delivery
// is in flight only the newest pending snapshot is kept, so a slow receiver
// sees the latest state rather than a backlog. Delivery failures are logged
// and never reach the caller of [PushSender.Notify].
type PushSender struct {
	store   PushConfigStore
	client  *http.Client
	timeout time.Duration
	signer  PayloadSigner
	logger  *slog.Logger
	tel     *telemetry.Telemetry

	mu     sync.Mutex
	lanes  map[string]*lane
	closed bool
	wg     conc.WaitGroup
}

// lane holds the snapshot waiting behind the in-flight delivery of one task.
type lane struct {
	pending *a2a.Task
}

var _ Notifier = (*PushSender)(nil)

// NewPushSender creates a [PushSender].
func NewPushSender(config PushSenderConfig) (*PushSender, error) {
	if config.Store == nil {
		return nil, errors.New("push config store cannot be nil")
	}

	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultPushTimeout
	}
	client := config.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	tel := config.Telemetry
	if tel == nil {
		tel = telemetry.Noop()
	}

	return &PushSender{
		store:   config.Store,
		client:  client,
		timeout: timeout,
		signer:  config.Signer,
		logger:  logger,
		tel:     tel,
		lanes:   make(map[string]*lane),
	}, nil
}

// Notify implements [Notifier].
func (s *PushSender) Notify(task *a2a.Task) {
	if task == nil {
		return
	}
	snap := task.Clone()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if l, ok := s.lanes[snap.ID]; ok {
		if l.pending != nil {
			s.tel.Add(context.Background(), s.tel.PushCoalesced, telemetry.TaskIDKey.String(snap.ID))
		}
		l.pending = snap
		s.mu.Unlock()
		return
	}
	l := &lane{pending: snap}
	s.lanes[snap.ID] = l
	// Added under mu: Close must not start waiting between the closed check and Go.
	s.wg.Go(func() { s.drain(snap.ID, l) })
	s.mu.Unlock()
}

func (s *PushSender) drain(taskID string, l *lane) {
	for {
		s.mu.Lock()
		snap := l.pending
		l.pending = nil
		if snap == nil {
			delete(s.lanes, taskID)
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.deliver(context.Background(), snap)
	}
}

func (s *PushSender) deliver(ctx context.Context, task *a2a.Task) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	config, err := s.store.Get(ctx, task.ID)
	if err != nil {
		if !errors.Is(err, a2a.ErrNotFound) {
			s.logger.WarnContext(ctx, "resolve push notification config", slog.String("task_id", task.ID), slog.Any("error", err))
		}
		return
	}

	ctx, span := s.tel.Start(ctx, "a2a.push.deliver", task.ID, telemetry.StateKey.String(string(task.Status.State)))
	err = s.send(ctx, task, config)
	telemetry.End(span, err)

	if err != nil {
		s.tel.Add(ctx, s.tel.PushFailed, telemetry.TaskIDKey.String(task.ID))
		s.logger.WarnContext(ctx, "push notification delivery failed",
			slog.String("task_id", task.ID),
			slog.String("state", string(task.Status.State)),
			slog.Any("error", err),
		)
		return
	}
	s.tel.Add(ctx, s.tel.PushDelivered, telemetry.TaskIDKey.String(task.ID))
	s.logger.DebugContext(ctx, "push notification delivered",
		slog.String("task_id", task.ID),
		slog.String("state", string(task.Status.State)),
	)
}

func (s *PushSender) send(ctx context.Context, task *a2a.Task, config *a2a.PushNotificationConfig) error {
	body, err := sonic.ConfigStd.Marshal(task)
	if err != nil {
		return a2a.DeliveryError{TaskID: task.ID, URL: config.URL, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, config.URL, bytes.NewReader(body))
	if err != nil {
		return a2a.DeliveryError{TaskID: task.ID, URL: config.URL, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", a2a.PushUserAgent)
	if config.Token != "" {
		req.Header.Set(a2a.NotificationTokenHeader, config.Token)
	}

	switch {
	case bearerCredentials(config) != "":
		req.Header.Set("Authorization", "Bearer "+bearerCredentials(config))
	case s.signer != nil:
		token, err := s.signer.Sign(ctx, body, config.URL)
		if err != nil {
			return a2a.DeliveryError{TaskID: task.ID, URL: config.URL, Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return a2a.DeliveryError{TaskID: task.ID, URL: config.URL, Err: err}
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return a2a.DeliveryError{TaskID: task.ID, URL: config.URL, StatusCode: resp.StatusCode}
	}
	return nil
}

func bearerCredentials(config *a2a.PushNotificationConfig) string {
	auth := config.Authentication
	if auth == nil || auth.Credentials == "" {
		return ""
	}
	for _, scheme := range auth.Schemes {
		if strings.EqualFold(scheme, "bearer") {
			return auth.Credentials
		}
	}
	return ""
}

// Close stops accepting notifications and waits for in-flight deliveries
// until ctx is done.
func (s *PushSender) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// NoopNotifier discards every notification.
type NoopNotifier struct{}

// Notify implements [Notifier].
func (NoopNotifier) Notify(*a2a.Task) {}
