// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-json-experiment/json"
	"github.com/go-json-experiment/json/jsontext"
	"go.opentelemetry.io/otel/trace"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/internal/pool"
	"github.com/go-a2a/taskbridge/telemetry"
	"github.com/go-a2a/taskbridge/transport"
)

// DefaultMaxRequestBytes bounds the size of a JSON-RPC request body.
const DefaultMaxRequestBytes = 1 << 20

type methodFunc func(ctx context.Context, params jsontext.Value) (any, error)

// JSONRPCHandler serves a [RequestHandler] as JSON-RPC 2.0 over HTTP POST.
//
// message/stream answers with a server-sent event stream whose every data
// payload is a JSON-RPC response wrapping one protocol event. All other
// methods answer with a single JSON-RPC response.
type JSONRPCHandler struct {
	handler  RequestHandler
	card     *a2a.AgentCard
	logger   *slog.Logger
	tel      *telemetry.Telemetry
	maxBytes int64
	methods  map[string]methodFunc
}

var _ http.Handler = (*JSONRPCHandler)(nil)

// JSONRPCHandlerOption configures a [JSONRPCHandler].
type JSONRPCHandlerOption func(*JSONRPCHandler)

// WithJSONRPCLogger sets the logger.
func WithJSONRPCLogger(logger *slog.Logger) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		h.logger = logger
	}
}

// WithJSONRPCTelemetry sets the telemetry instruments.
func WithJSONRPCTelemetry(tel *telemetry.Telemetry) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		h.tel = tel
	}
}

// WithMaxRequestBytes bounds the request body size.
func WithMaxRequestBytes(n int64) JSONRPCHandlerOption {
	return func(h *JSONRPCHandler) {
		if n > 0 {
			h.maxBytes = n
		}
	}
}

// NewJSONRPCHandler creates a [JSONRPCHandler]. The card decides whether
// message/stream is served.
func NewJSONRPCHandler(handler RequestHandler, card *a2a.AgentCard, opts ...JSONRPCHandlerOption) *JSONRPCHandler {
	if handler == nil {
		panic("request handler cannot be nil")
	}
	if card == nil {
		panic("agent card cannot be nil")
	}

	h := &JSONRPCHandler{
		handler:  handler,
		card:     card,
		maxBytes: DefaultMaxRequestBytes,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.tel == nil {
		h.tel = telemetry.Noop()
	}

	h.methods = map[string]methodFunc{
		a2a.MethodMessageSend:   method(handler.OnMessageSend),
		a2a.MethodTasksGet:      method(handler.OnGetTask),
		a2a.MethodTasksCancel:   method(handler.OnCancelTask),
		a2a.MethodPushConfigSet: method(handler.OnSetPushConfig),
		a2a.MethodPushConfigGet: method(handler.OnGetPushConfig),
		a2a.MethodPushConfigDelete: method(func(ctx context.Context, p *a2a.TaskIDParams) (jsontext.Value, error) {
			return jsontext.Value("null"), handler.OnDeletePushConfig(ctx, p)
		}),
	}
	return h
}

// method adapts a typed handler method to a [methodFunc].
func method[P, R any](fn func(context.Context, *P) (R, error)) methodFunc {
	return func(ctx context.Context, raw jsontext.Value) (any, error) {
		params, err := decodeParams[P](raw)
		if err != nil {
			return nil, err
		}
		return fn(ctx, params)
	}
}

func decodeParams[P any](raw jsontext.Value) (*P, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, a2a.NewInvalidParamsError("params are required")
	}
	params := new(P)
	if err := json.Unmarshal(raw, params); err != nil {
		return nil, a2a.NewInvalidParamsError("%v", err)
	}
	return params, nil
}

// ServeHTTP implements [http.Handler].
func (h *JSONRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	var req a2a.JSONRPCRequest
	body := http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := json.UnmarshalRead(body, &req); err != nil {
		h.writeError(w, nil, a2a.NewParseError(err))
		return
	}
	if req.JSONRPC != a2a.JSONRPCVersion || req.Method == "" {
		h.writeError(w, req.ID, a2a.NewInvalidRequestError("jsonrpc must be 2.0 and method is required"))
		return
	}

	ctx := r.Context()
	if req.Method == a2a.MethodMessageStream {
		h.serveStream(ctx, w, &req)
		return
	}

	fn, ok := h.methods[req.Method]
	if !ok {
		h.writeError(w, req.ID, a2a.NewMethodNotFoundError(req.Method))
		return
	}

	result, err := fn(ctx, req.Params)
	if err != nil {
		h.logCallError(ctx, req.Method, err)
		h.writeError(w, req.ID, a2a.ToJSONRPCError(err))
		return
	}
	h.write(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: req.ID, Result: result})
}

func (h *JSONRPCHandler) serveStream(ctx context.Context, w http.ResponseWriter, req *a2a.JSONRPCRequest) {
	if !h.card.Capabilities.Streaming {
		h.writeError(w, req.ID, a2a.ToJSONRPCError(a2a.UnsupportedOperationError{Operation: a2a.MethodMessageStream}))
		return
	}
	params, err := decodeParams[a2a.MessageSendParams](req.Params)
	if err != nil {
		h.writeError(w, req.ID, a2a.ToJSONRPCError(err))
		return
	}

	ctx, span := h.tel.Start(ctx, "a2a.jsonrpc.stream", messageTaskID(params), telemetry.MethodKey.String(a2a.MethodMessageStream))
	var streamErr error
	defer func() { telemetry.End(span, streamErr) }()

	events, err := h.handler.OnMessageSendStream(ctx, params)
	if err != nil {
		streamErr = err
		h.logCallError(ctx, req.Method, err)
		h.writeError(w, req.ID, a2a.ToJSONRPCError(err))
		return
	}

	sw := transport.NewWriter(w)
	for ev, err := range events {
		resp := &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: nullID(req.ID)}
		if err != nil {
			streamErr = err
			resp.Error = a2a.ToJSONRPCError(err)
		} else {
			resp.Result = ev
			span.AddEvent("event", trace.WithAttributes(telemetry.EventKindKey.String(string(ev.EventKind()))))
		}

		if werr := h.writeFrame(sw, resp); werr != nil {
			// The agent keeps running; only this observer goes away.
			h.logger.DebugContext(ctx, "stream write failed", slog.String("method", req.Method), slog.Any("error", werr))
			return
		}
		if err != nil {
			return
		}
	}
}

func (h *JSONRPCHandler) writeFrame(sw *transport.Writer, resp *a2a.JSONRPCResponse) error {
	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)

	if err := json.MarshalWrite(buf, resp); err != nil {
		resp.Result = nil
		resp.Error = a2a.ToJSONRPCError(a2a.InternalError{Err: err})
		buf.Reset()
		if err := json.MarshalWrite(buf, resp); err != nil {
			return err
		}
	}
	return sw.Write(transport.Event{Data: buf.Bytes()})
}

func (h *JSONRPCHandler) writeError(w http.ResponseWriter, id jsontext.Value, rpcErr *a2a.JSONRPCError) {
	h.write(w, &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: nullID(id), Error: rpcErr})
}

func (h *JSONRPCHandler) write(w http.ResponseWriter, resp *a2a.JSONRPCResponse) {
	resp.ID = nullID(resp.ID)

	buf := pool.Bytes.Get()
	defer pool.Bytes.Put(buf)
	if err := json.MarshalWrite(buf, resp); err != nil {
		h.logger.Error("encode JSON-RPC response", slog.Any("error", err))
		buf.Reset()
		fallback := &a2a.JSONRPCResponse{JSONRPC: a2a.JSONRPCVersion, ID: resp.ID, Error: a2a.ToJSONRPCError(a2a.InternalError{Err: err})}
		if err := json.MarshalWrite(buf, fallback); err != nil {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Debug("write JSON-RPC response", slog.Any("error", err))
	}
}

func (h *JSONRPCHandler) logCallError(ctx context.Context, method string, err error) {
	level := slog.LevelDebug
	if errors.Is(err, a2a.ErrInternal) || a2a.ToJSONRPCError(err).Code == a2a.InternalErrorCode {
		level = slog.LevelError
	}
	h.logger.Log(ctx, level, "request failed", slog.String("method", method), slog.Any("error", err))
}

// nullID substitutes a JSON null for a missing id.
func nullID(id jsontext.Value) jsontext.Value {
	if len(id) == 0 {
		return jsontext.Value("null")
	}
	return id
}
