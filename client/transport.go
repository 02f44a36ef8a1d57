// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-json-experiment/json"
	"github.com/google/uuid"

	a2a "github.com/go-a2a/taskbridge"
	"github.com/go-a2a/taskbridge/transport"
)

// maxResponseBytes bounds a unary JSON-RPC response.
const maxResponseBytes = 8 << 20

// Transport handles JSON-RPC communication with the A2A server.
type Transport struct {
	url     string
	headers http.Header
	timeout time.Duration
	logger  *slog.Logger

	unary  Invoker
	stream Invoker
}

// NewTransport creates a new Transport posting to url.
func NewTransport(url string, opts ...Option) *Transport {
	o := applyOptions(opts)
	do := func(_ context.Context, req *http.Request) (*http.Response, error) {
		return o.HTTPClient.Do(req)
	}

	unary := append([]Interceptor{LoggingInterceptor(o.Logger)}, o.Interceptors...)
	if o.RetryConfig.MaxRetries > 0 {
		unary = append(unary, RetryInterceptor(o.RetryConfig))
	}
	stream := append([]Interceptor{LoggingInterceptor(o.Logger)}, o.Interceptors...)

	return &Transport{
		url:     url,
		headers: o.Headers,
		timeout: o.Timeout,
		logger:  o.Logger,
		unary:   chainInterceptors(unary, do),
		stream:  chainInterceptors(stream, do),
	}
}

// URL returns the JSON-RPC endpoint.
func (t *Transport) URL() string {
	return t.url
}

// Call sends a JSON-RPC request and decodes the result into result, which may
// be nil. A JSON-RPC error response is returned as [*a2a.JSONRPCError].
func (t *Transport) Call(ctx context.Context, method string, params, result any) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	resp, err := t.post(ctx, t.unary, method, params, "application/json")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := decodeEnvelope(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	if raw.Error != nil {
		return raw.Error
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(raw.Result, result); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// Stream sends a streaming JSON-RPC request. The agent may refuse the stream
// with a plain JSON-RPC error, which is returned as [*a2a.JSONRPCError].
func (t *Transport) Stream(ctx context.Context, method string, params any) (*Stream, error) {
	resp, err := t.post(ctx, t.stream, method, params, transport.ContentType)
	if err != nil {
		return nil, err
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType != transport.ContentType {
		defer resp.Body.Close()
		raw, err := decodeEnvelope(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("%s: %w", method, err)
		}
		if raw.Error != nil {
			return nil, raw.Error
		}
		return nil, fmt.Errorf("%s: unexpected content type %q", method, mediaType)
	}
	return newStream(resp.Body), nil
}

func (t *Transport) post(ctx context.Context, invoke Invoker, method string, params any, accept string) (*http.Response, error) {
	rpcReq, err := a2a.NewJSONRPCRequest(uuid.NewString(), method, params)
	if err != nil {
		return nil, err
	}
	body, err := json.Marshal(rpcReq)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create %s request: %w", method, err)
	}
	for k, vs := range t.headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", accept)

	resp, err := invoke(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("send %s request: %w", method, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(bytes.TrimSpace(b))}
	}
	return resp, nil
}

func decodeEnvelope(r io.Reader) (*a2a.RawJSONRPCResponse, error) {
	var raw a2a.RawJSONRPCResponse
	if err := sonic.ConfigStd.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if raw.JSONRPC != a2a.JSONRPCVersion {
		return nil, fmt.Errorf("decode response: unexpected jsonrpc version %q", raw.JSONRPC)
	}
	return &raw, nil
}
