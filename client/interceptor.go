// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

package client

import (
	"context"
	"io"
	"log/slog"
	"math"
	"net/http"
	"slices"
	"time"
)

// Interceptor defines a middleware function that can intercept and modify requests/responses.
type Interceptor func(ctx context.Context, req *http.Request, invoker Invoker) (*http.Response, error)

// Invoker represents the next handler in the interceptor chain.
type Invoker func(ctx context.Context, req *http.Request) (*http.Response, error)

// chainInterceptors chains multiple interceptors together.
func chainInterceptors(interceptors []Interceptor, invoker Invoker) Invoker {
	if len(interceptors) == 0 {
		return invoker
	}

	// Build the chain from right to left
	for i := len(interceptors) - 1; i >= 0; i-- {
		interceptor := interceptors[i]
		next := invoker
		invoker = func(ctx context.Context, req *http.Request) (*http.Response, error) {
			return interceptor(ctx, req, next)
		}
	}

	return invoker
}

// LoggingInterceptor logs requests and responses at debug level.
func LoggingInterceptor(logger *slog.Logger) Interceptor {
	return func(ctx context.Context, req *http.Request, invoker Invoker) (*http.Response, error) {
		start := time.Now()
		resp, err := invoker(ctx, req)
		if err != nil {
			logger.WarnContext(ctx, "a2a request failed",
				slog.String("method", req.Method),
				slog.String("url", req.URL.String()),
				slog.Any("error", err),
			)
			return resp, err
		}
		logger.DebugContext(ctx, "a2a request",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
			slog.Duration("duration", time.Since(start)),
		)
		return resp, nil
	}
}

// RetryInterceptor retries requests answered with a retryable status code or
// failing at the transport level. Requests whose body cannot be replayed are
// sent once.
func RetryInterceptor(config RetryConfig) Interceptor {
	return func(ctx context.Context, req *http.Request, invoker Invoker) (*http.Response, error) {
		var (
			resp *http.Response
			err  error
		)
		for attempt := 0; ; attempt++ {
			if attempt > 0 {
				if req.GetBody == nil && req.Body != nil && req.Body != http.NoBody {
					return resp, err
				}
				if req.GetBody != nil {
					body, berr := req.GetBody()
					if berr != nil {
						return resp, err
					}
					req.Body = body
				}
			}

			resp, err = invoker(ctx, req)
			if err == nil && !slices.Contains(config.RetryableStatusCodes, resp.StatusCode) {
				return resp, nil
			}
			if attempt >= config.MaxRetries || ctx.Err() != nil {
				return resp, err
			}
			if resp != nil {
				_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4<<10))
				resp.Body.Close()
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(calculateDelay(config, attempt)):
			}
		}
	}
}

// UserAgentInterceptor adds a user agent header to requests.
func UserAgentInterceptor(userAgent string) Interceptor {
	return func(ctx context.Context, req *http.Request, invoker Invoker) (*http.Response, error) {
		req.Header.Set("User-Agent", userAgent)
		return invoker(ctx, req)
	}
}

// HeaderInterceptor adds custom headers to requests.
func HeaderInterceptor(headers map[string]string) Interceptor {
	return func(ctx context.Context, req *http.Request, invoker Invoker) (*http.Response, error) {
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		return invoker(ctx, req)
	}
}

// calculateDelay calculates the delay for the next retry attempt.
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	d := time.Duration(float64(config.RetryDelay) * math.Pow(2, float64(attempt)))
	if config.MaxRetryDelay > 0 {
		d = min(d, config.MaxRetryDelay)
	}
	return d
}
