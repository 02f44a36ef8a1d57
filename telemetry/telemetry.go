// Copyright 2025 The Go A2A Authors
// SPDX-License-Identifier: Apache-2.0

// Package telemetry holds the OpenTelemetry instruments shared by the server
// components. A [Telemetry] is constructed once and passed to each component
// explicitly; there is no process-wide instance.
package telemetry

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName is the tracer and meter name used by this module.
const InstrumentationName = "github.com/go-a2a/taskbridge"

// Attribute keys.
const (
	TaskIDKey    = attribute.Key("a2a.task_id")
	ContextIDKey = attribute.Key("a2a.context_id")
	StateKey     = attribute.Key("a2a.task_state")
	MethodKey    = attribute.Key("a2a.method")
	EventKindKey = attribute.Key("a2a.event_kind")
)

// Telemetry bundles a tracer with the counters recorded by the lifecycle engine.
type Telemetry struct {
	Tracer trace.Tracer

	EventsPublished metric.Int64Counter
	WorkerRuns      metric.Int64Counter
	WorkerFailures  metric.Int64Counter
	PushDelivered   metric.Int64Counter
	PushFailed      metric.Int64Counter
	PushCoalesced   metric.Int64Counter
}

// New creates a [Telemetry] from explicit providers. Nil providers fall back
// to no-op implementations.
func New(tp trace.TracerProvider, mp metric.MeterProvider) *Telemetry {
	if tp == nil {
		tp = tracenoop.NewTracerProvider()
	}
	if mp == nil {
		mp = metricnoop.NewMeterProvider()
	}
	m := mp.Meter(InstrumentationName)

	return &Telemetry{
		Tracer:          tp.Tracer(InstrumentationName),
		EventsPublished: counter(m, "a2a.events.published", "Count of protocol events published"),
		WorkerRuns:      counter(m, "a2a.worker.runs", "Count of worker invocations"),
		WorkerFailures:  counter(m, "a2a.worker.failures", "Count of worker invocations ending in a fault"),
		PushDelivered:   counter(m, "a2a.push.delivered", "Count of successful webhook deliveries"),
		PushFailed:      counter(m, "a2a.push.failed", "Count of failed webhook deliveries"),
		PushCoalesced:   counter(m, "a2a.push.coalesced", "Count of snapshots replaced before delivery"),
	}
}

// Noop returns a [Telemetry] that records nothing.
func Noop() *Telemetry {
	return New(nil, nil)
}

func counter(m metric.Meter, name, desc string) metric.Int64Counter {
	c, err := m.Int64Counter(name, metric.WithDescription(desc))
	if err != nil {
		otel.Handle(err)
		return metricnoop.Int64Counter{}
	}
	return c
}

// Start starts a span named name carrying the task id.
func (t *Telemetry) Start(ctx context.Context, name, taskID string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	attrs = append(attrs, TaskIDKey.String(taskID))
	return t.Tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}

// Add increments c by one.
func (t *Telemetry) Add(ctx context.Context, c metric.Int64Counter, attrs ...attribute.KeyValue) {
	c.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// End records err on span, if any, and ends it.
func End(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
