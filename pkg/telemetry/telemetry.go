// Package telemetry traces state machine processing through OpenTelemetry.
package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/google/uuid"

	"github.com/SEPTEMBER998767/statemachine"
)

const tracerName = "github.com/SEPTEMBER998767/statemachine"

// Extension records one span per transition, instantaneous spans for guard
// evaluations, declines and queued events, and the collected action
// failures as span errors. It observes only; it never alters processing.
//
// The spans map is touched by the engine's single worker exclusively
// (EventQueued, which may run on a producer goroutine, does not use it),
// so it needs no locking.
type Extension[S, E comparable] struct {
	tracer trace.Tracer
	spans  map[uuid.UUID]trace.Span
}

// New creates a tracing extension. A nil provider uses the otel global.
func New[S, E comparable](provider trace.TracerProvider) *Extension[S, E] {
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Extension[S, E]{
		tracer: provider.Tracer(tracerName),
		spans:  map[uuid.UUID]trace.Span{},
	}
}

func (e *Extension[S, E]) MachineInitialized(state S) {
	_, span := e.tracer.Start(context.Background(), "statemachine.initialize",
		trace.WithAttributes(attribute.String("statemachine.state", fmt.Sprint(state))))
	span.End()
}

func (e *Extension[S, E]) EventQueued(event E, argument any) {
	_, span := e.tracer.Start(context.Background(), "statemachine.queue",
		trace.WithAttributes(attribute.String("statemachine.event", fmt.Sprint(event))))
	span.End()
}

func (e *Extension[S, E]) TransitionBegin(ctx *statemachine.TransitionContext[S, E]) {
	_, span := e.tracer.Start(context.Background(), "statemachine.transition",
		trace.WithAttributes(
			attribute.String("statemachine.firing_id", ctx.ID().String()),
			attribute.String("statemachine.event", fmt.Sprint(ctx.Event())),
			attribute.String("statemachine.source", fmt.Sprint(ctx.Source())),
		))
	e.spans[ctx.ID()] = span
}

func (e *Extension[S, E]) GuardEvaluated(ctx *statemachine.TransitionContext[S, E], target S, satisfied bool) {
	_, span := e.tracer.Start(context.Background(), "statemachine.guard",
		trace.WithAttributes(
			attribute.String("statemachine.firing_id", ctx.ID().String()),
			attribute.String("statemachine.target", fmt.Sprint(target)),
			attribute.Bool("statemachine.satisfied", satisfied),
		))
	span.End()
}

func (e *Extension[S, E]) ActionExceptionCaught(ctx *statemachine.TransitionContext[S, E], err error) {
	if span, ok := e.spans[ctx.ID()]; ok {
		span.RecordError(err)
	}
}

func (e *Extension[S, E]) TransitionEnd(ctx *statemachine.TransitionContext[S, E]) {
	span, ok := e.spans[ctx.ID()]
	if !ok {
		return
	}
	delete(e.spans, ctx.ID())
	span.SetAttributes(attribute.String("statemachine.target", fmt.Sprint(ctx.Target())))
	if n := len(ctx.Errors()); n > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d action failures", n))
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

func (e *Extension[S, E]) EventDeclined(ctx *statemachine.TransitionContext[S, E]) {
	_, span := e.tracer.Start(context.Background(), "statemachine.declined",
		trace.WithAttributes(
			attribute.String("statemachine.firing_id", ctx.ID().String()),
			attribute.String("statemachine.event", fmt.Sprint(ctx.Event())),
			attribute.String("statemachine.source", fmt.Sprint(ctx.Source())),
		))
	span.End()
}

/******* Noop provider *******/

// Provider discards every span. It lets integrators wire the extension
// without an SDK, and tests embed it to intercept just the calls they
// care about. Only the span surface the extension touches is overridden;
// unoverridden trace.Span methods must not be called on a Span.
type Provider struct {
	trace.TracerProvider
}

func (provider *Provider) Tracer(name string, options ...trace.TracerOption) trace.Tracer {
	return &Tracer{}
}

type Tracer struct {
	trace.Tracer
}

func (tracer *Tracer) Start(ctx context.Context, name string, options ...trace.SpanStartOption) (context.Context, trace.Span) {
	return ctx, &Span{}
}

type Span struct {
	trace.Span
}

func (span *Span) End(options ...trace.SpanEndOption)                  {}
func (span *Span) RecordError(err error, options ...trace.EventOption) {}
func (span *Span) SetAttributes(kv ...attribute.KeyValue)              {}
func (span *Span) SetStatus(code codes.Code, description string)       {}
