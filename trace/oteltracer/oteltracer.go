// Package oteltracer implements trace.Tracer on top of OpenTelemetry,
// adapted from the span-naming and attribute conventions used by the
// teacher library's own otel tracer and by movio-bramble's "Federated
// GraphQL Query" span tree.
package oteltracer

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/graphstitch/graphstitch/errors"
	"github.com/graphstitch/graphstitch/trace"
)

// New creates a Tracer using a tracer named "stitchgate".
func New() trace.Tracer {
	return &Tracer{Tracer: otel.Tracer("stitchgate")}
}

type Tracer struct {
	Tracer oteltrace.Tracer
}

func (t *Tracer) TraceCompose(ctx context.Context, locations []string) (context.Context, trace.ComposeFinishFunc) {
	spanCtx, span := t.Tracer.Start(ctx, "Compose Supergraph")
	span.SetAttributes(attribute.StringSlice("stitchgate.locations", locations))

	return spanCtx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (t *Tracer) TracePlan(ctx context.Context, operationName, queryString string) (context.Context, trace.PlanFinishFunc) {
	spanCtx, span := t.Tracer.Start(ctx, "Plan Request")
	span.SetAttributes(
		attribute.String("stitchgate.operation_name", operationName),
		attribute.String("stitchgate.query", queryString),
	)

	return spanCtx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

func (t *Tracer) TraceExecute(ctx context.Context, operationName string) (context.Context, trace.ExecuteFinishFunc) {
	spanCtx, span := t.Tracer.Start(ctx, "Execute Plan", oteltrace.WithAttributes(
		attribute.String("stitchgate.operation_name", operationName),
	))

	return spanCtx, func(errs errors.List) {
		if len(errs) > 0 {
			msg := errs[0].Message
			if len(errs) > 1 {
				msg += fmt.Sprintf(" (and %d more errors)", len(errs)-1)
			}
			span.SetStatus(codes.Error, msg)
		}
		span.End()
	}
}

func (t *Tracer) TraceOperation(ctx context.Context, step int, location string, operationType string) (context.Context, trace.OperationFinishFunc) {
	spanCtx, span := t.Tracer.Start(ctx, fmt.Sprintf("Operation #%d: %s", step, location))
	span.SetAttributes(
		attribute.Int("stitchgate.step", step),
		attribute.String("stitchgate.location", location),
		attribute.String("stitchgate.operation_type", operationType),
	)

	return spanCtx, func(err error) {
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

var _ trace.Tracer = &Tracer{}
