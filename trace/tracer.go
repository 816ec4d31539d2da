// Package trace provides the gateway's tracing hook. It mirrors the shape
// of a typical GraphQL server tracer (TraceQuery/TraceField) but has a span
// for each of the three request-path phases the gateway actually has:
// planning, executing, and each individual Operation dispatch. Composition
// happens once at startup; TraceCompose exists for it, but compose.Compose
// does not call it itself.
package trace

import (
	"context"

	"github.com/graphstitch/graphstitch/errors"
)

// PlanFinishFunc closes a TracePlan span.
type PlanFinishFunc = func(error)

// ExecuteFinishFunc closes a TraceExecute span.
type ExecuteFinishFunc = func(errors.List)

// OperationFinishFunc closes a TraceOperation span.
type OperationFinishFunc = func(error)

// ComposeFinishFunc closes a TraceCompose span.
type ComposeFinishFunc = func(error)

// Tracer is implemented by anything that wants visibility into the
// composer, planner and executor. All methods must be safe for concurrent
// use: TraceOperation in particular is called once per dispatched
// Operation, potentially many at once.
type Tracer interface {
	// TraceCompose wraps a single compose.Compose call made by the caller;
	// nothing in this module calls it.
	TraceCompose(ctx context.Context, locations []string) (context.Context, ComposeFinishFunc)

	// TracePlan wraps building a Plan for one request.
	TracePlan(ctx context.Context, operationName, queryString string) (context.Context, PlanFinishFunc)

	// TraceExecute wraps executing a Plan end to end.
	TraceExecute(ctx context.Context, operationName string) (context.Context, ExecuteFinishFunc)

	// TraceOperation wraps dispatching a single plan Operation to a
	// location. Introspection Operations, resolved locally, are not traced.
	TraceOperation(ctx context.Context, step int, location string, operationType string) (context.Context, OperationFinishFunc)
}

// NoopTracer implements Tracer by doing nothing. It is the default.
type NoopTracer struct{}

func (NoopTracer) TraceCompose(ctx context.Context, locations []string) (context.Context, ComposeFinishFunc) {
	return ctx, func(error) {}
}

func (NoopTracer) TracePlan(ctx context.Context, operationName, queryString string) (context.Context, PlanFinishFunc) {
	return ctx, func(error) {}
}

func (NoopTracer) TraceExecute(ctx context.Context, operationName string) (context.Context, ExecuteFinishFunc) {
	return ctx, func(errors.List) {}
}

func (NoopTracer) TraceOperation(ctx context.Context, step int, location string, operationType string) (context.Context, OperationFinishFunc) {
	return ctx, func(error) {}
}

var _ Tracer = NoopTracer{}
