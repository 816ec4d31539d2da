// Package log provides the pluggable logging hook the gateway uses to
// report panics recovered from LocationExecutors and the errors they
// return. It is intentionally minimal: structured logging of request
// traffic is the job of the trace package, not this one.
package log

import (
	"context"
	"log"
	"runtime"
)

// Logger is the interface the Executor uses to log panics recovered from
// LocationExecutors and the errors LocationExecutors return.
type Logger interface {
	LogPanic(ctx context.Context, value interface{})
	LogLocationError(ctx context.Context, location string, err error)
}

// LoggerFunc is a function type that implements the Logger interface's
// LogPanic method; LogLocationError is a no-op for values built this way.
type LoggerFunc func(ctx context.Context, value interface{})

func (f LoggerFunc) LogPanic(ctx context.Context, value interface{}) {
	f(ctx, value)
}

func (f LoggerFunc) LogLocationError(ctx context.Context, location string, err error) {}

// DefaultLogger is the default logger, backed by the standard log package.
type DefaultLogger struct{}

func (l *DefaultLogger) LogPanic(ctx context.Context, value interface{}) {
	const size = 64 << 10
	buf := make([]byte, size)
	buf = buf[:runtime.Stack(buf, false)]
	log.Printf("stitchgate: panic occurred: %v\n%s\ncontext: %v", value, buf, ctx)
}

func (l *DefaultLogger) LogLocationError(ctx context.Context, location string, err error) {
	log.Printf("stitchgate: location %q error: %v", location, err)
}
