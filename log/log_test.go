package log_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/graphstitch/graphstitch/log"
)

func TestLoggerFuncDelegatesLogPanic(t *testing.T) {
	var got interface{}
	fn := log.LoggerFunc(func(ctx context.Context, value interface{}) {
		got = value
	})

	fn.LogPanic(context.Background(), "boom")
	assert.Equal(t, "boom", got)
}

func TestLoggerFuncLogLocationErrorIsNoop(t *testing.T) {
	fn := log.LoggerFunc(func(ctx context.Context, value interface{}) {
		t.Fatal("should not be called")
	})

	assert.NotPanics(t, func() {
		fn.LogLocationError(context.Background(), "accounts", assert.AnError)
	})
}

func TestDefaultLoggerImplementsLogger(t *testing.T) {
	var l log.Logger = &log.DefaultLogger{}

	assert.NotPanics(t, func() {
		l.LogPanic(context.Background(), "boom")
		l.LogLocationError(context.Background(), "accounts", assert.AnError)
	})
}
