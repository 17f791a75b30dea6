package contextutil

import (
	"context"
	"log/slog"
	"testing"
)

func TestLoggerFromContext(t *testing.T) {
	if got := LoggerFromContext(context.Background()); got != slog.Default() {
		t.Error("LoggerFromContext() without logger should return slog.Default()")
	}

	logger := slog.Default().With("request_id", "abc")
	ctx := WithLogger(context.Background(), logger)
	if got := LoggerFromContext(ctx); got != logger {
		t.Error("LoggerFromContext() should return the logger stored by WithLogger")
	}

	// A value of the wrong type under the same key falls back to the default.
	bad := context.WithValue(context.Background(), loggerKey, "not a logger")
	if got := LoggerFromContext(bad); got != slog.Default() {
		t.Error("LoggerFromContext() with wrong type should return slog.Default()")
	}
}
