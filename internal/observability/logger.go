package observability

import (
	"io"
	"log/slog"
	"os"
)

// NewLogger returns the JSON logger shared by both binaries. Every record
// carries the service and env, plus trace ids when logged inside a span.
func NewLogger(env, service string) *slog.Logger {
	return newLogger(os.Stdout, env, service)
}

func newLogger(w io.Writer, env, service string) *slog.Logger {
	level := slog.LevelInfo

	if env == "dev" {
		level = slog.LevelDebug
	}

	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
	})

	return slog.New(NewTraceHandler(handler)).With(
		slog.String("service", service),
		slog.String("env", env),
	)
}
