// Package logging wires structured logging for the CLI: a slog handler
// that reads request-scoped attributes off the context, and an optional
// rotating file sink.
package logging

import (
	"context"
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"
)

type ctxKey struct{}

// AppendCtx returns a context carrying attr alongside any attrs already
// attached, so every log line emitted through that context's handler
// includes them without the caller re-passing them at each call site.
func AppendCtx(ctx context.Context, attr slog.Attr) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if existing, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		attrs := append(append([]slog.Attr(nil), existing...), attr)
		return context.WithValue(ctx, ctxKey{}, attrs)
	}
	return context.WithValue(ctx, ctxKey{}, []slog.Attr{attr})
}

// contextHandler injects the attrs stashed by AppendCtx into every record
// before delegating to the wrapped handler.
type contextHandler struct {
	slog.Handler
}

func (h contextHandler) Handle(ctx context.Context, r slog.Record) error {
	if attrs, ok := ctx.Value(ctxKey{}).([]slog.Attr); ok {
		r.AddAttrs(attrs...)
	}
	return h.Handler.Handle(ctx, r)
}

// Logger builds a structured logger writing to w, JSON-encoded when json
// is true and text-encoded otherwise, filtered to level and above.
func Logger(w io.Writer, json bool, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if json {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(contextHandler{h})
}

// RotatingWriter returns a size- and age-bounded log file sink, for use
// with Logger when logging to disk instead of stdout.
func RotatingWriter(path string, maxSizeMB, maxBackups, maxAgeDays int) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
		Compress:   true,
	}
}
