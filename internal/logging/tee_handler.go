package logging

import (
	"context"
	"errors"
	"log/slog"
	"slices"
)

// teeHandler sends each record to every sink that accepts its level. Errors
// from all sinks are joined.
type teeHandler struct {
	sinks []slog.Handler
}

// TeeHandler duplicates records to handlers. Nil handlers are dropped; with
// none left the result discards everything, and a single handler is returned
// as is.
func TeeHandler(handlers ...slog.Handler) slog.Handler {
	live := slices.DeleteFunc(slices.Clone(handlers), func(h slog.Handler) bool { return h == nil })
	switch len(live) {
	case 0:
		return NoopHandler{}
	case 1:
		return live[0]
	}
	return &teeHandler{sinks: live}
}

func (t *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return slices.ContainsFunc(t.sinks, func(h slog.Handler) bool { return h.Enabled(ctx, level) })
}

func (t *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range t.sinks {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}
	return errors.Join(errs...)
}

func (t *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (t *teeHandler) WithGroup(name string) slog.Handler {
	return t.derive(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (t *teeHandler) derive(fn func(slog.Handler) slog.Handler) *teeHandler {
	out := &teeHandler{sinks: make([]slog.Handler, len(t.sinks))}
	for i, h := range t.sinks {
		out.sinks[i] = fn(h)
	}
	return out
}
