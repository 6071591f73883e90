package logging

import (
	"context"
	"log/slog"
	"strings"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldFile identifies the source file a record concerns.
	FieldFile = "file"
	// FieldReason carries the short cause of a skipped or failed file.
	FieldReason = "reason"
	// FieldRunID is the evaluation or transcription run identifier.
	FieldRunID = "run_id"
	// FieldCommand names the CLI command that started the run.
	FieldCommand = "command"
)

type contextKey int

const (
	runIDKey contextKey = iota
	commandKey
)

// WithRunID tags ctx with a run identifier.
func WithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey, strings.TrimSpace(runID))
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// WithCommand tags ctx with the CLI command name.
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey, strings.TrimSpace(command))
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if cmd, ok := ctx.Value(commandKey).(string); ok && cmd != "" {
		fields = append(fields, slog.String(FieldCommand, cmd))
	}
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	return fields
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	fields := ContextFields(ctx)
	if len(fields) == 0 {
		return logger
	}
	return logger.With(Args(fields...)...)
}
