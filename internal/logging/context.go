package logging

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one CLI invocation across all of its log lines.
	FieldRunID = "run_id"
	// FieldRoot is the storage root a log line concerns.
	FieldRoot = "storage_root"
	// FieldPath is the absolute file path a log line concerns.
	FieldPath = "path"
	// FieldEventType classifies warnings for filtering.
	FieldEventType = "event_type"
	// FieldImpact describes the user-facing consequence of a warning.
	FieldImpact = "impact"
)

type runIDKey struct{}

// NewRunID returns a fresh identifier for one invocation.
func NewRunID() string {
	return uuid.NewString()
}

// WithRunID stores id in ctx.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunIDFromContext returns the run identifier stored in ctx, if any.
func RunIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(runIDKey{}).(string)
	return id, ok && id != ""
}

// WithContext returns a logger augmented with structured fields derived from the supplied context.
func WithContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if logger == nil {
		logger = NewNop()
	}
	if id, ok := RunIDFromContext(ctx); ok {
		return logger.With(slog.String(FieldRunID, id))
	}
	return logger
}
