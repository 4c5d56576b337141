package logging

import (
	"context"
	"log/slog"

	"github.com/lbbniu/jimeng-tts/internal/services"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldEntryID is the standardized structured logging key for storyboard entry identifiers.
	FieldEntryID = "entry_id"
	// FieldAttempt is the standardized structured logging key for 1-based submission attempts.
	FieldAttempt = "attempt"
	// FieldKind is the standardized structured logging key for artifact kinds.
	FieldKind = "kind"
	// FieldModel is the standardized structured logging key for generation model ids.
	FieldModel = "model"
	// FieldTaskID is the standardized structured logging key for provider task identifiers.
	FieldTaskID = "task_id"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := services.EntryIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldEntryID, id))
	}
	if attempt, ok := services.AttemptFromContext(ctx); ok {
		fields = append(fields, slog.Int(FieldAttempt, attempt))
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
	return logger.With(attrsToArgs(fields)...)
}
