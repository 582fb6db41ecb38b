package logging

import (
	"context"
	"log/slog"

	"visiogen/internal/services"
)

const (
	// FieldComponent names the package emitting a log line.
	FieldComponent = "component"
	// FieldRunID carries the pipeline run identifier.
	FieldRunID = "run_id"
	// FieldStage carries the pipeline stage name.
	FieldStage = "stage"
	// FieldEventType classifies a log line for filtering (stage_start, word_count_mismatch, ...).
	FieldEventType = "event_type"
	// FieldErrorHint tells the operator what to check next.
	FieldErrorHint = "error_hint"
)

// ContextFields extracts run id and stage from ctx.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := services.RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if stage, ok := services.StageFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldStage, stage))
	}
	return fields
}

// WithStage annotates ctx with the stage name used by ContextFields.
func WithStage(ctx context.Context, stage string) context.Context {
	return services.WithStage(ctx, stage)
}

// WithContext returns logger tagged with the run id and stage found in ctx.
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
