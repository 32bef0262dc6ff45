package logging

import (
	"context"
	"log/slog"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldRunID identifies one batch or clean invocation.
	FieldRunID = "run_id"
	// FieldPass names the similarity pass (light, deep, loose).
	FieldPass = "pass"
	// FieldColumn names the table column being cleaned.
	FieldColumn = "column"
	// FieldFile is the input file a record relates to.
	FieldFile = "file"
)

type contextKey int

const (
	runIDKey contextKey = iota
	passKey
	fileKey
)

// WithRunID tags ctx with a run identifier.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey, id)
}

// WithPass tags ctx with a pass name.
func WithPass(ctx context.Context, pass string) context.Context {
	return context.WithValue(ctx, passKey, pass)
}

// WithFile tags ctx with an input file.
func WithFile(ctx context.Context, file string) context.Context {
	return context.WithValue(ctx, fileKey, file)
}

// RunIDFromContext returns the run identifier stored by WithRunID.
func RunIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(runIDKey).(string)
	return id, ok && id != ""
}

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 3)
	if id, ok := RunIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRunID, id))
	}
	if pass, ok := ctx.Value(passKey).(string); ok && pass != "" {
		fields = append(fields, slog.String(FieldPass, pass))
	}
	if file, ok := ctx.Value(fileKey).(string); ok && file != "" {
		fields = append(fields, slog.String(FieldFile, file))
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
