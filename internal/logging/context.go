package logging

import (
	"context"
	"log/slog"

	"shotbridge/internal/tracking"
)

const (
	// FieldComponent is the standardized structured logging key for component names.
	FieldComponent = "component"
	// FieldSubject names the entity path a record concerns.
	FieldSubject = "subject"
	// FieldSessionID carries the connection session identifier.
	FieldSessionID = "session_id"
	// FieldRequestID carries the per-request correlation identifier.
	FieldRequestID = "request_id"
	// FieldEventType classifies a record for filtering.
	FieldEventType = "event_type"
	// FieldErrorHint suggests a next step to the operator.
	FieldErrorHint = "error_hint"
	// FieldErrorKind carries tracking.Kind of the logged error.
	FieldErrorKind = "error_kind"
)

// ContextFields extracts standardized slog attributes from the provided context.
func ContextFields(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	fields := make([]slog.Attr, 0, 2)
	if id, ok := tracking.SessionIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldSessionID, id))
	}
	if rid, ok := tracking.RequestIDFromContext(ctx); ok {
		fields = append(fields, slog.String(FieldRequestID, rid))
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

// ErrorAttrs returns the error together with its classification.
func ErrorAttrs(err error) []Attr {
	if err == nil {
		return nil
	}
	return []Attr{Error(err), String(FieldErrorKind, tracking.Kind(err))}
}
