package logging

import (
	"context"
	"log/slog"
	"strings"
)

// Redacted replaces secret values in log output.
const Redacted = "[REDACTED]"

var sensitiveKeys = []string{"api_key", "apikey", "ftrack-api-key", "password", "secret", "token"}

// IsSensitiveKey reports whether values logged under key must be masked.
func IsSensitiveKey(key string) bool {
	lowered := strings.ToLower(key)
	if idx := strings.LastIndexByte(lowered, '.'); idx >= 0 {
		lowered = lowered[idx+1:]
	}
	for _, candidate := range sensitiveKeys {
		if lowered == candidate || strings.HasSuffix(lowered, "_"+candidate) {
			return true
		}
	}
	return false
}

// redactHandler masks sensitive attributes before they reach any sink.
type redactHandler struct {
	next slog.Handler
}

func newRedactHandler(next slog.Handler) slog.Handler {
	if next == nil {
		return NoopHandler{}
	}
	return &redactHandler{next: next}
}

func (h *redactHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level)
}

func (h *redactHandler) Handle(ctx context.Context, record slog.Record) error {
	clean := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(attr slog.Attr) bool {
		clean.AddAttrs(redactAttr(attr))
		return true
	})
	return h.next.Handle(ctx, clean)
}

func (h *redactHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	cleaned := make([]slog.Attr, len(attrs))
	for i, attr := range attrs {
		cleaned[i] = redactAttr(attr)
	}
	return &redactHandler{next: h.next.WithAttrs(cleaned)}
}

func (h *redactHandler) WithGroup(name string) slog.Handler {
	return &redactHandler{next: h.next.WithGroup(name)}
}

func redactAttr(attr slog.Attr) slog.Attr {
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		members := value.Group()
		cleaned := make([]any, len(members))
		for i, member := range members {
			cleaned[i] = redactAttr(member)
		}
		return slog.Group(attr.Key, cleaned...)
	}
	if IsSensitiveKey(attr.Key) {
		return slog.String(attr.Key, Redacted)
	}
	attr.Value = value
	return attr
}
