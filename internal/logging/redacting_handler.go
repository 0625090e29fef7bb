package logging

import (
	"context"
	"log/slog"
	"regexp"
)

// RedactedPlaceholder replaces sensitive attribute values.
const RedactedPlaceholder = "[REDACTED]"

// sensitiveKey matches attribute keys that could carry raw handles, SIDs or
// credentials. The match is on whole underscore-separated words so that
// keys like "pid" or "attempt_id" pass.
var sensitiveKey = regexp.MustCompile(`(?i)(^|[_.])(token|handle|sid|buffer|secret|password|credential)s?($|[_.])`)

// IsSensitiveKey reports whether values logged under key are redacted.
func IsSensitiveKey(key string) bool {
	return sensitiveKey.MatchString(key)
}

// RedactingHandler replaces the values of sensitive attributes before
// forwarding records to the wrapped handler.
type RedactingHandler struct {
	handler slog.Handler
}

// NewRedactingHandler wraps handler.
func NewRedactingHandler(handler slog.Handler) *RedactingHandler {
	return &RedactingHandler{handler: handler}
}

// Enabled implements slog.Handler.
func (r *RedactingHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return r.handler.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (r *RedactingHandler) Handle(ctx context.Context, record slog.Record) error {
	redacted := slog.NewRecord(record.Time, record.Level, record.Message, record.PC)
	record.Attrs(func(a slog.Attr) bool {
		redacted.AddAttrs(redactAttr(a))
		return true
	})
	return r.handler.Handle(ctx, redacted)
}

// WithAttrs implements slog.Handler.
func (r *RedactingHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	redacted := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		redacted = append(redacted, redactAttr(a))
	}
	return &RedactingHandler{handler: r.handler.WithAttrs(redacted)}
}

// WithGroup implements slog.Handler.
func (r *RedactingHandler) WithGroup(name string) slog.Handler {
	return &RedactingHandler{handler: r.handler.WithGroup(name)}
}

func redactAttr(a slog.Attr) slog.Attr {
	if IsSensitiveKey(a.Key) {
		return slog.String(a.Key, RedactedPlaceholder)
	}
	v := a.Value.Resolve()
	if v.Kind() != slog.KindGroup {
		return slog.Attr{Key: a.Key, Value: v}
	}
	group := v.Group()
	redacted := make([]slog.Attr, 0, len(group))
	for _, g := range group {
		redacted = append(redacted, redactAttr(g))
	}
	return slog.Attr{Key: a.Key, Value: slog.GroupValue(redacted...)}
}
