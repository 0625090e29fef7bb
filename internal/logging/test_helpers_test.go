package logging

import (
	"context"
	"log/slog"
	"time"
)

type stubCapabilities struct {
	interactive bool
	color       bool
}

func (s stubCapabilities) IsInteractive() bool             { return s.interactive }
func (s stubCapabilities) AcceptsInput() bool              { return s.interactive }
func (s stubCapabilities) SupportsColor() bool             { return s.color }
func (s stubCapabilities) HasExplicitUserPreference() bool { return false }

// recordingHandler stores every record it handles.
type recordingHandler struct {
	level   slog.Level
	records []slog.Record
	err     error
}

func (h *recordingHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *recordingHandler) Handle(_ context.Context, r slog.Record) error {
	h.records = append(h.records, r)
	return h.err
}

func (h *recordingHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h *recordingHandler) WithGroup(string) slog.Handler      { return h }

func newRecord(level slog.Level, msg string, attrs ...slog.Attr) slog.Record {
	r := slog.NewRecord(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), level, msg, 0)
	r.AddAttrs(attrs...)
	return r
}
