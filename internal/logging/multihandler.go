// Package logging holds the slog handlers and error reporting helpers shared
// by the command-line tool and the console form.
package logging

import (
	"context"
	"errors"
	"log/slog"
)

// ErrNilHandler is returned when a nil handler is passed to NewMultiHandler.
var ErrNilHandler = errors.New("MultiHandler: handler must not be nil")

// MultiHandler sends each record to every handler that accepts its level.
type MultiHandler struct {
	handlers []slog.Handler
}

// NewMultiHandler creates a MultiHandler over handlers.
func NewMultiHandler(handlers ...slog.Handler) (*MultiHandler, error) {
	for _, h := range handlers {
		if h == nil {
			return nil, ErrNilHandler
		}
	}
	return &MultiHandler{handlers: handlers}, nil
}

// Enabled reports whether any handler accepts level.
func (h *MultiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range h.handlers {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

// Handle passes a clone of r to each enabled handler and joins their errors.
func (h *MultiHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, handler := range h.handlers {
		if !handler.Enabled(ctx, r.Level) {
			continue
		}
		if err := handler.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Handlers returns a copy of the wrapped handlers.
func (h *MultiHandler) Handlers() []slog.Handler {
	out := make([]slog.Handler, len(h.handlers))
	copy(out, h.handlers)
	return out
}

// WithAttrs implements slog.Handler.
func (h *MultiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithAttrs(attrs) })
}

// WithGroup implements slog.Handler.
func (h *MultiHandler) WithGroup(name string) slog.Handler {
	return h.derive(func(handler slog.Handler) slog.Handler { return handler.WithGroup(name) })
}

func (h *MultiHandler) derive(fn func(slog.Handler) slog.Handler) *MultiHandler {
	out := make([]slog.Handler, len(h.handlers))
	for i, handler := range h.handlers {
		out[i] = fn(handler)
	}
	return &MultiHandler{handlers: out}
}
