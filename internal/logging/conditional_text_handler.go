package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/isseis/go-ti-runner/internal/terminal"
)

// Static errors for ConditionalTextHandler validation
var (
	ErrConditionalTextHandlerCapabilitiesRequired = errors.New("ConditionalTextHandler: Capabilities is required")
	ErrConditionalTextHandlerWriterRequired       = errors.New("ConditionalTextHandler: Writer is required")
)

// ConditionalTextHandler writes slog text lines only when the console is not
// interactive, e.g. when output is redirected to a file or a CI log. The
// ConsoleHandler covers the interactive case.
type ConditionalTextHandler struct {
	capabilities terminal.Capabilities
	text         slog.Handler
}

// ConditionalTextHandlerOptions configures a ConditionalTextHandler.
type ConditionalTextHandlerOptions struct {
	Capabilities       terminal.Capabilities
	TextHandlerOptions *slog.HandlerOptions
	Writer             io.Writer
}

// NewConditionalTextHandler creates a ConditionalTextHandler.
func NewConditionalTextHandler(opts ConditionalTextHandlerOptions) (*ConditionalTextHandler, error) {
	if opts.Capabilities == nil {
		return nil, ErrConditionalTextHandlerCapabilitiesRequired
	}
	if opts.Writer == nil {
		return nil, ErrConditionalTextHandlerWriterRequired
	}
	return &ConditionalTextHandler{
		capabilities: opts.Capabilities,
		text:         slog.NewTextHandler(opts.Writer, opts.TextHandlerOptions),
	}, nil
}

// Enabled implements slog.Handler.
func (h *ConditionalTextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return !h.capabilities.IsInteractive() && h.text.Enabled(ctx, level)
}

// Handle implements slog.Handler.
func (h *ConditionalTextHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.capabilities.IsInteractive() {
		return nil
	}
	return h.text.Handle(ctx, r)
}

// WithAttrs implements slog.Handler.
func (h *ConditionalTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConditionalTextHandler{capabilities: h.capabilities, text: h.text.WithAttrs(attrs)}
}

// WithGroup implements slog.Handler.
func (h *ConditionalTextHandler) WithGroup(name string) slog.Handler {
	return &ConditionalTextHandler{capabilities: h.capabilities, text: h.text.WithGroup(name)}
}
