package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/isseis/go-ti-runner/internal/color"
	"github.com/isseis/go-ti-runner/internal/terminal"
)

// Static errors for ConsoleHandler validation
var (
	ErrConsoleHandlerWriterRequired       = errors.New("ConsoleHandler: Writer is required")
	ErrConsoleHandlerCapabilitiesRequired = errors.New("ConsoleHandler: Capabilities is required")
)

// consoleKeys are the attributes worth showing to a person, in display order.
var consoleKeys = []string{"error", "path", "priority", "pid", "privilege", "stage"}

// ConsoleHandler prints short status lines such as "[+] Elevated process
// started pid=42" to an interactive console.
type ConsoleHandler struct {
	mu           *sync.Mutex
	writer       io.Writer
	capabilities terminal.Capabilities
	level        slog.Leveler
	logFile      string
	attrs        []slog.Attr
	prefix       string
}

// ConsoleHandlerOptions configures a ConsoleHandler.
type ConsoleHandlerOptions struct {
	Level        slog.Leveler
	Writer       io.Writer
	Capabilities terminal.Capabilities
	// LogFile, when set, is mentioned after error lines.
	LogFile string
}

// NewConsoleHandler creates a ConsoleHandler.
func NewConsoleHandler(opts ConsoleHandlerOptions) (*ConsoleHandler, error) {
	if opts.Writer == nil {
		return nil, ErrConsoleHandlerWriterRequired
	}
	if opts.Capabilities == nil {
		return nil, ErrConsoleHandlerCapabilitiesRequired
	}
	level := opts.Level
	if level == nil {
		level = slog.LevelInfo
	}
	return &ConsoleHandler{
		mu:           &sync.Mutex{},
		writer:       opts.Writer,
		capabilities: opts.Capabilities,
		level:        level,
		logFile:      opts.LogFile,
	}, nil
}

// Enabled implements slog.Handler.
func (h *ConsoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return h.capabilities.IsInteractive() && level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *ConsoleHandler) Handle(_ context.Context, r slog.Record) error {
	if !h.capabilities.IsInteractive() {
		return nil
	}
	palette := color.NewPalette(h.capabilities.SupportsColor())

	var sb strings.Builder
	sb.WriteString(FormatConsoleRecord(r, h.attrs, palette))
	sb.WriteByte('\n')
	if r.Level >= slog.LevelError && h.logFile != "" {
		sb.WriteString(palette.Detail("    details: " + h.logFile))
		sb.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.writer, sb.String())
	return err
}

// WithAttrs implements slog.Handler.
func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	clone := *h
	clone.attrs = make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	clone.attrs = append(clone.attrs, h.attrs...)
	for _, a := range attrs {
		clone.attrs = append(clone.attrs, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return &clone
}

// WithGroup implements slog.Handler.
func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.prefix = h.prefix + name + "."
	return &clone
}

// FormatConsoleRecord renders r as a marker, the message and the attributes
// listed in consoleKeys. Group prefixes are ignored when matching keys, and
// record attributes win over handlerAttrs.
func FormatConsoleRecord(r slog.Record, handlerAttrs []slog.Attr, palette color.Palette) string {
	var sb strings.Builder
	sb.WriteString(levelMarker(r.Level, palette))
	sb.WriteByte(' ')
	sb.WriteString(r.Message)

	found := make(map[string]slog.Value)
	collect := func(a slog.Attr) {
		key := a.Key
		if i := strings.LastIndexByte(key, '.'); i >= 0 {
			key = key[i+1:]
		}
		if _, seen := found[key]; !seen {
			found[key] = a.Value
		}
	}
	r.Attrs(func(a slog.Attr) bool {
		collect(a)
		return true
	})
	for _, a := range handlerAttrs {
		collect(a)
	}

	for _, key := range consoleKeys {
		if v, ok := found[key]; ok {
			sb.WriteByte(' ')
			sb.WriteString(palette.Detail(key + "=" + formatValue(v)))
		}
	}
	return sb.String()
}

func levelMarker(level slog.Level, palette color.Palette) string {
	switch {
	case level >= slog.LevelError:
		return palette.Failure("[-]")
	case level >= slog.LevelWarn:
		return palette.Warning("[!]")
	case level >= slog.LevelInfo:
		return palette.Success("[+]")
	default:
		return palette.Detail("[*]")
	}
}

func formatValue(v slog.Value) string {
	v = v.Resolve()
	switch v.Kind() {
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	case slog.KindDuration:
		return v.Duration().String()
	default:
		return v.String()
	}
}
