// Package console implements the interactive form used when tirun starts
// without arguments on a terminal.
package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/isseis/go-ti-runner/internal/color"
	"github.com/isseis/go-ti-runner/internal/elevation"
	"github.com/isseis/go-ti-runner/internal/logging"
	"github.com/isseis/go-ti-runner/internal/priority"
)

// Messages shown by the form.
const (
	ReadyMessage   = "tirun initialized. Ready to run executables as TrustedInstaller."
	ClearedMessage = "Log cleared. Ready for new operations."
	GoodbyeMessage = "Bye."
)

// clearCommand resets the log view instead of naming a path.
const clearCommand = ":clear"

// ansiClear clears the screen and moves the cursor home.
const ansiClear = "\x1b[H\x1b[2J"

// Requester runs one elevation request and reports it on the transcript.
type Requester interface {
	Run(ctx context.Context, path string, level priority.Level) (elevation.Result, error)
}

// Form prompts for a path and a priority until the path is left empty or
// input ends.
type Form struct {
	in           *bufio.Scanner
	out          io.Writer
	requester    Requester
	defaultLevel priority.Level
	palette      color.Palette
	clearScreen  bool
}

// FormOptions configures a Form.
type FormOptions struct {
	DefaultLevel priority.Level
	// Color enables colored prompts and screen clearing.
	Color bool
}

// NewForm creates a Form reading from in and writing to out.
func NewForm(in io.Reader, out io.Writer, requester Requester, opts FormOptions) *Form {
	level := opts.DefaultLevel
	if level.Validate() != nil {
		level = priority.Default
	}
	return &Form{
		in:           bufio.NewScanner(in),
		out:          out,
		requester:    requester,
		defaultLevel: level,
		palette:      color.NewPalette(opts.Color),
		clearScreen:  opts.Color,
	}
}

// Stats counts the requests made through the form.
type Stats struct {
	Succeeded int
	Failed    int
}

// Run shows the form until the user quits. It returns ctx.Err() when ctx is
// cancelled between requests and nil on a normal quit.
func (f *Form) Run(ctx context.Context) (Stats, error) {
	var stats Stats
	f.println(ReadyMessage)
	f.printLevels()

	for {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		path, ok := f.prompt("Executable path (empty to quit): ")
		if !ok || path == "" {
			f.println(GoodbyeMessage)
			return stats, f.in.Err()
		}
		if path == clearCommand {
			f.clear()
			continue
		}

		level, ok := f.readLevel()
		if !ok {
			f.println(GoodbyeMessage)
			return stats, f.in.Err()
		}
		if level == 0 {
			continue
		}

		_, err := f.requester.Run(ctx, path, level)
		switch {
		case err == nil:
			stats.Succeeded++
		case errors.Is(err, context.Canceled):
			return stats, err
		default:
			stats.Failed++
		}
		f.println("")
	}
}

// readLevel returns 0 after reporting an invalid entry and false at end of
// input.
func (f *Form) readLevel() (priority.Level, bool) {
	answer, ok := f.prompt(fmt.Sprintf("Priority [1-6, default %s]: ", f.defaultLevel.Describe()))
	if !ok {
		return 0, false
	}
	if answer == "" {
		return f.defaultLevel, true
	}
	level, err := priority.Parse(answer)
	if err != nil {
		f.println(f.palette.Failure(logging.FailureLine(logging.ErrorMessage("invalid priority value: " + err.Error()))))
		return 0, true
	}
	return level, true
}

func (f *Form) prompt(label string) (string, bool) {
	_, _ = io.WriteString(f.out, f.palette.Heading(label))
	if !f.in.Scan() {
		_, _ = io.WriteString(f.out, "\n")
		return "", false
	}
	return strings.TrimSpace(f.in.Text()), true
}

func (f *Form) printLevels() {
	names := make([]string, 0, len(priority.All()))
	for _, level := range priority.All() {
		names = append(names, level.Describe())
	}
	f.println(f.palette.Detail("Priorities: " + strings.Join(names, ", ")))
}

func (f *Form) clear() {
	if f.clearScreen {
		_, _ = io.WriteString(f.out, ansiClear)
	}
	f.println(ClearedMessage)
}

func (f *Form) println(line string) {
	_, _ = fmt.Fprintln(f.out, line)
}
