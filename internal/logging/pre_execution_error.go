package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// ErrorType classifies failures that happen before an elevation attempt.
type ErrorType string

const (
	// ErrorTypeConfigParsing represents configuration file failures
	ErrorTypeConfigParsing ErrorType = "config_parsing_failed"
	// ErrorTypeLogFileOpen represents log setup failures
	ErrorTypeLogFileOpen ErrorType = "log_file_open_failed"
	// ErrorTypeInvalidArguments represents command-line usage errors
	ErrorTypeInvalidArguments ErrorType = "invalid_arguments"
	// ErrorTypeUnsupportedPlatform represents running on a non-Windows host
	ErrorTypeUnsupportedPlatform ErrorType = "unsupported_platform"
	// ErrorTypeUserInterrupted represents a cancelled run
	ErrorTypeUserInterrupted ErrorType = "user_interrupted"
	// ErrorTypeSystemError represents any other failure
	ErrorTypeSystemError ErrorType = "system_error"
)

// PreExecutionError is a failure that prevents any elevation attempt.
type PreExecutionError struct {
	Type      ErrorType
	Message   string
	Component string
	RunID     string
	Err       error
}

// Error implements the error interface
func (e *PreExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v (component: %s, run_id: %s)", e.Type, e.Message, e.Err, e.Component, e.RunID)
	}
	return fmt.Sprintf("%s: %s (component: %s, run_id: %s)", e.Type, e.Message, e.Component, e.RunID)
}

// Unwrap implements error wrapping for errors.Unwrap
func (e *PreExecutionError) Unwrap() error {
	return e.Err
}

// HandlePreExecutionError reports a pre-execution failure on stderr and
// through the default logger.
func HandlePreExecutionError(errorType ErrorType, errorMsg, component, runID string) {
	writePreExecutionError(os.Stderr, errorType, errorMsg, component, runID)

	slog.Error("Pre-execution error occurred",
		"error_type", string(errorType),
		"error_message", errorMsg,
		"component", component,
		"run_id", runID,
	)
}

// writePreExecutionError builds the report in one buffer so that it is
// written with a single call.
func writePreExecutionError(w io.Writer, errorType ErrorType, errorMsg, component, runID string) {
	var sb strings.Builder
	sb.WriteString(ErrorMessage(errorMsg))
	sb.WriteByte('\n')
	fmt.Fprintf(&sb, "  Type: %s\n", errorType)
	if component != "" {
		fmt.Fprintf(&sb, "  Component: %s\n", component)
	}
	if runID != "" {
		fmt.Fprintf(&sb, "  Run ID: %s\n", runID)
	}
	_, _ = io.WriteString(w, sb.String())
}
