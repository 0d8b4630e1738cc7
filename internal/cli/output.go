package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/conform/internal/harness"
	"github.com/roach88/conform/internal/invoke"
	"github.com/roach88/conform/internal/suite"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // All selected cases passed or were skipped
	ExitFailure      = 1 // One or more cases failed
	ExitCommandError = 2 // Configuration error (subject or checker missing, bad suite, bad flags)
)

// Error codes reported in JSON responses.
const (
	CodeConfig    = "E001" // invalid flags, env or config file
	CodeSuite     = "E002" // suite unreadable or invalid
	CodeSubject   = "E003" // subject binary not found or not runnable
	CodeTool      = "E004" // memory checker or runner missing
	CodeSelection = "E005" // bad index selection
	CodeHistory   = "E006" // history database problem
	CodeFailed    = "E100" // one or more cases failed
)

// ExitError represents an error with a specific exit code.
type ExitError struct {
	Code    int    // Exit code (use ExitFailure or ExitCommandError)
	Message string // Error message
	Err     error  // Underlying error (optional)
}

func (e *ExitError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given code and message.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError wraps an existing error with an exit code.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error.
// Returns ExitSuccess for nil and ExitFailure if the error is not an ExitError.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// errorCode classifies a configuration error for JSON output.
func errorCode(err error) string {
	var loadErr *suite.LoadError
	switch {
	case errors.As(err, &loadErr):
		return CodeSuite
	case errors.Is(err, invoke.ErrSubjectNotFound):
		return CodeSubject
	case errors.Is(err, invoke.ErrCheckerNotFound), errors.Is(err, invoke.ErrRunnerNotFound):
		return CodeTool
	case errors.Is(err, harness.ErrSelection):
		return CodeSelection
	default:
		return CodeConfig
	}
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for diagnostic output (defaults to Writer)
	Verbose   bool
}

// CLIResponse is the standard JSON response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status"`           // "ok", "failed" or "error"
	Data   any       `json:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty"`  // error details
	RunID  string    `json:"run_id,omitempty"` // history record, when enabled
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E002", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}

	fmt.Fprintln(f.Writer, data)
	return nil
}

// Report outputs a run report. Text output has already been streamed by the
// harness printer, so only JSON is written here.
func (f *OutputFormatter) Report(report *harness.Report) error {
	if f.Format != "json" {
		return nil
	}
	resp := CLIResponse{Status: "ok", Data: report, RunID: report.RunID}
	if report.Failed > 0 {
		resp.Status = "failed"
		resp.Error = &CLIError{
			Code:    CodeFailed,
			Message: fmt.Sprintf("%d of %d tests failed", report.Failed, report.Total),
		}
	}
	return f.encode(resp)
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
			Status: "error",
			Error: &CLIError{
				Code:    code,
				Message: message,
				Details: details,
			},
		})
	}

	fmt.Fprintf(f.GetErrWriter(), "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.GetErrWriter(), "Details: %v\n", details)
	}
	return nil
}

// Fail reports a configuration error and returns it as an ExitError with
// ExitCommandError. In text mode the message is left to the caller's error
// handler to avoid printing it twice.
func (f *OutputFormatter) Fail(message string, err error) error {
	if f.Format == "json" {
		_ = f.Error(errorCode(err), message, err.Error())
	}
	return WrapExitError(ExitCommandError, message, err)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
