package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/cyp0633/librecur/recurrence"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // runtime failure, e.g. the server could not start
	ExitCommandError = 2 // bad flags or rule input
)

// ExitError carries the exit code a command failed with.
type ExitError struct {
	Code    int
	Message string
	Err     error

	reported bool // already written by an OutputFormatter
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
// Returns ExitFailure if the error is not an ExitError.
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

// invalidRule marks rule validation failures as command errors.
func invalidRule(err error) error {
	return WrapExitError(ExitCommandError, "invalid rule", err)
}

// OutputFormatter handles JSON vs text output for CLI commands.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose output, kept off Writer so JSON stays parseable
	Verbose   bool
}

// CLIResponse is the JSON envelope for every command.
type CLIResponse struct {
	Status string    `json:"status"` // "ok" or "error"
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func newFormatter(opts *RootOptions, out, errOut io.Writer) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    out,
		ErrWriter: errOut,
		Verbose:   opts.Verbose,
	}
}

// Success writes data as JSON, or calls text to render it.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	text(f.Writer)
	return nil
}

// Fail reports err in the configured format and returns it as an
// ExitError so main can pick the exit code.
func (f *OutputFormatter) Fail(err error) error {
	code := GetExitCode(err)
	if f.Format == "json" {
		cliErr := &CLIError{Code: errorCode(code), Message: err.Error()}
		var verr *recurrence.ValidationError
		if errors.As(err, &verr) {
			cliErr.Field = verr.Field
		}
		if encErr := json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "error", Error: cliErr}); encErr != nil {
			return encErr
		}
	} else {
		fmt.Fprintln(f.ErrWriter, "error:", err)
	}

	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		exitErr = WrapExitError(code, "command failed", err)
	}
	exitErr.reported = true
	return exitErr
}

func errorCode(exit int) string {
	if exit == ExitCommandError {
		return "invalid_input"
	}
	return "failure"
}

// VerboseLog writes a diagnostic line when --verbose is set.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.ErrWriter, format+"\n", args...)
}
