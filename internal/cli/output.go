package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/vmihailenco/msgpack/v5"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Query or scenario failure
	ExitCommandError = 2 // Command error (invalid paths, bad config, etc.)
)

// Error codes reported in CLIError.Code.
const (
	ErrCodeGeneric      = "E001" // Generic/unknown error
	ErrCodeNotFound     = "E002" // Path not found
	ErrCodeConfig       = "E003" // Config or flag error
	ErrCodeSchemaLoad   = "E004" // Schema file or introspection error
	ErrCodeQueryLoad    = "E005" // Query definition error
	ErrCodeBuildFailed  = "E006" // Join graph or SQL build error
	ErrCodeConnect      = "E007" // Database open error
	ErrCodeExecute      = "E008" // Query execution or materialization error
	ErrCodeWriteFailed  = "E009" // Output or golden write error
	ErrCodeTestFailed   = "E010" // One or more scenarios failed
	ErrCodeNoConnection = "E011" // Command needs a database but none is configured
)

// ExitError represents an error with a specific exit code.
// Use this to return errors with meaningful exit codes from CLI commands.
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
// Returns ExitFailure (1) if the error is not an ExitError.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// OutputFormatter renders command results as text, JSON or msgpack.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Separate writer for verbose/diagnostic output (defaults to Writer)
	Verbose   bool
	RunID     string
}

// CLIResponse is the standard structured response format for CLI output.
type CLIResponse struct {
	Status string    `json:"status" msgpack:"status"`                   // "ok" or "error"
	Data   any       `json:"data,omitempty" msgpack:"data,omitempty"`   // success payload
	Error  *CLIError `json:"error,omitempty" msgpack:"error,omitempty"` // error details
	RunID  string    `json:"run_id,omitempty" msgpack:"run_id,omitempty"`
}

// CLIError is the error structure for CLI responses.
type CLIError struct {
	Code    string `json:"code" msgpack:"code"`                           // "E001", "E002", etc.
	Message string `json:"message" msgpack:"message"`                     // human-readable message
	Details any    `json:"details,omitempty" msgpack:"details,omitempty"` // additional context
}

// Success outputs a successful result in the configured format. text is
// written in text mode; data is encoded otherwise. Data handed to msgpack
// must be made of plain Go values.
func (f *OutputFormatter) Success(text string, data any) error {
	return f.write(CLIResponse{Status: "ok", Data: data, RunID: f.RunID}, func(w io.Writer) {
		fmt.Fprintln(w, text)
	})
}

// Error outputs an error in the configured format.
func (f *OutputFormatter) Error(code, message string, details any) error {
	resp := CLIResponse{
		Status: "error",
		Error:  &CLIError{Code: code, Message: message, Details: details},
		RunID:  f.RunID,
	}
	return f.write(resp, func(w io.Writer) {
		fmt.Fprintf(w, "Error [%s]: %s\n", code, message)
		if f.Verbose && details != nil {
			fmt.Fprintf(w, "Details: %v\n", details)
		}
	})
}

func (f *OutputFormatter) write(resp CLIResponse, text func(io.Writer)) error {
	switch f.Format {
	case "json":
		enc := json.NewEncoder(f.Writer)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	case "msgpack":
		enc := msgpack.NewEncoder(f.Writer)
		enc.SetSortMapKeys(true)
		return enc.Encode(resp)
	default:
		text(f.Writer)
		return nil
	}
}

// VerboseLog outputs a message only if verbose mode is enabled.
// Uses ErrWriter if set, otherwise falls back to Writer.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	fmt.Fprintf(f.GetErrWriter(), format+"\n", args...)
}

// GetErrWriter returns the appropriate writer for diagnostic output.
// Returns ErrWriter if set, otherwise Writer.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}

// Fail reports err in the configured format and returns an ExitError
// carrying exitCode, so that structured output stays parseable on failure.
func (f *OutputFormatter) Fail(exitCode int, code, message string, err error) error {
	var details any
	if err != nil {
		details = err.Error()
	}
	if f.Format == "text" {
		return WrapExitError(exitCode, message, err)
	}
	if werr := f.Error(code, message, details); werr != nil {
		return WrapExitError(ExitCommandError, "failed to write output", werr)
	}
	return WrapExitError(exitCode, message, err)
}
