package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/roach88/jobtrail/internal/editor"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // command completed
	ExitFailure      = 1 // operation refused: record not found, id conflict, failed scenarios
	ExitCommandError = 2 // bad arguments or fields, unusable database or config
)

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code     int    // ExitFailure or ExitCommandError
	Message  string // short summary
	Err      error  // cause, may be nil
	Reported bool   // already written to the command output
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError wrapping err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// IsReported reports whether err was already written to the command output.
func IsReported(err error) bool {
	var exitErr *ExitError
	return errors.As(err, &exitErr) && exitErr.Reported
}

// GetExitCode returns the exit code carried by err, or ExitFailure.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// CLIResponse is the envelope written for --format json.
type CLIResponse struct {
	Status string      `json:"status"` // "ok" or "error"
	Data   interface{} `json:"data,omitempty"`
	Error  *CLIError   `json:"error,omitempty"`
}

// CLIError describes a failure in a CLIResponse.
type CLIError struct {
	Code    string      `json:"code"` // editor.ErrorCode, or E_* for CLI-level failures
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// OutputFormatter writes command results as text or as a JSON envelope.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics; falls back to Writer
	Verbose   bool
}

// Success writes data. Text output prints it with fmt.Println.
func (f *OutputFormatter) Success(data interface{}) error {
	if f.Format != "json" {
		_, err := fmt.Fprintln(f.Writer, data)
		return err
	}
	return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
}

// Result writes data as a JSON envelope, or calls text to render it for
// humans.
func (f *OutputFormatter) Result(data interface{}, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.Success(data)
	}
	text(f.Writer)
	return nil
}

// Error writes a failure. Details are shown in text mode only with --verbose.
func (f *OutputFormatter) Error(code, message string, details interface{}) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	if f.Verbose && details != nil {
		fmt.Fprintf(f.Writer, "Details: %v\n", details)
	}
	return nil
}

// Fail reports an editor error in the configured format and returns an
// ExitError carrying its exit code.
func (f *OutputFormatter) Fail(err error) error {
	code := editor.Code(err)
	if werr := f.Error(string(code), err.Error(), nil); werr != nil {
		return werr
	}
	return &ExitError{Code: exitCodeFor(code), Message: string(code), Err: err, Reported: true}
}

// exitCodeFor maps input errors and storage failures to ExitCommandError and
// refused operations to ExitFailure.
func exitCodeFor(code editor.ErrorCode) int {
	switch code {
	case editor.CodeInvalidField, editor.CodeImmutableID, editor.CodeProvisionalIDSupplied,
		editor.CodeNotProvisional, editor.CodeInvalidServerID, editor.CodeUnknownCollection,
		editor.CodeUnknownIndex, editor.CodeStorage:
		return ExitCommandError
	}
	return ExitFailure
}

// VerboseLog writes a diagnostic line when --verbose is set. It goes to
// ErrWriter so JSON output stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...interface{}) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}
