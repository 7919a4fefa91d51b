package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/roach88/setpoint/internal/generate"
	"github.com/roach88/setpoint/internal/option"
)

// Process exit codes.
const (
	ExitSuccess      = 0 // clean run
	ExitFailure      = 1 // schema, validation, authoring, or size failure
	ExitCommandError = 2 // bad flags, missing paths, everything unclassified
)

// Stable error codes rendered in both output formats. The E1xx family
// maps one-to-one onto the domain error classes.
const (
	ErrCodeGeneric     = "E001" // unclassified error
	ErrCodeNotFound    = "E002" // path does not exist
	ErrCodeWriteFailed = "E003" // output could not be written

	ErrCodeSchema     = "E101" // malformed schema or non-conforming default
	ErrCodeValidation = "E102" // values failed schema validation
	ErrCodeAuthoring  = "E103" // authoring tree structure violation
	ErrCodeSize       = "E104" // artifact over the size ceiling
)

// ExitError couples a command failure with the process exit code it
// should produce.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
	Message string // rendered message
	Err     error  // wrapped cause, may be nil
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

// NewExitError builds an ExitError without a wrapped cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError attaches an exit code and message to err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode extracts the exit code from an error. A nil error is
// success; an error that is not an ExitError is a command error, which
// covers flag and argument parse failures surfaced by cobra.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// classifyError maps a domain error to its CLI error code and exit code.
// Schema, validation, authoring, and size failures exit 1; missing paths
// and anything unrecognized exit 2.
func classifyError(err error) (code string, exit int) {
	switch {
	case option.IsSchemaError(err):
		return ErrCodeSchema, ExitFailure
	case option.IsValidationError(err):
		return ErrCodeValidation, ExitFailure
	case generate.IsAuthoringError(err):
		return ErrCodeAuthoring, ExitFailure
	case generate.IsSizeError(err):
		return ErrCodeSize, ExitFailure
	case errors.Is(err, fs.ErrNotExist):
		return ErrCodeNotFound, ExitCommandError
	default:
		return ErrCodeGeneric, ExitCommandError
	}
}

// OutputFormatter renders command results as JSON envelopes or plain
// text, per the --format flag.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostic writer; Writer when nil
	Verbose   bool
}

// CLIResponse is the envelope every command emits in json format.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the machine-readable error half of the envelope.
type CLIError struct {
	Code    string `json:"code"`              // "E001", "E101", etc.
	Message string `json:"message"`           // human-readable message
	Details any    `json:"details,omitempty"` // additional context
}

// Success renders data as an ok envelope, or as plain text.
func (f *OutputFormatter) Success(data any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error renders an error envelope, or a one-line text form with details
// appended when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{
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

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}

// VerboseLog prints a diagnostic line when verbose is on. Diagnostics go
// to ErrWriter so a json-format Writer stays parseable.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

// fail reports err in the configured format and converts it to an
// ExitError whose message carries the error code.
func fail(f *OutputFormatter, err error) error {
	code, exit := classifyError(err)
	_ = f.Error(code, err.Error(), nil)
	return NewExitError(exit, fmt.Sprintf("%s: %s", code, err.Error()))
}

// failCode is fail with an explicit code and exit code, for errors that
// do not classify on their own.
func failCode(f *OutputFormatter, code string, exit int, message string) error {
	_ = f.Error(code, message, nil)
	return NewExitError(exit, fmt.Sprintf("%s: %s", code, message))
}
