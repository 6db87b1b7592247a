package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/spf13/cobra"

	"github.com/roach88/pxengine/internal/catalog"
	"github.com/roach88/pxengine/internal/model"
	"github.com/roach88/pxengine/internal/px"
)

// Exit codes for CLI commands.
const (
	ExitSuccess      = 0 // Successful execution
	ExitFailure      = 1 // Invalid catalog, refused purchase or refund, failed scenarios
	ExitCommandError = 2 // Bad arguments, missing database, file or entity
)

// ExitError is an error carrying the process exit code.
type ExitError struct {
	Code    int    // ExitFailure or ExitCommandError
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

// Error codes reported for failures that carry no code of their own.
const (
	ErrCodeNotFound    = "NOT_FOUND"
	ErrCodeParse       = "PARSE_ERROR"
	ErrCodeInvalidArgs = "INVALID_ARGS"
	ErrCodeGeneric     = "ERROR"
)

// OutputFormatter renders command results as JSON envelopes or text.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // Diagnostic output; keeps JSON on Writer clean. Defaults to Writer.
	Verbose   bool
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`          // "ok" or "error"
	Data   any       `json:"data,omitempty"`  // success payload, or partial results on failure
	Error  *CLIError `json:"error,omitempty"` // error details
}

// CLIError is the error part of a CLIResponse.
type CLIError struct {
	Code    string `json:"code"` // CHARACTER_NOT_FOUND, E202, ...
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// Success writes data. In text mode text renders it; a nil text prints
// data with fmt.
func (f *OutputFormatter) Success(data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		return f.encode(CLIResponse{Status: "ok", Data: data})
	}
	if text == nil {
		fmt.Fprintln(f.Writer, data)
		return nil
	}
	text(f.Writer)
	return nil
}

// Error writes an error.
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

// Failure writes a failed result that still carries data, such as the
// list of validation errors, and returns its ExitError.
func (f *OutputFormatter) Failure(code, message string, data any, text func(w io.Writer)) error {
	if f.Format == "json" {
		if err := f.encode(CLIResponse{
			Status: "error",
			Data:   data,
			Error:  &CLIError{Code: code, Message: message},
		}); err != nil {
			return err
		}
		return NewExitError(ExitFailure, message)
	}
	text(f.Writer)
	return NewExitError(ExitFailure, message)
}

// Report writes err and converts it to an ExitError. Missing entities and
// files are command errors; rejected input and refused operations are
// failures.
func (f *OutputFormatter) Report(err error) error {
	code, exit := classify(err)

	var details any
	var invalid *catalog.InvalidError
	if errors.As(err, &invalid) {
		details = invalid.Errors
	}
	if werr := f.Error(code, err.Error(), details); werr != nil {
		return werr
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	return WrapExitError(exit, code, err)
}

// classify maps an error to its reported code and exit code.
func classify(err error) (string, int) {
	code, exit := ErrCodeGeneric, ExitFailure

	var (
		invalid  *catalog.InvalidError
		parseErr *catalog.ParseError
	)
	if pxCode, ok := px.CodeOf(err); ok {
		code = string(pxCode)
		if px.IsNotFound(err) {
			exit = ExitCommandError
		}
	} else if errors.As(err, &invalid) && len(invalid.Errors) > 0 {
		code = invalid.Errors[0].Code
	} else if errors.As(err, &parseErr) {
		code = ErrCodeParse
	} else if errors.Is(err, model.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		code, exit = ErrCodeNotFound, ExitCommandError
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		exit = exitErr.Code
		if exitErr.Err == nil {
			code = ErrCodeInvalidArgs
		}
	}
	return code, exit
}

// VerboseLog writes a message only in verbose mode.
// Goes to ErrWriter when set so JSON output stays parseable.
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

func (f *OutputFormatter) encode(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
