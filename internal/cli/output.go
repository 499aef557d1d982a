package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
)

// Process exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // parse failure, link conflict, invalid registry, --fail-on-drift
	ExitCommandError = 2 // bad flags, unreadable input, unusable config or registry
)

// ExitError carries the process exit code for a failed command. Commands
// report the failure through OutputFormatter.Error first, so Execute does
// not print ExitErrors again.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *ExitError) Unwrap() error { return e.Err }

// NewExitError returns an ExitError without a cause.
func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

// WrapExitError returns an ExitError caused by err.
func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode maps err to a process exit code. Errors that are not
// ExitErrors exit with ExitFailure.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	if exitErr := (*ExitError)(nil); errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

// textRenderer is implemented by command results with a human-readable form.
type textRenderer interface {
	RenderText(w io.Writer)
}

// OutputFormatter writes command results as text or as a JSON envelope.
// Diagnostics go to ErrWriter so they never mix with JSON on Writer.
type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

// CLIResponse is the JSON envelope of every command.
type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

// CLIError is the error half of CLIResponse. Code is an engine error code
// (PARSE_FAILED, LINK_CONFLICT, ...) or a CLI one (READ_ERROR, CONFIG_ERROR).
type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (f *OutputFormatter) isJSON() bool { return f.Format == "json" }

func (f *OutputFormatter) emit(resp CLIResponse) error {
	enc := json.NewEncoder(f.Writer)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}

// Success writes data. Text output uses RenderText when data has one.
func (f *OutputFormatter) Success(data any) error {
	if f.isJSON() {
		return f.emit(CLIResponse{Status: "ok", Data: data})
	}
	switch v := data.(type) {
	case textRenderer:
		v.RenderText(f.Writer)
	default:
		fmt.Fprintln(f.Writer, v)
	}
	return nil
}

// Error writes a failure. Text output shows details only when verbose.
func (f *OutputFormatter) Error(code, message string, details any) error {
	if f.isJSON() {
		return f.emit(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message, Details: details},
		})
	}

	fmt.Fprintf(f.Writer, "%s [%s]: %s\n", red("Error"), code, message)
	if f.Verbose && details != nil {
		writeDetails(f.Writer, details)
	}
	return nil
}

func writeDetails(w io.Writer, details any) {
	m, ok := details.(map[string]string)
	if !ok {
		fmt.Fprintf(w, "Details: %v\n", details)
		return
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "Details: %s=%s\n", k, m[k])
	}
}

// VerboseLog prints a diagnostic line when verbose.
func (f *OutputFormatter) VerboseLog(format string, args ...any) {
	if f.Verbose {
		fmt.Fprintf(f.diag(), format+"\n", args...)
	}
}

func (f *OutputFormatter) diag() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
