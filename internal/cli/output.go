package cli

import (
	"encoding/json"
	"fmt"
	"io"
)

// Formatter handles JSON vs text output for CLI commands.
type Formatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // verbose/diagnostic output, kept off stdout in JSON mode
	Verbose   bool
}

// Response is the standard JSON envelope for CLI output.
type Response struct {
	Status string         `json:"status"` // "ok" or "error"
	Data   any            `json:"data,omitempty"`
	Error  *ResponseError `json:"error,omitempty"`
}

// ResponseError carries a machine-readable failure.
type ResponseError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success outputs a successful result in the configured format. In text
// mode data is printed with its %v rendering unless it implements
// fmt.Stringer.
func (f *Formatter) Success(data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(Response{Status: "ok", Data: data})
	}
	fmt.Fprintln(f.Writer, data)
	return nil
}

// Error outputs an error in the configured format and returns a non-nil
// error so the command exits non-zero.
func (f *Formatter) Error(code, message string) error {
	if f.Format == "json" {
		if err := json.NewEncoder(f.Writer).Encode(Response{
			Status: "error",
			Error:  &ResponseError{Code: code, Message: message},
		}); err != nil {
			return err
		}
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	}
	return fmt.Errorf("%s: %s", code, message)
}

// VerboseLog writes a diagnostic line when verbose mode is on.
func (f *Formatter) VerboseLog(format string, args ...any) {
	if !f.Verbose {
		return
	}
	w := f.ErrWriter
	if w == nil {
		w = f.Writer
	}
	fmt.Fprintf(w, format+"\n", args...)
}

func newFormatter(opts *RootOptions, cmd interface {
	OutOrStdout() io.Writer
	ErrOrStderr() io.Writer
}) *Formatter {
	return &Formatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
}

// Error code constants shared across commands.
const (
	ErrCodeGeneric  = "E001" // unclassified failure
	ErrCodeConfig   = "E002" // config load failure
	ErrCodeCache    = "E003" // schema cache failure
	ErrCodeSchema   = "E004" // schema load/decode failure
	ErrCodeCSV      = "E005" // csv read failure
	ErrCodeIntent   = "E006" // intent decode failure
	ErrCodeCompile  = "E007" // compilation failure
	ErrCodeNotFound = "E008" // keyspace or concept not found
)
