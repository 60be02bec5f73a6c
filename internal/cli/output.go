package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"commerce3d/api/internal/client"
)

const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the server rejected the request
	ExitCommandError = 2 // bad flags, unreachable server, local I/O
)

type ExitError struct {
	Code    int
	Message string
	Err     error
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

func NewExitError(code int, message string) *ExitError {
	return &ExitError{Code: code, Message: message}
}

func WrapExitError(code int, message string, err error) *ExitError {
	return &ExitError{Code: code, Message: message, Err: err}
}

// GetExitCode returns ExitFailure for errors that carry no code.
func GetExitCode(err error) int {
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitFailure
}

type OutputFormatter struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer
	Verbose   bool
}

type CLIResponse struct {
	Status string    `json:"status"`
	Data   any       `json:"data,omitempty"`
	Error  *CLIError `json:"error,omitempty"`
}

type CLIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Success prints text in text mode and data in json mode.
func (f *OutputFormatter) Success(text string, data any) error {
	if f.Format == "json" {
		return json.NewEncoder(f.Writer).Encode(CLIResponse{Status: "ok", Data: data})
	}
	_, err := fmt.Fprint(f.Writer, text)
	return err
}

// Fail reports err and converts it into an ExitError.
func (f *OutputFormatter) Fail(err error, fallback string) error {
	code, message, exit := classify(err, fallback)
	if f.Format == "json" {
		_ = json.NewEncoder(f.Writer).Encode(CLIResponse{
			Status: "error",
			Error:  &CLIError{Code: code, Message: message},
		})
	} else {
		fmt.Fprintf(f.Writer, "Error [%s]: %s\n", code, message)
	}
	return WrapExitError(exit, message, err)
}

func classify(err error, fallback string) (code, message string, exit int) {
	var apiErr *client.APIError
	switch {
	case errors.As(err, &apiErr):
		code = apiErr.Code
		if code == "" {
			code = fmt.Sprintf("HTTP_%d", apiErr.Status)
		}
		return code, apiErr.Message, ExitFailure
	case errors.Is(err, client.ErrNetwork):
		return "NETWORK_ERROR", fallback, ExitCommandError
	default:
		return "ERROR", fallback, ExitCommandError
	}
}

// GetErrWriter returns ErrWriter, or Writer when none is set.
func (f *OutputFormatter) GetErrWriter() io.Writer {
	if f.ErrWriter != nil {
		return f.ErrWriter
	}
	return f.Writer
}
