package cli

import (
	"errors"
	"fmt"

	"github.com/fractalscope/fractalscope/pkg/fractal"
)

// ExitCode is the process exit status for a command outcome.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError covers bad flags, unreadable files and unreachable
	// servers.
	ExitGeneralError ExitCode = 1

	// ExitInvalidInput means at least one measurement failed validation.
	ExitInvalidInput ExitCode = 2
)

// CLIError carries an exit code alongside the message shown to the user.
type CLIError struct {
	Code    ExitCode
	Message string
	Err     error
}

func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *CLIError) Unwrap() error { return e.Err }

// NewCLIError creates a CLIError with no underlying cause.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a CLIError that wraps err.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}

// inputError maps an estimator failure to ExitInvalidInput with the
// calculator's user-facing wording.
func inputError(err error) *CLIError {
	return WrapCLIError(ExitInvalidInput, fractal.UserMessage(err), err)
}

// exitCodeOf returns the exit code for err.
func exitCodeOf(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}
	var ce *CLIError
	if errors.As(err, &ce) {
		return ce.Code
	}
	return ExitGeneralError
}
