package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/fulmenhq/gofulmen/foundry"

	"github.com/3leaps/s3relocate/pkg/notification"
	"github.com/3leaps/s3relocate/pkg/provider/s3"
	"github.com/3leaps/s3relocate/pkg/relocate"
)

const exitFailure = 1

// ExitError carries the process exit code for a failed command.
type ExitError struct {
	Code    int
	Message string
	Err     error
}

func (e *ExitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s (exit code %d)", e.Message, e.Code)
	}
	return fmt.Sprintf("%s: %v (exit code %d)", e.Message, e.Err, e.Code)
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// exitError creates an error that will cause the CLI to exit with the given code.
func exitError(code int, message string, err error) error {
	return &ExitError{Code: code, Message: message, Err: err}
}

// ExitCode maps a command error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return exitFailure
}

// runExitCode picks the exit code for a failed relocation run.
func runExitCode(err error) int {
	var (
		decodeErr *notification.DecodeError
		s3CfgErr  *s3.ConfigError
	)
	switch {
	case errors.As(err, &decodeErr), relocate.IsConfigError(err), errors.As(err, &s3CfgErr):
		return foundry.ExitInvalidArgument
	case errors.Is(err, context.Canceled):
		return foundry.ExitSignalInt
	default:
		return foundry.ExitExternalServiceUnavailable
	}
}
