package main

import (
	"errors"

	"github.com/systemstart/torii/pkg/api"
	"github.com/systemstart/torii/pkg/build"
	"github.com/systemstart/torii/pkg/processing"
	"github.com/systemstart/torii/pkg/steps"
)

const (
	_ = iota
	exitUsage
	exitDotenvError
	exitLoggingSetupFailed
	exitLoadConfigurationFileFailed
	exitLoadContextFailed
	exitConfigExists
	exitBuildMissing
	exitStepConfigFailed
	exitStepFailed
	exitCleanupFailed
	exitBuildOutputCleanFailed
	exitToolErrors
)

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	msg  string
	err  error
}

func (e *exitError) Error() string { return e.msg + ": " + e.err.Error() }

func (e *exitError) Unwrap() error { return e.err }

func fail(code int, msg string, err error) error {
	return &exitError{code: code, msg: msg, err: err}
}

// exitCodeFor maps a pipeline error to its exit code.
func exitCodeFor(err error) int {
	var (
		cfgErr     *steps.ConfigError
		stepErr    *processing.StepError
		cleanupErr *processing.CleanupError
	)

	switch {
	case errors.As(err, &cfgErr), errors.Is(err, api.ErrInvalidConfig):
		return exitStepConfigFailed
	case errors.As(err, &stepErr):
		return exitStepFailed
	case errors.Is(err, build.ErrBuildMissing), errors.Is(err, build.ErrBuildEmpty):
		return exitBuildMissing
	case errors.As(err, &cleanupErr):
		return exitCleanupFailed
	}
	return exitToolErrors
}
