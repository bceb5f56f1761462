package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/robot"
)

// Process exit codes.
const (
	exitOK          = 0
	exitNoResult    = 1
	exitTimeout     = 2
	exitUnexpected  = 3
	exitInterrupted = 130
)

// exitError carries a run failure that has already been reported on stdout.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

// exitCode classifies a run error. A cancelled ctx wins over whatever error
// the interrupted call returned.
func exitCode(ctx context.Context, err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled) || ctx.Err() != nil:
		return exitInterrupted
	case errors.Is(err, robot.ErrNoResult):
		return exitNoResult
	case browser.IsTimeout(err), errors.Is(err, robot.ErrActionTimeout), errors.Is(err, context.DeadlineExceeded):
		return exitTimeout
	default:
		return exitUnexpected
	}
}

func failureMessage(code int, query string, err error) string {
	switch code {
	case exitNoResult:
		return fmt.Sprintf("Failure: no results found for '%s'", query)
	case exitTimeout:
		return fmt.Sprintf("Failure: timeout: %v", err)
	case exitInterrupted:
		return "Failure: interrupted"
	default:
		return fmt.Sprintf("Failure: unexpected error: %v", err)
	}
}

// fail reports err on stdout and returns it tagged with its exit code.
func (a *app) fail(ctx context.Context, query string, err error) error {
	code := exitCode(ctx, err)
	if code == exitInterrupted {
		a.log.Warn(ctx, "interrupted; shutting down cleanly", nil)
	}
	fmt.Fprintln(a.stdout, failureMessage(code, query, err))
	return &exitError{code: code, err: err}
}
