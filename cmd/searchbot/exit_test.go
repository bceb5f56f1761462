package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/plan"
	"github.com/hairizuanbinnoorazman/search-robot/robot"
	"github.com/stretchr/testify/assert"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{name: "success", err: nil, want: exitOK},
		{name: "no result", err: fmt.Errorf("%w for '311'", robot.ErrNoResult), want: exitNoResult},
		{name: "driver timeout", err: fmt.Errorf("load homepage: %w", browser.ErrTimeout), want: exitTimeout},
		{name: "action timeout", err: fmt.Errorf("%w: click", robot.ErrActionTimeout), want: exitTimeout},
		{name: "deadline", err: context.DeadlineExceeded, want: exitTimeout},
		{name: "interrupted", err: context.Canceled, want: exitInterrupted},
		{name: "closed page", err: fmt.Errorf("%w: page", browser.ErrClosed), want: exitUnexpected},
		{name: "step failure", err: &plan.StepError{Index: 0, Action: plan.ActionClick, Err: errors.New("boom")}, want: exitUnexpected},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(context.Background(), tt.err))
		})
	}
}

func TestExitCode_CancelledContextWins(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := fmt.Errorf("navigate: %w", browser.ErrTimeout)
	assert.Equal(t, exitInterrupted, exitCode(ctx, err))
}

func TestFailureMessage(t *testing.T) {
	err := errors.New("boom")

	assert.Equal(t, "Failure: no results found for '311'", failureMessage(exitNoResult, "311", err))
	assert.Equal(t, "Failure: timeout: boom", failureMessage(exitTimeout, "311", err))
	assert.Equal(t, "Failure: interrupted", failureMessage(exitInterrupted, "311", err))
	assert.Equal(t, "Failure: unexpected error: boom", failureMessage(exitUnexpected, "311", err))
}

func TestApp_Fail(t *testing.T) {
	var stdout bytes.Buffer
	a := &app{log: logger.NewTestLogger(), stdout: &stdout}

	err := a.fail(context.Background(), "311", fmt.Errorf("%w for '311'", robot.ErrNoResult))

	var exitErr *exitError
	if assert.True(t, errors.As(err, &exitErr)) {
		assert.Equal(t, exitNoResult, exitErr.code)
	}
	assert.ErrorIs(t, err, robot.ErrNoResult)
	assert.Equal(t, "Failure: no results found for '311'\n", stdout.String())
}
