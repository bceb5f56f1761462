package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/robot"
	"github.com/hairizuanbinnoorazman/search-robot/runlog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func historyConfig(t *testing.T) Config {
	return Config{
		SearchQuery: "311",
		TargetURL:   "https://lacity.gov/",
		History: runlog.Config{
			Driver: runlog.DriverSQLite,
			DSN:    filepath.Join(t.TempDir(), "runs.db"),
		},
	}
}

func listRuns(t *testing.T, cfg runlog.Config) []*runlog.Run {
	db, err := runlog.Open(cfg)
	require.NoError(t, err)
	defer runlog.Close(db)

	runs, err := runlog.NewSQLStore(db, logger.NewTestLogger()).List(context.Background(), "", 10, 0)
	require.NoError(t, err)
	return runs
}

func TestApp_Recorded(t *testing.T) {
	tests := []struct {
		name       string
		fn         runFunc
		wantStatus runlog.Status
		wantCode   int
		wantTitle  string
	}{
		{
			name: "success",
			fn: func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
				out.Mode, out.Title, out.ResultURL = robot.ModeUI, "311 Services", "https://lacity.gov/311"
				return nil
			},
			wantStatus: runlog.StatusSucceeded,
			wantCode:   exitOK,
			wantTitle:  "311 Services",
		},
		{
			name: "no result",
			fn: func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
				return &exitError{code: exitNoResult, err: fmt.Errorf("%w for '311'", robot.ErrNoResult)}
			},
			wantStatus: runlog.StatusNoResult,
			wantCode:   exitNoResult,
		},
		{
			name: "interrupted",
			fn: func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
				return &exitError{code: exitInterrupted, err: context.Canceled}
			},
			wantStatus: runlog.StatusInterrupted,
			wantCode:   exitInterrupted,
		},
		{
			name: "untagged error",
			fn: func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
				return errors.New("boom")
			},
			wantStatus: runlog.StatusFailed,
			wantCode:   exitUnexpected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := historyConfig(t)
			a := &app{log: logger.NewTestLogger(), stdout: &bytes.Buffer{}}

			err := a.recorded(context.Background(), cfg, "search", tt.fn)
			assert.Equal(t, tt.wantCode, exitCodeOf(err))

			runs := listRuns(t, cfg.History)
			require.Len(t, runs, 1)
			assert.Equal(t, "search", runs[0].Command)
			assert.Equal(t, "311", runs[0].Query)
			assert.Equal(t, tt.wantStatus, runs[0].Status)
			assert.Equal(t, tt.wantCode, runs[0].ExitCode)
			assert.Equal(t, tt.wantTitle, runs[0].Title)
			assert.NotNil(t, runs[0].EndedAt)
		})
	}
}

func TestApp_Recorded_Disabled(t *testing.T) {
	log := logger.NewTestLogger()
	a := &app{log: log, stdout: &bytes.Buffer{}}

	called := false
	err := a.recorded(context.Background(), Config{}, "search", func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
		called = true
		return nil
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Empty(t, log.Entries())
}

func TestApp_Recorded_UnavailableStillRuns(t *testing.T) {
	log := logger.NewTestLogger()
	a := &app{log: log, stdout: &bytes.Buffer{}}

	cfg := Config{History: runlog.Config{Driver: "postgres", DSN: "x"}}
	err := a.recorded(context.Background(), cfg, "agent", func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
		return nil
	})
	require.NoError(t, err)
	assert.True(t, log.Contains("warn", "run history unavailable"))
}

func TestHistoryCmd(t *testing.T) {
	cfg := historyConfig(t)
	a := &app{log: logger.NewTestLogger(), stdout: &bytes.Buffer{}}
	require.NoError(t, a.recorded(context.Background(), cfg, "search", func(ctx context.Context, cfg Config, out *runlog.Outcome) error {
		out.Mode, out.ResultURL = robot.ModeDirect, "https://lacity.gov/311"
		return nil
	}))

	t.Setenv("RUN_HISTORY_DRIVER", cfg.History.Driver)
	t.Setenv("RUN_HISTORY_DSN", cfg.History.DSN)

	var stdout, stderr bytes.Buffer
	code := run([]string{"history"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "COMMAND")
	assert.Contains(t, stdout.String(), "succeeded")
	assert.Contains(t, stdout.String(), "https://lacity.gov/311")

	stdout.Reset()
	code = run([]string{"history", "--json", "--command", "agent"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.NotContains(t, stdout.String(), `"command": "search"`)
}

func TestHistoryCmd_Disabled(t *testing.T) {
	t.Setenv("RUN_HISTORY_DRIVER", "")

	var stdout, stderr bytes.Buffer
	code := run([]string{"history"}, &stdout, &stderr)
	assert.Equal(t, exitUnexpected, code)
	assert.Contains(t, stderr.String(), "RUN_HISTORY_DRIVER")
}

func TestHistoryMigrateCmd(t *testing.T) {
	t.Setenv("RUN_HISTORY_DRIVER", runlog.DriverSQLite)
	t.Setenv("RUN_HISTORY_DSN", filepath.Join(t.TempDir(), "runs.db"))

	var stdout, stderr bytes.Buffer
	code := run([]string{"history", "migrate", "up"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "Migrations applied successfully")

	stdout.Reset()
	code = run([]string{"history", "migrate", "down"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.Contains(t, stdout.String(), "Migration rolled back successfully")
}

func TestServeHistory_StopsOnCancel(t *testing.T) {
	cfg := historyConfig(t)
	log := logger.NewTestLogger()
	a := &app{log: log, stdout: &bytes.Buffer{}}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(100 * time.Millisecond)
		cancel()
	}()

	require.NoError(t, a.serveHistory(ctx, cfg.History, "", "127.0.0.1:0"))
	assert.True(t, log.Contains("info", "server stopped"))
}

func TestServeHistory_Disabled(t *testing.T) {
	a := &app{log: logger.NewTestLogger(), stdout: &bytes.Buffer{}}
	err := a.serveHistory(context.Background(), runlog.Config{}, "", "127.0.0.1:0")
	assert.ErrorIs(t, err, runlog.ErrDisabled)
}

func TestHashTokenCmd(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := run([]string{"history", "hash-token", "s3cret"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code)
	assert.True(t, strings.HasPrefix(stdout.String(), "$2a$"))
}
