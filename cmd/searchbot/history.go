package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/runlog"
	"github.com/spf13/cobra"
)

type runFunc func(ctx context.Context, cfg Config, out *runlog.Outcome) error

// recorded runs fn and, when run history is configured, stores its outcome.
// History failures are logged and never change the run's exit code.
func (a *app) recorded(ctx context.Context, cfg Config, command string, fn runFunc) error {
	var out runlog.Outcome

	db, err := runlog.Open(cfg.History)
	if err != nil {
		if !errors.Is(err, runlog.ErrDisabled) {
			a.log.Warn(ctx, "run history unavailable", map[string]interface{}{"error": err.Error()})
		}
		return fn(ctx, cfg, &out)
	}
	defer func() {
		if err := runlog.Close(db); err != nil {
			a.log.Warn(ctx, "failed to close run history", map[string]interface{}{"error": err.Error()})
		}
	}()
	store := runlog.NewSQLStore(db, a.log)

	run := &runlog.Run{Command: command, Query: cfg.SearchQuery, TargetURL: cfg.TargetURL}
	if err := store.Create(ctx, run); err != nil {
		return fn(ctx, cfg, &out)
	}

	runErr := fn(ctx, cfg, &out)
	out.ExitCode = exitCodeOf(runErr)
	out.Status = historyStatus(out.ExitCode)
	if runErr != nil {
		out.Error = runErr.Error()
	}

	// The run's ctx may already be cancelled by an interrupt.
	if err := store.Finish(context.WithoutCancel(ctx), run.ID, out); err != nil {
		a.log.Warn(ctx, "failed to record run outcome", map[string]interface{}{
			"error":  err.Error(),
			"run_id": run.ID,
		})
	}
	return runErr
}

func exitCodeOf(err error) int {
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return exitUnexpected
}

func historyStatus(code int) runlog.Status {
	switch code {
	case exitOK:
		return runlog.StatusSucceeded
	case exitNoResult:
		return runlog.StatusNoResult
	case exitTimeout:
		return runlog.StatusTimeout
	case exitInterrupted:
		return runlog.StatusInterrupted
	default:
		return runlog.StatusFailed
	}
}

func newHistoryCmd(a *app) *cobra.Command {
	var command string
	var limit, offset int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded search and agent runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(a.v)
			db, err := runlog.Open(cfg.History)
			if errors.Is(err, runlog.ErrDisabled) {
				return fmt.Errorf("%w: set RUN_HISTORY_DRIVER and RUN_HISTORY_DSN", err)
			}
			if err != nil {
				return err
			}
			defer runlog.Close(db)

			runs, err := runlog.NewSQLStore(db, a.log).List(cmd.Context(), command, limit, offset)
			if err != nil {
				return fmt.Errorf("failed to list runs: %w", err)
			}

			if asJSON {
				data, err := json.MarshalIndent(runs, "", "  ")
				if err != nil {
					return fmt.Errorf("failed to marshal runs: %w", err)
				}
				fmt.Fprintln(a.stdout, string(data))
				return nil
			}

			headers := []string{"ID", "COMMAND", "QUERY", "STATUS", "EXIT", "MODE", "RESULT", "STARTED AT", "DURATION"}
			var rows [][]string
			for _, r := range runs {
				rows = append(rows, []string{
					r.ID.String(),
					r.Command,
					r.Query,
					string(r.Status),
					strconv.Itoa(r.ExitCode),
					orDash(r.Mode),
					orDash(r.ResultURL),
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Duration().Round(time.Millisecond).String(),
				})
			}
			a.printTable(headers, rows)
			return nil
		},
	}

	cmd.AddCommand(newHistoryMigrateCmd(a))
	cmd.AddCommand(newHistoryServeCmd(a))
	cmd.AddCommand(newHashTokenCmd(a))

	cmd.Flags().StringVar(&command, "command", "", "Only show runs of this command (search or agent)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().IntVar(&offset, "offset", 0, "Number of runs to skip")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func newHistoryMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run history database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runlog.Migrate(loadConfig(a.v).History); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Migrations applied successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Rollback the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runlog.Rollback(loadConfig(a.v).History); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "Migration rolled back successfully")
			return nil
		},
	})
	return cmd
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func (a *app) printTable(headers []string, rows [][]string) {
	w := tabwriter.NewWriter(a.stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	for _, row := range rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	w.Flush()
}
