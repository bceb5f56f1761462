package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// Version is the application version (set during build).
	Version = "dev"

	// Commit is the git commit hash (set during build).
	Commit = "none"

	// BuildDate is the build date (set during build).
	BuildDate = "unknown"
)

// app carries the resolved configuration and output streams into every command.
type app struct {
	v      *viper.Viper
	log    logger.Logger
	stdout io.Writer
	stderr io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := newRootCmd(stdout, stderr)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	fmt.Fprintf(stderr, "Error: %v\n", err)
	return exitUnexpected
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	a := &app{v: newViper(), stdout: stdout, stderr: stderr}

	rootCmd := &cobra.Command{
		Use:   "searchbot",
		Short: "Headless search robot",
		Long:  "Drives a headless browser to search a site and report the first organic result, either with a fixed routine or with a model-generated plan.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(a.v)
			a.log = logger.NewLogrusLogger(logger.Options{
				Level:  cfg.LogLevel,
				Format: cfg.LogFormat,
				Output: a.stderr,
			})
			return nil
		},
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	registerFlags(rootCmd, a.v)

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(a.stdout, "searchbot %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		},
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(newConfigCmd(a))
	rootCmd.AddCommand(newSearchCmd(a))
	rootCmd.AddCommand(newAgentCmd(a))
	rootCmd.AddCommand(newHistoryCmd(a))
	return rootCmd
}
