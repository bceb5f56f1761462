package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/cmd/searchbot/handlers"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/runlog"
	"github.com/spf13/cobra"
)

func newHistoryServeCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the run history over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(a.v)
			return a.serveHistory(cmd.Context(), cfg.History, cfg.HistoryTokenHash, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "Listen address")
	return cmd
}

// serveHistory blocks until ctx is cancelled, then shuts the server down.
func (a *app) serveHistory(ctx context.Context, cfg runlog.Config, tokenHash, addr string) error {
	db, err := runlog.Open(cfg)
	if err != nil {
		return err
	}
	defer runlog.Close(db)

	log := logger.Component(a.log, "history")
	router := handlers.NewRouter(
		handlers.NewRunHandler(runlog.NewSQLStore(db, log), log),
		handlers.NewTokenMiddleware(tokenHash, log),
	)
	if tokenHash == "" {
		log.Warn(ctx, "run history API is not protected; set HISTORY_TOKEN_HASH", nil)
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "server listening", map[string]interface{}{
			"address": addr,
		})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info(ctx, "shutting down server", nil)

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info(ctx, "server stopped", nil)
	return nil
}

func newHashTokenCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "hash-token <token>",
		Short: "Print the HISTORY_TOKEN_HASH value for a bearer token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			hash, err := handlers.HashToken(args[0])
			if err != nil {
				return fmt.Errorf("failed to hash token: %w", err)
			}
			fmt.Fprintln(a.stdout, hash)
			return nil
		},
	}
}
