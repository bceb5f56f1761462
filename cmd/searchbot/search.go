package main

import (
	"context"
	"fmt"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/internal/uuidutil"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/robot"
	"github.com/hairizuanbinnoorazman/search-robot/runlog"
	"github.com/hairizuanbinnoorazman/search-robot/storage"
	"github.com/spf13/cobra"
)

func newSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search",
		Short: "Run the fixed search routine and print the first result",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.recorded(cmd.Context(), loadConfig(a.v), "search", a.runSearch)
		},
	}
}

func (a *app) runSearch(ctx context.Context, cfg Config, out *runlog.Outcome) error {
	log := a.log.WithField("run_id", uuidutil.ShortID())

	searcher, err := newSearcher(cfg, log)
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}

	session, err := browser.Launch(ctx, cfg.browserOptions(), log)
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}
	defer closeSession(ctx, session, log)

	res, err := searcher.Search(ctx, session.Page(), cfg.SearchQuery)
	if err == nil && !res.Found() {
		err = fmt.Errorf("%w for '%s'", robot.ErrNoResult, cfg.SearchQuery)
	}
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}

	out.Mode, out.Title, out.ResultURL = res.Mode, res.Title, res.URL
	fmt.Fprintf(a.stdout, "Success! Query='%s' | First result: %s | URL: %s\n", cfg.SearchQuery, res.Title, res.URL)
	return nil
}

func newSearcher(cfg Config, log logger.Logger) (*robot.Searcher, error) {
	store, err := storage.NewArtifactStore(cfg.Screenshots)
	if err != nil {
		return nil, fmt.Errorf("failed to create screenshot store: %w", err)
	}
	return robot.NewSearcher(cfg.TargetURL, log, robot.WithArtifactStore(store))
}

// closeSession tears the browser down. Its failure is logged and never
// replaces the run's own outcome.
func closeSession(ctx context.Context, session *browser.Session, log logger.Logger) {
	if err := session.Close(); err != nil {
		log.Warn(ctx, "failed to close browser session", map[string]interface{}{"error": err.Error()})
	}
}
