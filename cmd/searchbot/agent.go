package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/search-robot/agent"
	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/internal/uuidutil"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/plan"
	"github.com/hairizuanbinnoorazman/search-robot/runlog"
	"github.com/spf13/cobra"
)

func newAgentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "agent",
		Short: "Ask a model for a plan, run it, and fall back to the fixed routine on failure",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.recorded(cmd.Context(), loadConfig(a.v), "agent", a.runAgent)
		},
	}
}

func (a *app) runAgent(ctx context.Context, cfg Config, out *runlog.Outcome) error {
	log := a.log.WithField("run_id", uuidutil.ShortID())
	agentCfg := cfg.agentConfig()

	searcher, err := newSearcher(cfg, log)
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}

	oracle, err := agent.NewOracle(ctx, agentCfg)
	if err != nil {
		log.Warn(ctx, "planner unavailable", map[string]interface{}{"error": err.Error()})
		oracle = agent.Unavailable(err)
	}

	session, err := browser.Launch(ctx, cfg.browserOptions(), log)
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}
	defer closeSession(ctx, session, log)

	orch := agent.NewOrchestrator(agentCfg, newSnapshotter(agentCfg, log), oracle, searcher, log)
	outcome, err := orch.Run(ctx, session.Page())
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}

	encoded, err := encodeOutcome(outcome)
	if err != nil {
		return a.fail(ctx, cfg.SearchQuery, err)
	}
	summarize(outcome, encoded, out)
	fmt.Fprintf(a.stdout, "Success! Results: %s\n", encoded)
	return nil
}

func newSnapshotter(cfg agent.Config, log logger.Logger) agent.Snapshotter {
	if cfg.MCPServerURL == "" {
		return agent.NoSnapshot{}
	}
	return agent.NewMCPSnapshotter(cfg.MCPServerURL, Version, cfg.SnapshotTimeout, log)
}

func encodeOutcome(o agent.Outcome) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(o); err != nil {
		return "", fmt.Errorf("failed to encode results: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

// summarize copies the headline record of an agent outcome into the run history.
func summarize(o agent.Outcome, encoded string, out *runlog.Outcome) {
	out.Mode = o.Mode
	out.Results = encoded
	for _, key := range []string{agent.FirstResultKey, plan.DefaultResultKey} {
		if rec, ok := o.Results[key]; ok {
			out.Title, out.ResultURL = rec.Title, rec.URL
			return
		}
	}
}
