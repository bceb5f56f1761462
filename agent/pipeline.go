package agent

import (
	"context"
	"fmt"

	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/plan"
	"github.com/hairizuanbinnoorazman/search-robot/robot"
)

// FirstResultKey holds the fallback search result in an Outcome.
const FirstResultKey = "first_result"

// Orchestrator runs a model-generated plan and falls back to the
// deterministic search when planning or execution fails.
type Orchestrator struct {
	config      Config
	snapshotter Snapshotter
	planner     *Planner
	searcher    *robot.Searcher
	timeouts    plan.Timeouts
	logger      logger.Logger
}

// NewOrchestrator creates an orchestrator. The searcher's base URL is also
// used to resolve links extracted by the plan.
func NewOrchestrator(
	config Config,
	snapshotter Snapshotter,
	oracle Oracle,
	searcher *robot.Searcher,
	log logger.Logger,
) *Orchestrator {
	log = logger.Component(log, "agent")
	return &Orchestrator{
		config:      config.WithDefaults(),
		snapshotter: snapshotter,
		planner:     NewPlanner(oracle, log),
		searcher:    searcher,
		timeouts:    plan.DefaultTimeouts(),
		logger:      log,
	}
}

// Run drives page toward the configured goal. Results of a failed plan are
// never mixed into the fallback outcome.
func (o *Orchestrator) Run(ctx context.Context, page browser.Page) (Outcome, error) {
	snapshot := o.snapshotter.Snapshot(ctx)
	o.logger.Info(ctx, "snapshot status", map[string]interface{}{"status": snapshot.Status()})

	results, err := o.runPlan(ctx, page, snapshot)
	if err == nil {
		return Outcome{Mode: robot.ModeAIPlan, Results: results}, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Outcome{}, ctxErr
	}
	if browser.IsFault(err) {
		return Outcome{}, err
	}

	o.logger.Warn(ctx, "falling back to core search", map[string]interface{}{"error": err.Error()})
	return o.fallback(ctx, page)
}

func (o *Orchestrator) runPlan(ctx context.Context, page browser.Page, snapshot Snapshot) (plan.ResultMap, error) {
	steps, err := o.planner.Plan(ctx, o.config.Goal, snapshot)
	if err != nil {
		return nil, err
	}
	in := plan.NewInterpreter(page, o.searcher.BaseURL(), o.timeouts, o.logger)
	return in.Run(ctx, steps)
}

func (o *Orchestrator) fallback(ctx context.Context, page browser.Page) (Outcome, error) {
	res, err := o.searcher.Search(ctx, page, o.config.Query)
	if err != nil {
		return Outcome{}, err
	}

	mode := robot.FallbackMode(res.Mode)
	if !res.Found() {
		return Outcome{Mode: mode}, fmt.Errorf("%w for '%s'", robot.ErrNoResult, o.config.Query)
	}
	return Outcome{
		Mode: mode,
		Results: plan.ResultMap{
			FirstResultKey: {Title: res.Title, URL: res.URL},
		},
	}, nil
}
