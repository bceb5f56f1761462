package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/plan"
)

// plannerSystemPrompt constrains the model to the step vocabulary the
// interpreter understands.
const plannerSystemPrompt = `Return ONLY a JSON array of steps, or {"steps":[...]}. ` +
	`Each step MUST include an 'action' field. ` +
	`Use stable Playwright selectors and prefer role+name or text queries over CSS. ` +
	`Avoid using 'input[name=q]' unless it exists in the snapshot. ` +
	`Allowed actions: navigate{url}, click{selector|text|role+name}, type{selector,text}, wait{selector}, extract_text{selector,key}.`

const rawContentPreview = 400

// Planner asks an Oracle for a plan that achieves a goal on the snapshotted page.
type Planner struct {
	oracle Oracle
	logger logger.Logger
}

// NewPlanner creates a planner backed by oracle.
func NewPlanner(oracle Oracle, log logger.Logger) *Planner {
	return &Planner{oracle: oracle, logger: log}
}

// Plan requests and normalizes a plan for goal.
func (p *Planner) Plan(ctx context.Context, goal string, snapshot Snapshot) (plan.Plan, error) {
	user, err := userMessage(goal, snapshot)
	if err != nil {
		return nil, err
	}

	content, err := p.oracle.Complete(ctx, plannerSystemPrompt, user)
	if err != nil {
		return nil, fmt.Errorf("request plan: %w", err)
	}
	if strings.TrimSpace(content) == "" {
		content = "[]"
	}
	p.logger.Info(ctx, "llm raw content", map[string]interface{}{
		"content": truncate(content, rawContentPreview),
	})

	steps, err := plan.ParsePlan(content)
	if err != nil {
		return nil, err
	}
	p.logger.Info(ctx, "ai plan accepted", map[string]interface{}{"steps": len(steps)})
	return steps, nil
}

func userMessage(goal string, snapshot Snapshot) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(map[string]any{"goal": goal, "page": snapshot}); err != nil {
		return "", fmt.Errorf("failed to encode planner request: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
