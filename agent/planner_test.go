package agent

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/hairizuanbinnoorazman/search-robot/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlanner_Plan(t *testing.T) {
	oracle := &fakeOracle{content: `{"steps": [{"navigate": "https://lacity.gov/?a=1&b=2"}, {"wait": "main"}]}`}
	log := logger.NewTestLogger()

	steps, err := NewPlanner(oracle, log).Plan(context.Background(), "find <311>", Snapshot{Note: NoteNoTool, Tools: []string{"browser_click"}})
	require.NoError(t, err)
	require.Len(t, steps, 2)
	assert.Equal(t, plan.ActionNavigate, steps[0].Action())

	assert.Equal(t, plannerSystemPrompt, oracle.system)
	assert.Contains(t, oracle.user, "find <311>")

	var msg struct {
		Goal string   `json:"goal"`
		Page Snapshot `json:"page"`
	}
	require.NoError(t, json.Unmarshal([]byte(oracle.user), &msg))
	assert.Equal(t, "find <311>", msg.Goal)
	assert.Equal(t, []string{"browser_click"}, msg.Page.Tools)

	assert.True(t, log.Contains("info", "llm raw content"))
	assert.True(t, log.Contains("info", "ai plan accepted"))
}

func TestPlanner_TruncatesLoggedContent(t *testing.T) {
	content := `[{"wait": "main"}]` + strings.Repeat(" ", 1000)
	log := logger.NewTestLogger()

	_, err := NewPlanner(&fakeOracle{content: content}, log).Plan(context.Background(), "goal", Snapshot{})
	require.NoError(t, err)

	for _, e := range log.Entries() {
		if e.Message == "llm raw content" {
			assert.Len(t, e.Fields["content"], rawContentPreview)
		}
	}
}

func TestPlanner_Errors(t *testing.T) {
	upstream := errors.New("timeout")

	tests := []struct {
		name    string
		oracle  *fakeOracle
		wantErr error
	}{
		{name: "oracle failure", oracle: &fakeOracle{err: upstream}, wantErr: upstream},
		{name: "empty content", oracle: &fakeOracle{content: "  "}, wantErr: plan.ErrEmptyPlan},
		{name: "prose", oracle: &fakeOracle{content: "Sorry."}, wantErr: plan.ErrPlanParse},
		{name: "wrong shape", oracle: &fakeOracle{content: `{"plan": []}`}, wantErr: plan.ErrPlanShape},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewPlanner(tt.oracle, logger.NewTestLogger()).Plan(context.Background(), "goal", Snapshot{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
