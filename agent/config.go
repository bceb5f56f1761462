package agent

import (
	"time"
)

// Config holds the agent run configuration.
type Config struct {
	Goal  string
	Query string

	Provider      string // "openai" or "bedrock"
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	BedrockRegion string
	MaxTokens     int

	MCPServerURL    string
	SnapshotTimeout time.Duration
}

// DefaultGoal is the goal sent to the planner when none is configured.
const DefaultGoal = "Open https://lacity.gov, search for 311, and report the first result title and URL."

// WithDefaults fills unset fields with the values used in production.
func (c Config) WithDefaults() Config {
	if c.Goal == "" {
		c.Goal = DefaultGoal
	}
	if c.Query == "" {
		c.Query = "311"
	}
	if c.Provider == "" {
		c.Provider = ProviderOpenAI
	}
	if c.Model == "" {
		c.Model = "gpt-4o-mini"
	}
	if c.MaxTokens == 0 {
		c.MaxTokens = 2048
	}
	if c.SnapshotTimeout == 0 {
		c.SnapshotTimeout = 20 * time.Second
	}
	return c
}
