package main

import (
	"fmt"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/agent"
	"github.com/hairizuanbinnoorazman/search-robot/browser"
	"github.com/hairizuanbinnoorazman/search-robot/runlog"
	"github.com/hairizuanbinnoorazman/search-robot/storage"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the resolved run configuration. It is built once per process.
type Config struct {
	TargetURL     string
	SearchQuery   string
	Headful       bool
	InstallDriver bool

	Goal            string
	MCPServerURL    string
	Model           string
	PlannerProvider string
	OpenAIAPIKey    string
	OpenAIBaseURL   string
	BedrockRegion   string

	LogLevel  string
	LogFormat string

	Screenshots storage.Config
	History     runlog.Config

	HistoryTokenHash string
}

// envKeys maps config keys to the environment variables they are read from.
var envKeys = map[string]string{
	"target_url":         "TARGET_URL",
	"search_query":       "SEARCH_QUERY",
	"headful":            "HEADFUL",
	"install_driver":     "PLAYWRIGHT_INSTALL",
	"goal":               "GOAL",
	"mcp_server_url":     "MCP_SERVER_URL",
	"model":              "MODEL",
	"planner_provider":   "PLANNER_PROVIDER",
	"openai_api_key":     "OPENAI_API_KEY",
	"openai_base_url":    "OPENAI_BASE_URL",
	"bedrock_region":     "BEDROCK_REGION",
	"log_level":          "LOG_LEVEL",
	"log_format":         "LOG_FORMAT",
	"screenshot_store":   "SCREENSHOT_STORE",
	"screenshot_dir":     "SCREENSHOT_DIR",
	"screenshot_bucket":  "SCREENSHOT_BUCKET",
	"screenshot_region":  "SCREENSHOT_REGION",
	"screenshot_prefix":  "SCREENSHOT_PREFIX",
	"history_driver":     "RUN_HISTORY_DRIVER",
	"history_dsn":        "RUN_HISTORY_DSN",
	"history_token_hash": "HISTORY_TOKEN_HASH",
}

func newViper() *viper.Viper {
	v := viper.New()

	v.SetDefault("target_url", "https://lacity.gov/")
	v.SetDefault("search_query", "311")
	v.SetDefault("headful", false)
	v.SetDefault("install_driver", false)
	v.SetDefault("goal", agent.DefaultGoal)
	v.SetDefault("mcp_server_url", "http://localhost:11000/sse")
	v.SetDefault("model", "gpt-4o-mini")
	v.SetDefault("planner_provider", agent.ProviderOpenAI)
	v.SetDefault("bedrock_region", "us-east-1")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "text")
	v.SetDefault("screenshot_store", "local")
	v.SetDefault("screenshot_dir", "./screenshots")
	v.SetDefault("history_driver", runlog.DriverNone)

	for key, env := range envKeys {
		// BindEnv only fails when no key is given.
		_ = v.BindEnv(key, env)
	}
	return v
}

// registerFlags adds the persistent flags that override environment values.
func registerFlags(cmd *cobra.Command, v *viper.Viper) {
	flags := cmd.PersistentFlags()
	flags.String("url", "", "Site to search (env: TARGET_URL)")
	flags.String("query", "", "Search query (env: SEARCH_QUERY)")
	flags.Bool("headful", false, "Show the browser window (env: HEADFUL=1)")
	flags.Bool("install", false, "Download the playwright driver and chromium first (env: PLAYWRIGHT_INSTALL)")
	flags.String("goal", "", "Goal handed to the planner (env: GOAL)")
	flags.String("mcp-url", "", "MCP SSE endpoint for page snapshots, empty to disable (env: MCP_SERVER_URL)")
	flags.String("model", "", "Planner model (env: MODEL)")
	flags.String("provider", "", "Planner provider: openai or bedrock (env: PLANNER_PROVIDER)")
	flags.String("log-level", "", "Log level (env: LOG_LEVEL)")

	for flag, key := range map[string]string{
		"url":       "target_url",
		"query":     "search_query",
		"headful":   "headful",
		"install":   "install_driver",
		"goal":      "goal",
		"mcp-url":   "mcp_server_url",
		"model":     "model",
		"provider":  "planner_provider",
		"log-level": "log_level",
	} {
		_ = v.BindPFlag(key, flags.Lookup(flag))
	}
}

func loadConfig(v *viper.Viper) Config {
	return Config{
		TargetURL:       v.GetString("target_url"),
		SearchQuery:     v.GetString("search_query"),
		Headful:         v.GetBool("headful"),
		InstallDriver:   v.GetBool("install_driver"),
		Goal:            v.GetString("goal"),
		MCPServerURL:    v.GetString("mcp_server_url"),
		Model:           v.GetString("model"),
		PlannerProvider: v.GetString("planner_provider"),
		OpenAIAPIKey:    v.GetString("openai_api_key"),
		OpenAIBaseURL:   v.GetString("openai_base_url"),
		BedrockRegion:   v.GetString("bedrock_region"),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		Screenshots: storage.Config{
			Type:    v.GetString("screenshot_store"),
			BaseDir: v.GetString("screenshot_dir"),
			Bucket:  v.GetString("screenshot_bucket"),
			Region:  v.GetString("screenshot_region"),
			Prefix:  v.GetString("screenshot_prefix"),
		},
		History: runlog.Config{
			Driver: v.GetString("history_driver"),
			DSN:    v.GetString("history_dsn"),
		},
		HistoryTokenHash: v.GetString("history_token_hash"),
	}
}

func (c Config) browserOptions() browser.Options {
	return browser.Options{
		Headless: !c.Headful,
		Args:     []string{"--no-sandbox"},
		Install:  c.InstallDriver,
	}
}

func (c Config) agentConfig() agent.Config {
	return agent.Config{
		Goal:            c.Goal,
		Query:           c.SearchQuery,
		Provider:        c.PlannerProvider,
		Model:           c.Model,
		OpenAIAPIKey:    c.OpenAIAPIKey,
		OpenAIBaseURL:   c.OpenAIBaseURL,
		BedrockRegion:   c.BedrockRegion,
		MCPServerURL:    c.MCPServerURL,
		SnapshotTimeout: 20 * time.Second,
	}.WithDefaults()
}

func maskSecret(secret string) string {
	switch {
	case secret == "":
		return "(not set)"
	case len(secret) > 8:
		return secret[:4] + "..." + secret[len(secret)-4:]
	default:
		return "****"
	}
}

func newConfigCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := loadConfig(a.v)
			rows := [][2]string{
				{"Target URL", cfg.TargetURL},
				{"Search query", cfg.SearchQuery},
				{"Headful", fmt.Sprint(cfg.Headful)},
				{"Goal", cfg.Goal},
				{"MCP server", cfg.MCPServerURL},
				{"Planner", cfg.PlannerProvider + " / " + cfg.Model},
				{"OpenAI key", maskSecret(cfg.OpenAIAPIKey)},
				{"Log level", cfg.LogLevel},
				{"Screenshots", cfg.Screenshots.Type},
				{"Run history", cfg.History.Driver},
			}
			for _, r := range rows {
				fmt.Fprintf(a.stdout, "%-13s %s\n", r[0]+":", r[1])
			}
			return nil
		},
	})
	return cmd
}
