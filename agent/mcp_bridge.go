package agent

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/hairizuanbinnoorazman/search-robot/logger"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Snapshotter fetches a page summary for the planner. Failures are reported
// inside the Snapshot, never as an error.
type Snapshotter interface {
	Snapshot(ctx context.Context) Snapshot
}

// NoSnapshot is used when no tooling server is configured.
type NoSnapshot struct{}

// Snapshot reports that snapshots are disabled.
func (NoSnapshot) Snapshot(ctx context.Context) Snapshot {
	return Snapshot{Note: NoteDisabled}
}

// snapshotTools are tried in order; the first that answers wins.
var snapshotTools = []string{"snapshot", "get_accessibility_tree", "a11y_tree", "browser_snapshot"}

type toolSession interface {
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	Close() error
}

// MCPSnapshotter opens a short-lived MCP session over SSE for every snapshot.
type MCPSnapshotter struct {
	serverURL string
	timeout   time.Duration
	version   string
	logger    logger.Logger
	dial      func(ctx context.Context) (toolSession, error)
}

// NewMCPSnapshotter creates a snapshotter for the SSE endpoint at serverURL.
func NewMCPSnapshotter(serverURL, version string, timeout time.Duration, log logger.Logger) *MCPSnapshotter {
	s := &MCPSnapshotter{
		serverURL: serverURL,
		timeout:   timeout,
		version:   version,
		logger:    log,
	}
	s.dial = s.connect
	return s
}

func (s *MCPSnapshotter) connect(ctx context.Context) (toolSession, error) {
	client := mcp.NewClient(&mcp.Implementation{Name: "search-robot", Version: s.version}, nil)
	session, err := client.Connect(ctx, &mcp.SSEClientTransport{Endpoint: s.serverURL}, nil)
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Snapshot connects, asks for a snapshot and closes the session again.
func (s *MCPSnapshotter) Snapshot(ctx context.Context) Snapshot {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	s.logger.Debug(ctx, "connecting to MCP server", map[string]interface{}{"url": s.serverURL})
	session, err := s.dial(ctx)
	if err != nil {
		return s.connectError(err)
	}
	defer func() {
		if err := session.Close(); err != nil {
			s.logger.Debug(ctx, "failed to close MCP session", map[string]interface{}{"error": err.Error()})
		}
	}()

	for _, name := range snapshotTools {
		res, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: map[string]any{}})
		if err != nil {
			s.logger.Debug(ctx, "snapshot tool unavailable", map[string]interface{}{
				"tool":  name,
				"error": err.Error(),
			})
			continue
		}
		if res.IsError {
			s.logger.Debug(ctx, "snapshot tool failed", map[string]interface{}{"tool": name})
			continue
		}
		snap := normalizeToolResult(res)
		snap.Tool = name
		return snap
	}

	list, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return s.connectError(err)
	}
	names := make([]string, 0, len(list.Tools))
	for _, t := range list.Tools {
		names = append(names, t.Name)
	}
	return Snapshot{Note: NoteNoTool, Tools: names}
}

func (s *MCPSnapshotter) connectError(err error) Snapshot {
	return Snapshot{Note: NoteConnectError, Error: err.Error(), URL: s.serverURL}
}

// normalizeToolResult keeps text parts and structured content; anything
// else is kept verbatim under Raw.
func normalizeToolResult(res *mcp.CallToolResult) Snapshot {
	var snap Snapshot

	var texts []string
	for _, c := range res.Content {
		if tc, ok := c.(*mcp.TextContent); ok && tc.Text != "" {
			texts = append(texts, tc.Text)
		}
	}
	snap.Text = strings.Join(texts, "\n")

	switch v := res.StructuredContent.(type) {
	case nil:
	case map[string]any:
		if len(v) > 0 {
			snap.JSON = v
		}
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err == nil {
			if m, ok := decoded.(map[string]any); ok {
				snap.JSON = m
			} else if decoded != nil {
				snap.JSON = map[string]any{"value": decoded}
			}
		}
	default:
		snap.JSON = map[string]any{"value": v}
	}

	if snap.Text == "" && snap.JSON == nil {
		raw, err := json.Marshal(res)
		if err != nil {
			raw = []byte(err.Error())
		}
		snap.Raw = string(raw)
	}
	return snap
}
