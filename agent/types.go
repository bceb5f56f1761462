package agent

import (
	"bytes"
	"encoding/json"

	"github.com/hairizuanbinnoorazman/search-robot/plan"
)

// Snapshot notes reported instead of page content.
const (
	NoteConnectError = "mcp_connect_error"
	NoteNoTool       = "no_snapshot_tool_found"
	NoteDisabled     = "snapshot_disabled"
)

// Snapshot is the page summary handed to the planner. It is sent as-is and
// never inspected by the robot.
type Snapshot struct {
	Tool  string         `json:"tool,omitempty"`
	Text  string         `json:"text,omitempty"`
	JSON  map[string]any `json:"json,omitempty"`
	Raw   string         `json:"raw,omitempty"`
	Note  string         `json:"note,omitempty"`
	Tools []string       `json:"tools,omitempty"`
	Error string         `json:"error,omitempty"`
	URL   string         `json:"url,omitempty"`
}

// Status is the note, or "ok" when the snapshot holds page content.
func (s Snapshot) Status() string {
	if s.Note == "" {
		return "ok"
	}
	return s.Note
}

// Outcome is the result of one agent run.
type Outcome struct {
	Mode    string
	Results plan.ResultMap
}

// MarshalJSON renders the results flat with the mode under "_mode".
func (o Outcome) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(o.Results)+1)
	for k, v := range o.Results {
		out[k] = v
	}
	out["_mode"] = o.Mode

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return bytes.TrimSpace(buf.Bytes()), nil
}
