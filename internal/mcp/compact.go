package mcp

import (
	"encoding/json"

	"github.com/ashita-ai/gauntlet/internal/model"
)

// maxCompactData bounds the result payload echoed back to MCP clients. Target
// replies can be large; the full document stays available over HTTP.
const maxCompactData = 500

// compactRun drops the fields an MCP client does not act on.
func compactRun(r model.Run) map[string]any {
	m := map[string]any{
		"id":              r.ID,
		"scenario_id":     r.ScenarioID,
		"state":           r.State,
		"system_version":  r.SystemVersion,
		"project_id":      r.ProjectID,
		"time_used":       r.TimeUsed,
		"timeout_seconds": r.TimeoutSeconds,
		"updated_at":      r.UpdatedAt,
	}
	if r.ScenarioName != "" {
		m["scenario_name"] = r.ScenarioName
	}
	if r.Link != "" {
		m["link"] = r.Link
	}
	return m
}

func compactResult(res model.Result) map[string]any {
	m := map[string]any{
		"type":       res.Result.Type,
		"created_at": res.CreatedAt,
	}
	if len(res.Result.Data) == 0 {
		return m
	}
	if len(res.Result.Data) <= maxCompactData && json.Valid(res.Result.Data) {
		m["data"] = json.RawMessage(res.Result.Data)
		return m
	}
	m["data_truncated"] = truncate(string(res.Result.Data), maxCompactData)
	return m
}

// truncate cuts s to at most n runes, marking the cut.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
