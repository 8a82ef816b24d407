package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/ashita-ai/gauntlet/internal/ctxutil"
	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

func (s *Server) registerTools() {
	states := make([]string, len(model.AllRunStates))
	for i, st := range model.AllRunStates {
		states[i] = string(st)
	}

	s.mcpServer.AddTool(
		mcplib.NewTool("gauntlet_list_runs",
			mcplib.WithDescription(`List benchmark runs, newest first.

Each run is one scenario being played against one system version. Filter by
state to find work still in flight (paused, running) or finished runs
(completed, timed_out, impersonator_failed).`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("state",
				mcplib.Description("Only return runs in this state"),
				mcplib.Enum(states...),
			),
			mcplib.WithBoolean("mine",
				mcplib.Description("Only return runs started by the authenticated user"),
			),
			mcplib.WithNumber("limit",
				mcplib.Description("Maximum runs to return"),
				mcplib.Min(1),
				mcplib.Max(maxListLimit),
				mcplib.DefaultNumber(defaultListLimit),
			),
			mcplib.WithNumber("offset",
				mcplib.Description("Runs to skip, for paging"),
				mcplib.Min(0),
			),
		),
		s.handleListRuns,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("gauntlet_run_results",
			mcplib.WithDescription(`Show a run and every result recorded for it, oldest first.

Result types: initial_impersonation (the bootstrap turn), chat_message_sent,
unexpected_message (the impersonator replied without a request or finish
marker), scenario_finished and timeout.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithString("run_id",
				mcplib.Description("The run's UUID"),
				mcplib.Required(),
			),
		),
		s.handleRunResults,
	)

	s.mcpServer.AddTool(
		mcplib.NewTool("gauntlet_set_active",
			mcplib.WithDescription(`Turn the benchmark scheduler on or off for every instance.

While off, no paused run is claimed. A turn already in progress finishes.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(false),
			mcplib.WithBoolean("active",
				mcplib.Description("true to resume claiming runs, false to pause"),
				mcplib.Required(),
			),
		),
		s.handleSetActive,
	)
}

func (s *Server) handleListRuns(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	f := storage.RunFilter{
		Limit:  min(max(request.GetInt("limit", defaultListLimit), 1), maxListLimit),
		Offset: max(request.GetInt("offset", 0), 0),
	}
	if st := model.RunState(request.GetString("state", "")); st != "" {
		if !st.Valid() {
			return errorResult(fmt.Sprintf("unknown state %q", st)), nil
		}
		f.State = st
	}
	if request.GetBool("mine", false) {
		user := ctxutil.UserIDFromContext(ctx)
		if user == uuid.Nil {
			return errorResult("mine requires an authenticated user"), nil
		}
		f.UserID = &user
	}

	runs, total, err := s.store.ListRuns(ctx, f)
	if err != nil {
		s.logger.Error("mcp: list runs failed", "error", err)
		return errorResult(fmt.Sprintf("list runs failed: %v", err)), nil
	}

	out := make([]map[string]any, len(runs))
	for i, r := range runs {
		out[i] = compactRun(r)
	}
	return jsonResult(map[string]any{
		"runs":     out,
		"total":    total,
		"has_more": f.Offset+len(runs) < total,
	})
}

func (s *Server) handleRunResults(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	raw := request.GetString("run_id", "")
	if raw == "" {
		return errorResult("run_id is required"), nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return errorResult(fmt.Sprintf("invalid run_id: %s", raw)), nil
	}

	run, err := s.store.GetRun(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return errorResult(fmt.Sprintf("run %s not found", id)), nil
	}
	if err != nil {
		return errorResult(fmt.Sprintf("get run failed: %v", err)), nil
	}
	results, err := s.store.ListResults(ctx, id)
	if err != nil {
		return errorResult(fmt.Sprintf("list results failed: %v", err)), nil
	}

	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = compactResult(r)
	}
	return jsonResult(map[string]any{
		"run":     compactRun(run),
		"results": out,
	})
}

func (s *Server) handleSetActive(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	active, ok := request.GetArguments()["active"].(bool)
	if !ok {
		return errorResult("active must be true or false"), nil
	}

	by := "mcp"
	if user := ctxutil.UserIDFromContext(ctx); user != uuid.Nil {
		by = user.String()
	}
	settings, err := s.store.SetBenchmarkActive(ctx, active, by)
	if err != nil {
		s.logger.Error("mcp: set active failed", "error", err)
		return errorResult(fmt.Sprintf("set active failed: %v", err)), nil
	}
	s.logger.Info("mcp: benchmark active flag changed", "active", active, "updated_by", by)
	return jsonResult(settings)
}

func jsonResult(v any) (*mcplib.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal result: %w", err)
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
