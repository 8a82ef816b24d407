package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
)

const (
	statusURI      = "gauntlet://benchmark/status"
	runURIPrefix   = "gauntlet://runs/"
	runURITemplate = runURIPrefix + "{id}"
)

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			statusURI,
			"Benchmark Status",
			mcplib.WithResourceDescription("Whether the scheduler is active, and how many runs are in each state"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleStatus,
	)

	s.mcpServer.AddResourceTemplate(
		mcplib.NewResourceTemplate(
			runURITemplate,
			"Run",
			mcplib.WithTemplateDescription("One benchmark run with its recorded results"),
			mcplib.WithTemplateMIMEType("application/json"),
		),
		s.handleRun,
	)
}

func (s *Server) handleStatus(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	settings, err := s.store.BenchmarkSettings(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: benchmark status: %w", err)
	}
	counts, err := s.store.CountRunsByState(ctx)
	if err != nil {
		return nil, fmt.Errorf("mcp: count runs: %w", err)
	}
	return jsonContents(statusURI, map[string]any{
		"active":     settings.Active,
		"updated_at": settings.UpdatedAt,
		"updated_by": settings.UpdatedBy,
		"runs":       counts,
	})
}

func (s *Server) handleRun(ctx context.Context, request mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uri := request.Params.URI
	id, err := uuid.Parse(strings.TrimPrefix(uri, runURIPrefix))
	if err != nil || !strings.HasPrefix(uri, runURIPrefix) {
		return nil, fmt.Errorf("mcp: invalid run URI: %s", uri)
	}

	run, err := s.store.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mcp: get run %s: %w", id, err)
	}
	results, err := s.store.ListResults(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("mcp: list results for %s: %w", id, err)
	}
	out := make([]map[string]any, len(results))
	for i, r := range results {
		out[i] = compactResult(r)
	}
	return jsonContents(uri, map[string]any{
		"run":     compactRun(run),
		"results": out,
	})
}

func jsonContents(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
