// Package mcp exposes benchmark control over the Model Context Protocol.
//
// The tools mirror the control API: list runs, read a run's results and flip
// the benchmark's active flag. Resources give a status overview and a
// per-run view for MCP clients that prefer reading to calling.
package mcp

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

// Store is the subset of the run store the MCP server reads and writes.
type Store interface {
	ListRuns(ctx context.Context, f storage.RunFilter) ([]model.Run, int, error)
	GetRun(ctx context.Context, id uuid.UUID) (model.Run, error)
	ListResults(ctx context.Context, runID uuid.UUID) ([]model.Result, error)
	BenchmarkSettings(ctx context.Context) (model.BenchmarkSettings, error)
	SetBenchmarkActive(ctx context.Context, active bool, by string) (model.BenchmarkSettings, error)
	CountRunsByState(ctx context.Context) (map[model.RunState]int, error)
}

// Server wraps the mcp-go server with gauntlet's run store.
type Server struct {
	mcpServer *mcpserver.MCPServer
	store     Store
	logger    *slog.Logger
}

// New creates an MCP server with all tools and resources registered.
func New(store Store, logger *slog.Logger, version string) *Server {
	s := &Server{
		store:  store,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"gauntlet",
		version,
		mcpserver.WithResourceCapabilities(false, false),
		mcpserver.WithToolCapabilities(false),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(instructions),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

const instructions = `gauntlet runs an LLM-impersonated user against a code-generation system, one conversation turn at a time.

Read gauntlet://benchmark/status for the active flag and run counts. Use gauntlet_list_runs to find runs, gauntlet_run_results to see what happened in one, and gauntlet_set_active to pause or resume the scheduler. Starting new benchmarks is only available through the HTTP API.`
