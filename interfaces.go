package gauntlet

import (
	"context"

	"github.com/ashita-ai/gauntlet/internal/mcp"
	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/orchestrator"
	"github.com/ashita-ai/gauntlet/internal/server"
)

// Oracle produces the impersonated user's next message from the transcript so
// far. When provided via WithOracle, it replaces the OpenAI/Ollama backend.
// The reply must use the <lov-chat-request> and <lov-scenario-finished/> tags.
// Implementations are called from the scheduler and from benchmark starts
// concurrently and must be safe for concurrent use.
type Oracle interface {
	NextAction(ctx context.Context, history []Message, opts CallOptions) (string, error)
}

// Store is everything the scheduler, the benchmark starter, the control API
// and the MCP tools need from a run store. *storage.DB and *sqlitestore.Store
// implement it.
type Store interface {
	orchestrator.Store
	server.Store
	mcp.Store
	UpsertScenario(ctx context.Context, s model.Scenario) (model.Scenario, error)
	Close(ctx context.Context) error
}
