// Package server implements gauntlet's HTTP control API.
//
// The API starts benchmarks, toggles the persisted active flag the schedulers
// poll, and exposes runs, their results and their target-side transcripts.
// Every route except /health and /openapi.yaml requires an Ed25519 bearer
// token whose subject is the calling user's id.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/ashita-ai/gauntlet/internal/auth"
	"github.com/ashita-ai/gauntlet/internal/ctxutil"
	"github.com/ashita-ai/gauntlet/internal/model"
	"github.com/ashita-ai/gauntlet/internal/ratelimit"
	"github.com/ashita-ai/gauntlet/internal/storage"
)

// Store is the run store as seen by the API.
type Store interface {
	Ping(ctx context.Context) error
	Driver() string
	ListScenarios(ctx context.Context) ([]model.Scenario, error)
	GetRun(ctx context.Context, id uuid.UUID) (model.Run, error)
	ListRuns(ctx context.Context, f storage.RunFilter) ([]model.Run, int, error)
	ListResults(ctx context.Context, runID uuid.UUID) ([]model.Result, error)
	BenchmarkSettings(ctx context.Context) (model.BenchmarkSettings, error)
	SetBenchmarkActive(ctx context.Context, active bool, by string) (model.BenchmarkSettings, error)
}

// Starter bootstraps benchmark runs. *orchestrator.Starter implements it.
type Starter interface {
	StartBenchmark(ctx context.Context, req model.StartBenchmarkRequest) ([]model.Run, error)
}

// TrajectoryReader returns a project's transcript.
type TrajectoryReader interface {
	ReadTrajectory(ctx context.Context, projectID string) ([]model.TrajectoryEntry, error)
}

// Server is the gauntlet HTTP server.
type Server struct {
	httpServer *http.Server
	handler    http.Handler
	logger     *slog.Logger
}

// Handler returns the root HTTP handler for use in tests.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ServerConfig holds all dependencies and configuration for creating a Server.
// Optional fields (nil-safe): MCPServer, Limiter, OpenAPISpec.
type ServerConfig struct {
	// Required dependencies.
	Store      Store
	Starter    Starter
	Trajectory TrajectoryReader
	JWTMgr     *auth.JWTManager
	Logger     *slog.Logger

	// Optional dependencies (nil = disabled).
	MCPServer *mcpserver.MCPServer
	Limiter   ratelimit.Limiter // applied to benchmark starts

	// HTTP server settings.
	Port                int
	ReadTimeout         time.Duration
	WriteTimeout        time.Duration
	Version             string
	MaxRequestBodyBytes int64

	OpenAPISpec []byte
}

// New creates a new HTTP server with all routes configured.
func New(cfg ServerConfig) *Server {
	h := NewHandlers(HandlersDeps{
		Store:               cfg.Store,
		Starter:             cfg.Starter,
		Trajectory:          cfg.Trajectory,
		Logger:              cfg.Logger,
		Version:             cfg.Version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         cfg.OpenAPISpec,
	})

	startRL := ratelimit.Middleware(cfg.Limiter, userKeyFunc, cfg.Logger, func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusTooManyRequests, model.ErrCodeRateLimited, "too many benchmark starts, retry later")
	})

	mux := http.NewServeMux()

	mux.HandleFunc("GET /v1/scenarios", h.HandleListScenarios)

	mux.Handle("POST /v1/benchmarks", startRL(http.HandlerFunc(h.HandleStartBenchmark)))
	mux.HandleFunc("GET /v1/benchmark", h.HandleGetBenchmark)
	mux.HandleFunc("PUT /v1/benchmark", h.HandleSetBenchmark)

	mux.HandleFunc("GET /v1/runs", h.HandleListRuns)
	mux.HandleFunc("GET /v1/runs/{run_id}", h.HandleGetRun)
	mux.HandleFunc("GET /v1/runs/{run_id}/results", h.HandleListRunResults)
	mux.HandleFunc("GET /v1/runs/{run_id}/trajectory", h.HandleGetRunTrajectory)

	// MCP StreamableHTTP transport (auth required).
	if cfg.MCPServer != nil {
		mux.Handle("/mcp", mcpserver.NewStreamableHTTPServer(cfg.MCPServer))
	}

	// OpenAPI spec and health (no auth).
	mux.HandleFunc("GET /openapi.yaml", h.HandleOpenAPISpec)
	mux.HandleFunc("GET /health", h.HandleHealth)

	route := func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}

	// Middleware chain (outermost executes first):
	// request ID → security headers → tracing → logging → auth → recovery → handler.
	var handler http.Handler = mux
	handler = recoveryMiddleware(cfg.Logger, handler)
	handler = authMiddleware(cfg.JWTMgr, handler)
	handler = loggingMiddleware(cfg.Logger, handler)
	handler = tracingMiddleware(route, handler)
	handler = securityHeadersMiddleware(handler)
	handler = requestIDMiddleware(handler)

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Port),
			Handler:           handler,
			ReadTimeout:       cfg.ReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      cfg.WriteTimeout,
		},
		handler: handler,
		logger:  cfg.Logger,
	}
}

// userKeyFunc rate limits per authenticated user.
func userKeyFunc(r *http.Request) string {
	user := ctxutil.UserIDFromContext(r.Context())
	if user == uuid.Nil {
		return ""
	}
	return "user:" + user.String()
}

// Start begins serving HTTP requests.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}
