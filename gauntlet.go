// Package gauntlet is the public API for embedding the gauntlet benchmark
// orchestrator.
//
//	app, err := gauntlet.New(
//	    gauntlet.WithVersion(version),
//	    gauntlet.WithLogger(logger),
//	)
//	if err != nil { ... }
//	if err := app.Run(ctx); err != nil { ... }
//
// The root package imports internal/*; internal/* never imports the root.
// Public types (Message, CallOptions) are standalone so that an external
// Oracle can be plugged in without reaching into internal packages.
package gauntlet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/joho/godotenv"

	"github.com/ashita-ai/gauntlet/api"
	"github.com/ashita-ai/gauntlet/internal/auth"
	"github.com/ashita-ai/gauntlet/internal/config"
	"github.com/ashita-ai/gauntlet/internal/mcp"
	"github.com/ashita-ai/gauntlet/internal/oracle"
	"github.com/ashita-ai/gauntlet/internal/orchestrator"
	"github.com/ashita-ai/gauntlet/internal/ratelimit"
	"github.com/ashita-ai/gauntlet/internal/server"
	"github.com/ashita-ai/gauntlet/internal/storage"
	"github.com/ashita-ai/gauntlet/internal/storage/sqlitestore"
	"github.com/ashita-ai/gauntlet/internal/target"
	"github.com/ashita-ai/gauntlet/internal/telemetry"
	"github.com/ashita-ai/gauntlet/internal/trajectory"
	"github.com/ashita-ai/gauntlet/migrations"
)

const (
	shutdownHTTPTimeout  = 15 * time.Second
	shutdownDrainTimeout = 30 * time.Second
)

// App is the gauntlet server lifecycle: the control API plus this instance's
// scheduler. Construct with New(), run with Run().
type App struct {
	cfg          config.Config
	store        Store
	srv          *server.Server
	sched        *orchestrator.Scheduler
	limiter      ratelimit.Limiter
	otelShutdown telemetry.Shutdown
	logger       *slog.Logger
	version      string
}

// New connects to the store, applies migrations and wires every component.
// It does NOT start the scheduler or accept HTTP connections; call Run().
func New(opts ...Option) (*App, error) {
	o := resolvedOptions{}
	for _, fn := range opts {
		fn(&o)
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	// Load .env file if present (non-fatal; production won't have one).
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if o.port != 0 {
		cfg.Port = o.port
	}
	if o.databaseURL != "" {
		cfg.DatabaseURL = o.databaseURL
	}
	if o.storeDriver != "" {
		cfg.StoreDriver = o.storeDriver
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}
	version := o.version
	if version == "" {
		version = "dev"
	}

	logger.Info("gauntlet starting", "version", version, "port", cfg.Port,
		"store", cfg.StoreDriver, "instance_id", cfg.InstanceID)

	ctx := context.Background()
	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return nil, fmt.Errorf("telemetry: %w", err)
	}

	store, traj, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		_ = otelShutdown(ctx)
		return nil, err
	}
	fail := func(err error) (*App, error) {
		_ = store.Close(ctx)
		_ = otelShutdown(ctx)
		return nil, err
	}

	jwtMgr, err := auth.NewJWTManager(cfg.JWTPrivateKeyPath, cfg.JWTPublicKeyPath, cfg.JWTExpiration)
	if err != nil {
		return fail(fmt.Errorf("auth: %w", err))
	}

	var impersonator orchestrator.Oracle
	if o.oracle != nil {
		impersonator = &oracleAdapter{o: o.oracle}
		logger.Info("oracle: external implementation")
	} else {
		impersonator, err = oracle.New(oracle.Config{
			Provider:      cfg.OracleProvider,
			OpenAIKey:     cfg.OpenAIAPIKey,
			OpenAIModel:   cfg.OpenAIModel,
			OpenAIBaseURL: cfg.OpenAIBaseURL,
			OllamaURL:     cfg.OllamaURL,
			OllamaModel:   cfg.OllamaModel,
		})
		if err != nil {
			return fail(err)
		}
		logger.Info("oracle: configured", "provider", fmt.Sprintf("%T", impersonator))
	}

	registry := target.NewRegistry(cfg.TargetVersions, cfg.TargetToken, cfg.TargetTimeout)
	if !registry.HasToken() {
		logger.Warn("target: GAUNTLET_TARGET_TOKEN is empty, benchmarks cannot start")
	}
	logger.Info("target: allowed system versions", "versions", registry.Versions())
	targets := orchestrator.RegistryTargets(registry)

	driver := orchestrator.NewDriver(store, traj, impersonator, targets, logger)
	sched := orchestrator.NewScheduler(store, driver, logger, orchestrator.SchedulerConfig{
		InstanceID:     cfg.InstanceID,
		PollInterval:   cfg.PollInterval,
		TurnTimeout:    cfg.TurnTimeout,
		TargetTokenSet: registry.HasToken(),
	})
	starter := orchestrator.NewStarter(store, impersonator, targets, logger, orchestrator.StarterConfig{
		Concurrency:    cfg.BootstrapConcurrency,
		TargetTokenSet: registry.HasToken(),
	})

	var limiter ratelimit.Limiter
	if cfg.StartRateLimit > 0 {
		limiter = ratelimit.NewMemoryLimiter(cfg.StartRateLimit, cfg.StartRateBurst)
		logger.Info("rate limiting: benchmark starts",
			"rate", cfg.StartRateLimit, "burst", cfg.StartRateBurst)
	} else {
		limiter = ratelimit.NoopLimiter{}
		logger.Info("rate limiting: disabled")
	}

	srv := server.New(server.ServerConfig{
		Store:               store,
		Starter:             starter,
		Trajectory:          traj,
		JWTMgr:              jwtMgr,
		Logger:              logger,
		MCPServer:           mcp.New(store, logger, version).MCPServer(),
		Limiter:             limiter,
		Port:                cfg.Port,
		ReadTimeout:         cfg.ReadTimeout,
		WriteTimeout:        cfg.WriteTimeout,
		Version:             version,
		MaxRequestBodyBytes: cfg.MaxRequestBodyBytes,
		OpenAPISpec:         api.OpenAPISpec,
	})

	return &App{
		cfg:          cfg,
		store:        store,
		srv:          srv,
		sched:        sched,
		limiter:      limiter,
		otelShutdown: otelShutdown,
		logger:       logger,
		version:      version,
	}, nil
}

// OpenStore connects to the configured run store and returns it together with
// the matching trajectory reader. Postgres migrations are applied; the SQLite
// store applies its own schema on open.
func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (Store, orchestrator.TrajectoryReader, error) {
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		s, err := sqlitestore.Open(ctx, cfg.SQLitePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %w", err)
		}
		return s, trajectory.NewSQLReader(s.DB()), nil
	default:
		db, err := storage.New(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("storage: %w", err)
		}
		db.RegisterPoolMetrics()
		if err := db.RunMigrations(ctx, migrations.FS); err != nil {
			_ = db.Close(ctx)
			return nil, nil, fmt.Errorf("migrations: %w", err)
		}
		return db, trajectory.NewPGReader(db.Pool()), nil
	}
}

// Handler returns the root HTTP handler, for tests and for mounting behind
// another server.
func (a *App) Handler() http.Handler {
	return a.srv.Handler()
}

// Run starts the scheduler and the HTTP server and blocks until ctx is
// cancelled or the server fails. On return Shutdown has already been called.
func (a *App) Run(ctx context.Context) error {
	a.sched.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err, ok := <-errCh:
		if ok {
			a.logger.Error("http server failed", "error", err)
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	return errors.Join(runErr, a.Shutdown(context.Background()))
}

// Shutdown stops accepting HTTP requests, waits for an in-flight turn to
// finish, then closes the store and flushes telemetry. A turn still running
// when the drain deadline passes stays claimed; no other instance resumes it.
func (a *App) Shutdown(ctx context.Context) error {
	httpCtx, httpCancel := context.WithTimeout(ctx, shutdownHTTPTimeout)
	defer httpCancel()
	if err := a.srv.Shutdown(httpCtx); err != nil {
		a.logger.Error("http shutdown error", "error", err)
	}

	drainCtx, drainCancel := context.WithTimeout(ctx, shutdownDrainTimeout)
	defer drainCancel()
	a.sched.Drain(drainCtx)

	_ = a.limiter.Close()
	err := a.store.Close(ctx)
	_ = a.otelShutdown(context.Background())
	a.logger.Info("gauntlet stopped")
	return err
}

// oracleAdapter exposes a public Oracle to the orchestrator.
type oracleAdapter struct {
	o Oracle
}

func (a *oracleAdapter) NextAction(ctx context.Context, history []oracle.Message, opts oracle.CallOptions) (string, error) {
	msgs := make([]Message, len(history))
	for i, m := range history {
		msgs[i] = Message{Role: m.Role, Content: m.Content}
	}
	return a.o.NextAction(ctx, msgs, CallOptions{Temperature: opts.Temperature, Model: opts.Model})
}
