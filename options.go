package gauntlet

import (
	"log/slog"
)

// Option configures an App.
type Option func(*resolvedOptions)

// resolvedOptions holds all overrides after applying defaults.
// Unexported; callers use the With* functions.
type resolvedOptions struct {
	port        int
	databaseURL string
	storeDriver string
	logger      *slog.Logger
	version     string
	oracle      Oracle
}

// WithPort overrides the TCP port from config (GAUNTLET_PORT env var).
func WithPort(port int) Option {
	return func(o *resolvedOptions) { o.port = port }
}

// WithDatabaseURL overrides the database connection string from config (DATABASE_URL env var).
func WithDatabaseURL(url string) Option {
	return func(o *resolvedOptions) { o.databaseURL = url }
}

// WithStoreDriver selects "postgres" or "sqlite", overriding GAUNTLET_STORE.
func WithStoreDriver(driver string) Option {
	return func(o *resolvedOptions) { o.storeDriver = driver }
}

// WithLogger sets the structured logger for the App.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithVersion sets the version string reported in the health endpoint and logs.
func WithVersion(version string) Option {
	return func(o *resolvedOptions) { o.version = version }
}

// WithOracle replaces the configured OpenAI/Ollama impersonation backend.
// Only the last call wins.
func WithOracle(oracle Oracle) Option {
	return func(o *resolvedOptions) { o.oracle = oracle }
}
