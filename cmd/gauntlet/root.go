package main

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gauntlet",
		Short: "Gauntlet - benchmark orchestrator for code-generation systems",
		Long: `Gauntlet drives a code-generation system through multi-turn conversations
with an LLM that impersonates a user pursuing a scenario, and records how
each run ends.

Configuration is read from the environment (and a .env file, if present).`,
		Version:      version,
		SilenceUsage: true,
	}

	debugLogging := cmd.PersistentFlags().Bool("debug", false, "Enable debug logging")
	cmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Load .env file if present (non-fatal; production won't have one).
		_ = godotenv.Load()

		level := slog.LevelInfo
		if *debugLogging || os.Getenv("GAUNTLET_LOG_LEVEL") == "debug" {
			level = slog.LevelDebug
		}
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))
	}

	cmd.AddCommand(newServeCommand())
	cmd.AddCommand(newMigrateCommand())
	cmd.AddCommand(newScenariosCommand())
	cmd.AddCommand(newBenchmarkCommand())
	cmd.AddCommand(newRunsCommand())
	cmd.AddCommand(newTokenCommand())
	cmd.AddCommand(newKeysCommand())

	return cmd
}
