package main

import (
	"context"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/gauntlet"
)

func newServeCommand() *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the control API and this instance's scheduler",
		Long: `Run the control API and this instance's scheduler.

Any number of instances may share one Postgres database; claims are atomic,
so each paused run is advanced by exactly one of them per turn.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			opts := []gauntlet.Option{
				gauntlet.WithVersion(version),
				gauntlet.WithLogger(slog.Default()),
			}
			if port != 0 {
				opts = append(opts, gauntlet.WithPort(port))
			}
			app, err := gauntlet.New(opts...)
			if err != nil {
				return err
			}
			return app.Run(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "HTTP port (overrides GAUNTLET_PORT)")
	return cmd
}

// commandContext returns cmd's context, or Background when run outside Execute.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
