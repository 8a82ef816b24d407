package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/gauntlet/internal/client"
	"github.com/ashita-ai/gauntlet/internal/model"
)

// apiFlags are shared by the commands that talk to a running server.
type apiFlags struct {
	server string
	token  string
}

func (f *apiFlags) register(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVar(&f.server, "server", envOr("GAUNTLET_URL", "http://localhost:8080"),
		"Gauntlet server URL (env GAUNTLET_URL)")
	cmd.PersistentFlags().StringVar(&f.token, "token", "", "Bearer token (env GAUNTLET_TOKEN)")
}

func (f *apiFlags) client() (*client.Client, error) {
	token := f.token
	if token == "" {
		token = os.Getenv("GAUNTLET_TOKEN")
	}
	if token == "" {
		return nil, errors.New("a token is required: pass --token or set GAUNTLET_TOKEN (see `gauntlet token issue`)")
	}
	return client.New(client.Config{BaseURL: f.server, Token: token})
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func newBenchmarkCommand() *cobra.Command {
	var api apiFlags
	cmd := &cobra.Command{
		Use:   "benchmark",
		Short: "Start and toggle benchmarks on a running server",
	}
	api.register(cmd)

	cmd.AddCommand(newBenchmarkStartCommand(&api))
	cmd.AddCommand(newBenchmarkToggleCommand(&api, "activate", true))
	cmd.AddCommand(newBenchmarkToggleCommand(&api, "deactivate", false))
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show whether the benchmark is active",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := api.client()
			if err != nil {
				return err
			}
			settings, err := c.Benchmark(commandContext(cmd))
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settings)
		},
	})
	return cmd
}

func newBenchmarkStartCommand(api *apiFlags) *cobra.Command {
	var (
		systemVersion string
		scenarioIDs   []string
		all           bool
	)

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Create one run per scenario and activate the benchmark",
		Long: `Create one run per scenario and activate the benchmark.

Each scenario's first turn runs before this command returns. Scenarios that
fail are reported; the rest still start.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := api.client()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			ids, err := parseUUIDs(scenarioIDs)
			if err != nil {
				return err
			}
			if all {
				scenarios, err := c.ListScenarios(ctx)
				if err != nil {
					return err
				}
				for _, sc := range scenarios {
					ids = append(ids, sc.ID)
				}
			}
			if len(ids) == 0 {
				return errors.New("no scenarios: pass --scenario or --all")
			}

			resp, err := c.StartBenchmark(ctx, systemVersion, ids)
			if err != nil {
				var apiErr *client.Error
				if errors.As(err, &apiErr) && len(apiErr.Details) > 0 {
					_ = printJSON(cmd.ErrOrStderr(), json.RawMessage(apiErr.Details))
				}
				return err
			}
			if err := printJSON(cmd.OutOrStdout(), resp); err != nil {
				return err
			}
			if len(resp.Errors) > 0 {
				return fmt.Errorf("%d of %d scenarios failed to start", len(resp.Errors), len(ids))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&systemVersion, "system-version", "http://localhost:8000", "Target system version (base URL)")
	cmd.Flags().StringSliceVar(&scenarioIDs, "scenario", nil, "Scenario id (repeatable)")
	cmd.Flags().BoolVar(&all, "all", false, "Start every scenario in the store")
	return cmd
}

func newBenchmarkToggleCommand(api *apiFlags, use string, active bool) *cobra.Command {
	short := "Resume scheduling paused runs on every instance"
	if !active {
		short = "Stop every instance from claiming runs"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := api.client()
			if err != nil {
				return err
			}
			settings, err := c.SetBenchmarkActive(commandContext(cmd), active)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), settings)
		},
	}
}

func parseUUIDs(raw []string) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0, len(raw))
	for _, s := range raw {
		id, err := uuid.Parse(s)
		if err != nil {
			return nil, fmt.Errorf("invalid scenario id %q", s)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func parseRunState(s string) (model.RunState, error) {
	if s == "" {
		return "", nil
	}
	state := model.RunState(s)
	if !state.Valid() {
		return "", fmt.Errorf("invalid state %q", s)
	}
	return state, nil
}
