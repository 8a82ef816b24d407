package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/ashita-ai/gauntlet"
	"github.com/ashita-ai/gauntlet/internal/config"
	"github.com/ashita-ai/gauntlet/internal/model"
)

func newScenariosCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scenarios",
		Short: "Manage benchmark scenarios",
	}
	cmd.AddCommand(newScenariosImportCommand())
	cmd.AddCommand(newScenariosListCommand())
	return cmd
}

func newScenariosImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Create or update scenarios from a YAML file",
		Long: `Create or update scenarios from a YAML file.

Scenarios are matched by name; importing a file twice updates them in place
and keeps their ids. Example:

  scenarios:
    - name: todo-app
      prompt: Create a todo app
      llm_temperature: 0.5
      timeout_seconds: 1800`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scenarios, err := model.LoadScenarioFile(args[0])
			if err != nil {
				return err
			}

			ctx := commandContext(cmd)
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, _, err := gauntlet.OpenStore(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			w := cmd.OutOrStdout()
			for _, sc := range scenarios {
				saved, err := store.UpsertScenario(ctx, sc)
				if err != nil {
					return fmt.Errorf("import %q: %w", sc.Name, err)
				}
				fmt.Fprintf(w, "%s\t%s\n", saved.ID, saved.Name) //nolint:errcheck
			}
			return nil
		},
	}
}

func newScenariosListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List scenarios in the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			store, _, err := gauntlet.OpenStore(ctx, cfg, slog.Default())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close(ctx) }()

			scenarios, err := store.ListScenarios(ctx)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tTEMPERATURE\tTIMEOUT") //nolint:errcheck
			for _, sc := range scenarios {
				fmt.Fprintf(tw, "%s\t%s\t%.2f\t%ds\n", sc.ID, sc.Name, sc.LLMTemperature, sc.TimeoutSeconds) //nolint:errcheck
			}
			return tw.Flush()
		},
	}
}
