package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ashita-ai/gauntlet/internal/client"
)

func newRunsCommand() *cobra.Command {
	var api apiFlags
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect runs on a running server",
	}
	api.register(cmd)

	cmd.AddCommand(newRunsListCommand(&api))
	cmd.AddCommand(newRunsShowCommand(&api))
	return cmd
}

func newRunsListCommand(api *apiFlags) *cobra.Command {
	var (
		state  string
		mine   bool
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := api.client()
			if err != nil {
				return err
			}
			runState, err := parseRunState(state)
			if err != nil {
				return err
			}
			opts := &client.ListRunsOptions{State: runState, Limit: limit, Offset: offset}
			if mine {
				opts.UserID = "me"
			}
			page, err := c.ListRuns(commandContext(cmd), opts)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSCENARIO\tSTATE\tTIME USED\tPROJECT") //nolint:errcheck
			for _, r := range page.Runs {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%ds\t%s\n", //nolint:errcheck
					r.ID, r.ScenarioName, r.State, r.TimeUsed, r.TimeoutSeconds, r.ProjectID)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if page.HasMore {
				fmt.Fprintf(cmd.OutOrStdout(), "showing %d of %d runs\n", len(page.Runs), page.Total) //nolint:errcheck
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "", "Filter by state")
	cmd.Flags().BoolVar(&mine, "mine", false, "Only runs started by the token's user")
	cmd.Flags().IntVar(&limit, "limit", 50, "Page size")
	cmd.Flags().IntVar(&offset, "offset", 0, "Page offset")
	return cmd
}

func newRunsShowCommand(api *apiFlags) *cobra.Command {
	var trajectory bool
	cmd := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show a run with its results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid run id %q", args[0])
			}
			c, err := api.client()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)

			run, err := c.GetRun(ctx, id)
			if err != nil {
				return err
			}
			results, err := c.RunResults(ctx, id)
			if err != nil {
				return err
			}
			out := map[string]any{"run": run, "results": results}
			if trajectory {
				entries, err := c.RunTrajectory(ctx, id)
				if err != nil {
					return err
				}
				out["trajectory"] = entries
			}
			return printJSON(cmd.OutOrStdout(), out)
		},
	}
	cmd.Flags().BoolVar(&trajectory, "trajectory", false, "Include the project's transcript")
	return cmd
}
