package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/conduit/internal/app"
)

func (c *CLI) newSimulateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run the pipeline with synthetic entrypoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			runs, _ := cmd.Flags().GetInt("runs")
			concurrency, _ := cmd.Flags().GetInt("concurrency")
			keys, _ := cmd.Flags().GetInt("keys")
			cache, _ := cmd.Flags().GetBool("cache")
			return c.app.Simulate(cmd.Context(), configPath(cmd), app.SimulateOptions{
				Runs:        runs,
				Concurrency: concurrency,
				Keys:        keys,
				Cache:       cache,
			}, cmd.OutOrStdout())
		},
	}
	cmd.Flags().IntP("runs", "n", 1, "Number of pipeline runs")
	cmd.Flags().IntP("concurrency", "j", 0, "Maximum number of concurrent runs (0 means unbounded)")
	cmd.Flags().IntP("keys", "k", 0, "Number of distinct input values (0 means one per run)")
	cmd.Flags().Bool("cache", false, "Serve runs through the stale-while-revalidate cache")
	return cmd
}
