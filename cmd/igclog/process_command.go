package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igclog/internal/pipeline"
)

func newProcessCommand(ctx *commandContext) *cobra.Command {
	var generateCSV bool
	var elevations bool
	var recalculateFrom string

	cmd := &cobra.Command{
		Use:   "process",
		Short: "Process the track directory once",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if elevations {
				cfg.Enrichment.Elevations = true
			}

			opts := pipeline.Options{GenerateCSV: generateCSV, Trigger: "manual"}
			if recalculateFrom != "" {
				threshold, err := time.Parse("2006-01-02", recalculateFrom)
				if err != nil {
					return fmt.Errorf("parse --recalculate-from: %w", err)
				}
				opts.Threshold = &threshold
			}

			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			result, err := runner.Run(cmd.Context(), opts)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Processed %d track files: %d computed, %d skipped, %d failed\n",
				result.Counts.Total, result.Counts.Computed, result.Counts.Skipped, result.Counts.Failed)
			for _, name := range result.Removed {
				fmt.Fprintf(out, "Removed artifacts for missing track %s\n", name)
			}
			for _, pair := range result.HashDuplicates {
				fmt.Fprintf(out, "Duplicate content: %s == %s\n", pair.Path, pair.Other)
			}
			if result.Book != nil {
				for _, pair := range result.Book.Duplicates {
					fmt.Fprintf(out, "Overlapping flights: %s and %s\n", pair.Path, pair.Other)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&generateCSV, "csv", "g", false, "Write a CSV export next to the track files")
	cmd.Flags().BoolVarP(&elevations, "elevations", "e", false, "Fetch elevation profiles (requires authentication)")
	cmd.Flags().StringVarP(&recalculateFrom, "recalculate-from", "r", "", "Recompute flights taken off on or after this date (YYYY-MM-DD)")
	return cmd
}
