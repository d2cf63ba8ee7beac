package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"igclog/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "Show past processing runs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.Journal.Enabled {
				return errors.New("run journal is disabled (set journal.enabled = true)")
			}
			store, err := journal.Open(cfg.Journal.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if len(args) == 1 {
				events, err := store.RunFiles(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if len(events) == 0 {
					fmt.Fprintln(out, "No files recorded for this run")
					return nil
				}
				rows := make([][]string, 0, len(events))
				for _, event := range events {
					rows = append(rows, []string{
						event.Filename, event.Action, event.Duration.String(), event.Error,
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"File", "Action", "Elapsed", "Error"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
				))
				return nil
			}

			runs, err := store.RecentRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					run.Trigger,
					run.Status,
					run.StartedAt.Local().Format(time.DateTime),
					run.Duration().Round(time.Millisecond).String(),
					fmt.Sprintf("%d/%d/%d", run.FilesComputed, run.FilesSkipped, run.FilesFailed),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Trigger", "Status", "Started", "Elapsed", "C/S/F"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight},
			))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Show at most this many runs")
	return cmd
}
