package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"igclog/internal/pipeline"
	"igclog/internal/watch"
)

func newWatchCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Process continuously as track files change",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			runner, err := ctx.newRunner()
			if err != nil {
				return err
			}
			defer runner.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			// Bring the directory up to date before waiting on events.
			if _, err := runner.Run(runCtx, pipeline.Options{Trigger: "watch"}); err != nil {
				return err
			}

			scheduler, err := watch.New(cfg, ctx.ensureLogger(), runner)
			if err != nil {
				return err
			}
			if err := scheduler.Start(runCtx); err != nil {
				return err
			}
			defer scheduler.Stop()

			fmt.Fprintf(cmd.OutOrStdout(), "Watching %s (ctrl-c to stop)\n", cfg.Paths.Directory)
			<-runCtx.Done()
			return nil
		},
	}
	return cmd
}
