package main

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"igclog/internal/metastore"
)

func newCleanCommand(ctx *commandContext) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Delete all derived artifacts",
		Long:  "Deletes every derived artifact in the meta directory. Track files, override files, and legacy records are never touched.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !yes {
				fmt.Fprintf(out, "Delete all derived artifacts under %s? [y/N] ", cfg.MetaDir())
				reader := bufio.NewReader(cmd.InOrStdin())
				answer, _ := reader.ReadString('\n')
				if answer = strings.ToLower(strings.TrimSpace(answer)); answer != "y" && answer != "yes" {
					fmt.Fprintln(out, "Aborted")
					return nil
				}
			}

			store := metastore.New(cfg.MetaDir(), cfg.Paths.Legacy, ctx.ensureLogger())
			count, err := store.Clean()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Removed %d artifact files\n", count)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")
	return cmd
}
