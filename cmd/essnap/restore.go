package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/engine"
	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/format"
)

func newRestoreCmd() *cobra.Command {
	var indices []string

	cmd := &cobra.Command{
		Use:   "restore <snapshot>",
		Short: "Restore indices from a snapshot onto the restore cluster",
		Long: `Restore closes the target indices, restores them from the named
snapshot and reopens them once the restore reaches a terminal state. Without
--indices every index captured in the snapshot is restored.

The restore target defaults to the snapshot cluster unless RESTORE_HOSTS (or
the restore section of the config file) points elsewhere.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cli, err := client.NewDefaultClient(cfg.RestoreClientConfig())
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			// The repository must be registered on the restore target before
			// the snapshot is visible there.
			if err := cli.EnsureRepository(ctx); err != nil {
				return err
			}

			var report engine.RestoreReport
			err = runWorkflow("essnap restore", cancel, func(sink events.Sink) error {
				co := engine.NewCoordinator(cli, sink, pollOptions(cfg))
				report = co.Restore(ctx, args[0], indices)
				return report.Result.Err
			})
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "restore of %s finished %s in %s\n",
				report.Result.Snapshot,
				report.Result.Outcome,
				format.FormatDuration(report.Result.Duration))
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&indices, "indices", nil, "indices to restore (default: all captured in the snapshot)")
	return cmd
}
