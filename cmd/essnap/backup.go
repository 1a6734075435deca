package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/engine"
	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/format"
	"github.com/dm/essnap-go/internal/tui"
)

func newBackupCmd() *cobra.Command {
	var (
		name     string
		noRotate bool
		dryRun   bool
	)

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a snapshot of the configured indices and rotate old ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cli, err := client.NewDefaultClient(cfg.SnapshotClientConfig())
			if err != nil {
				return err
			}

			ctx, cancel := signalContext()
			defer cancel()

			opts := engine.BackupOptions{
				SnapshotName: name,
				Indices:      cfg.Indices,
			}
			if opts.SnapshotName == "" {
				opts.SnapshotName = cfg.SnapshotName
			}
			if cfg.Retention.Enabled && !noRotate {
				policy := cfg.RotationPolicy(time.Now())
				policy.DryRun = dryRun
				opts.Rotation = policy
			}

			var report engine.BackupReport
			err = runWorkflow("essnap backup", cancel, func(sink events.Sink) error {
				co := engine.NewCoordinator(cli, sink, pollOptions(cfg))
				report = co.Backup(ctx, opts)
				return report.Result.Err
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "snapshot %s finished %s in %s\n",
				report.Result.Snapshot,
				report.Result.Outcome,
				format.FormatDuration(report.Result.Duration))
			if report.Snapshot.TotalShards > 0 {
				fmt.Fprintf(out, "shards %s\n",
					format.FormatShards(report.Snapshot.SuccessfulShards, report.Snapshot.TotalShards))
			}
			if report.Rotation != nil {
				fmt.Fprint(out, tui.RenderCleanupReport(*report.Rotation, plain))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "snapshot name (default snapshot_YYYYMMDD_HHMMSS)")
	cmd.Flags().BoolVar(&noRotate, "no-rotate", false, "skip rotation after the backup")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "preview rotation without deleting")
	return cmd
}
