package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/engine"
	"github.com/dm/essnap-go/internal/events"
	"github.com/dm/essnap-go/internal/model"
	"github.com/dm/essnap-go/internal/tui"
)

func newCleanupCmd() *cobra.Command {
	var (
		names          []string
		pattern        string
		olderThanDays  int
		all            bool
		maxSnapshots   int
		keepSuccessful bool
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete snapshots matching a retention policy",
		Long: `Cleanup deletes the union of everything the selectors match: explicit
--names, a --pattern glob, an --older-than age and --all. After selection,
--max-snapshots trims the retained set down to the N most recent. Without any
selector or cap the retention defaults from the configuration apply.

--dry-run prints the candidates without deleting anything.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			cli, err := client.NewDefaultClient(cfg.SnapshotClientConfig())
			if err != nil {
				return err
			}

			policy := model.RetentionPolicy{
				Names:              names,
				Pattern:            pattern,
				All:                all,
				MaxSnapshots:       maxSnapshots,
				KeepSuccessfulOnly: keepSuccessful,
			}
			if olderThanDays > 0 {
				policy.OlderThan = time.Now().AddDate(0, 0, -olderThanDays)
			}
			if policy.Empty() {
				policy = cfg.RotationPolicy(time.Now())
			}
			policy.DryRun = dryRun

			ctx, cancel := signalContext()
			defer cancel()

			var report engine.CleanupReport
			err = runWorkflow("essnap cleanup", cancel, func(sink events.Sink) error {
				co := engine.NewCoordinator(cli, sink, pollOptions(cfg))
				report = co.Cleanup(ctx, policy)
				return nil
			})
			if err != nil {
				return err
			}

			fmt.Fprint(cmd.OutOrStdout(), tui.RenderCleanupReport(report, plain))
			if report.Outcome == model.OutcomeFailed {
				return fmt.Errorf("cleanup failed")
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&names, "names", nil, "exact snapshot names to delete")
	cmd.Flags().StringVar(&pattern, "pattern", "", "glob pattern of snapshot names to delete")
	cmd.Flags().IntVar(&olderThanDays, "older-than", 0, "delete snapshots started more than N days ago")
	cmd.Flags().BoolVar(&all, "all", false, "delete every snapshot in the repository")
	cmd.Flags().IntVar(&maxSnapshots, "max-snapshots", 0, "keep at most N snapshots after selection")
	cmd.Flags().BoolVar(&keepSuccessful, "keep-successful-only", false, "only consider fully successful snapshots for deletion")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print candidates without deleting")
	return cmd
}
