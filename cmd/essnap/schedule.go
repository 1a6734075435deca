package main

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/engine"
	"github.com/dm/essnap-go/internal/events"
)

func newScheduleCmd() *cobra.Command {
	var spec string

	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Run backup-and-rotate on a cron schedule",
		Long: `Schedule runs the backup workflow, including rotation when it is
enabled in the configuration, every time the cron expression fires. The
process stays in the foreground until interrupted; a run that is still in
flight when the next trigger fires is not overlapped, the trigger is skipped.`,
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

			// Fail fast on a bad endpoint instead of at 2am.
			if err := cli.Ping(ctx); err != nil {
				return err
			}

			sink := events.NewZapSink(logger)
			co := engine.NewCoordinator(cli, sink, pollOptions(cfg))

			running := make(chan struct{}, 1)
			runOnce := func() {
				select {
				case running <- struct{}{}:
					defer func() { <-running }()
				default:
					logger.Warn("previous backup still running, skipping trigger")
					return
				}

				opts := engine.BackupOptions{Indices: cfg.Indices}
				if cfg.Retention.Enabled {
					opts.Rotation = cfg.RotationPolicy(time.Now())
				}
				report := co.Backup(ctx, opts)
				if report.Result.Err != nil {
					logger.Error("scheduled backup failed",
						zap.String("snapshot", report.Result.Snapshot),
						zap.Error(report.Result.Err))
					return
				}
				logger.Info("scheduled backup finished",
					zap.String("snapshot", report.Result.Snapshot),
					zap.Stringer("outcome", report.Result.Outcome),
					zap.Duration("duration", report.Result.Duration))
			}

			c := cron.New()
			if _, err := c.AddFunc(spec, runOnce); err != nil {
				return fmt.Errorf("invalid cron expression %q: %w", spec, err)
			}
			c.Start()
			logger.Info("scheduler started", zap.String("cron", spec))

			<-ctx.Done()
			stopCtx := c.Stop()
			<-stopCtx.Done()
			return nil
		},
	}

	cmd.Flags().StringVar(&spec, "cron", "0 2 * * *", "cron expression for backup runs")
	return cmd
}
