package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/format"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status <snapshot>",
		Short: "Show the current state of one snapshot",
		Args:  cobra.ExactArgs(1),
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

			desc, err := cli.GetSnapshot(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "name:     %s\n", desc.Name)
			fmt.Fprintf(out, "state:    %s\n", desc.State)
			fmt.Fprintf(out, "started:  %s\n", format.FormatTime(desc.StartedAt))
			fmt.Fprintf(out, "ended:    %s\n", format.FormatTime(desc.EndedAt))
			if d := desc.Duration(); d > 0 {
				fmt.Fprintf(out, "duration: %s\n", format.FormatDuration(d))
			}
			fmt.Fprintf(out, "shards:   %s\n", format.FormatShards(desc.SuccessfulShards, desc.TotalShards))
			if desc.SizeBytes > 0 {
				fmt.Fprintf(out, "size:     %s\n", format.FormatBytes(desc.SizeBytes))
			}
			fmt.Fprintf(out, "indices:  %s\n", strings.Join(desc.Indices, ", "))
			return nil
		},
	}
}
