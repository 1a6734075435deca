package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dm/essnap-go/internal/client"
	"github.com/dm/essnap-go/internal/tui"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all snapshots in the repository",
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

			snaps, err := cli.ListSnapshots(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "repository: %s\n", cli.Repository())
			fmt.Fprint(out, tui.RenderSnapshotTable(snaps, plain))
			return nil
		},
	}
}
