// Command essnap manages the snapshot lifecycle of an Elasticsearch cluster:
// creating backups, restoring them, and rotating old snapshots out of the
// repository.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/dm/essnap-go/internal/config"
)

var version = "0.3.0"

var (
	cfgFile  string
	logLevel string
	plain    bool

	logger *zap.Logger
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "essnap",
		Short: "Elasticsearch snapshot lifecycle tool",
		Long: `essnap drives the Elasticsearch snapshot API through complete
lifecycle workflows: backup (create, wait, rotate), restore (close, restore,
wait, reopen) and cleanup (select, delete).

Configuration comes from the environment (SNAPSHOT_HOSTS, ES_REPOSITORY_NAME,
ES_INDICES, S3_BUCKET_NAME, ...) or a YAML file passed with --config.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = newLogger(logLevel)
			return err
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if logger != nil {
				_ = logger.Sync()
			}
		},
	}

	root.PersistentFlags().StringVar(&cfgFile, "config", "", "path to YAML config file")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&plain, "plain", false, "disable interactive output and colors")

	root.AddCommand(
		newBackupCmd(),
		newRestoreCmd(),
		newCleanupCmd(),
		newListCmd(),
		newStatusCmd(),
		newInitCmd(),
		newScheduleCmd(),
	)
	return root
}

// loadConfig resolves the effective configuration for a subcommand.
func loadConfig() (*config.Config, error) {
	return config.Load(cfgFile)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.Encoding = "console"
	cfg.OutputPaths = []string{"stderr"}
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	return cfg.Build()
}
