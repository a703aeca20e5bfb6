// Package cli is the venuebook command line: the HTTP service, one-shot
// sweeps for cron, schema migration and proposal reports.
package cli

import (
	"fmt"
	"os"

	"venuebook/internal/config"

	"github.com/spf13/cobra"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

type options struct {
	configPath string
}

func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "venuebook",
		Short:         "Booking proposal lifecycle service for venue-based appointments",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", envOr("VENUEBOOK_CONFIG_PATH", config.DefaultPath), "path to the yaml config")

	root.AddCommand(newServeCmd(opts))
	root.AddCommand(newSweepCmd(opts))
	root.AddCommand(newMigrateCmd(opts))
	root.AddCommand(newReportCmd(opts))
	root.AddCommand(newVersionCmd())

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version info",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "venuebook %s (commit=%s, built=%s)\n", Version, CommitSHA, BuildDate)
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
