package cli

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"

	"venuebook/internal/config"
	"venuebook/internal/metrics"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

type sweepOutput struct {
	Success  bool   `json:"success"`
	Expired  int    `json:"expired"`
	Notified int    `json:"notified"`
	Claimed  int    `json:"claimed"`
	Failed   int    `json:"failed"`
	Skipped  bool   `json:"skipped,omitempty"`
	Error    string `json:"error,omitempty"`
}

func newSweepCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one expiry sweep and print the summary as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ctx, cancel := context.WithTimeout(ctx, cfg.SweepTimeout())
			defer cancel()

			// logs go to stderr so stdout stays machine readable
			logger := newLogger(cfg, cmd.ErrOrStderr())

			be, err := openBackend(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			defer func() { _ = be.close() }()

			rdb, err := newRedis(ctx, cfg)
			if err != nil {
				return err
			}
			if rdb != nil {
				defer func() { _ = rdb.Close() }()
			}

			sw, closer, err := newSweeper(cfg, be.sweep, rdb, metrics.New(prometheus.NewRegistry()), &logger)
			if err != nil {
				return err
			}
			defer func() { _ = closer.Close() }()

			summary, runErr := sw.Run(ctx)
			out := sweepOutput{
				Success:  runErr == nil,
				Expired:  summary.Expired,
				Notified: summary.Notified,
				Claimed:  summary.Claimed,
				Failed:   summary.Failed,
				Skipped:  summary.Skipped,
			}
			if runErr != nil {
				out.Error = runErr.Error()
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			if err := enc.Encode(out); err != nil {
				return err
			}
			return runErr
		},
	}
}
