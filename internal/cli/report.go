package cli

import (
	"fmt"
	"time"

	"venuebook/internal/config"
	"venuebook/shared/report"

	"github.com/spf13/cobra"
)

const dateFlagLayout = "2006-01-02"

type reportOptions struct {
	from string
	to   string
	out  string
}

func newReportCmd(opts *options) *cobra.Command {
	ro := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export proposals created in a date range to an Excel workbook",
		RunE: func(cmd *cobra.Command, _ []string) error {
			from, to, err := ro.window(time.Now().UTC())
			if err != nil {
				return err
			}

			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			ctx := cmd.Context()

			be, err := openBackend(ctx, cfg, &logger)
			if err != nil {
				return err
			}
			defer func() { _ = be.close() }()

			path := ro.out
			if path == "" {
				path = report.GenerateFilename(from, to)
			}

			n, err := report.NewExporter(be.reports, report.NewExcelizeWriter, &logger).Export(ctx, from, to, path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d proposals\n", path, n)
			return nil
		},
	}

	cmd.Flags().StringVar(&ro.from, "from", "", "first day, YYYY-MM-DD (default: first day of the previous month)")
	cmd.Flags().StringVar(&ro.to, "to", "", "day after the last, YYYY-MM-DD (default: first day of the current month)")
	cmd.Flags().StringVarP(&ro.out, "out", "o", "", "output file (default: proposals_<from>_<to>.xlsx)")

	return cmd
}

// window resolves the flags into [from, to). Without flags it covers the previous month.
func (o *reportOptions) window(now time.Time) (time.Time, time.Time, error) {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	from, to := monthStart.AddDate(0, -1, 0), monthStart

	var err error
	if o.from != "" {
		if from, err = time.Parse(dateFlagLayout, o.from); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--from: %w", err)
		}
	}
	if o.to != "" {
		if to, err = time.Parse(dateFlagLayout, o.to); err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("--to: %w", err)
		}
	}
	if !to.After(from) {
		return time.Time{}, time.Time{}, fmt.Errorf("--to must be after --from")
	}
	return from, to, nil
}
