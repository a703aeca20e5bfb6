package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"venuebook/internal/api"
	"venuebook/internal/config"
	"venuebook/internal/database"
	"venuebook/internal/metrics"
	"venuebook/internal/notify"
	"venuebook/internal/proposals"
	"venuebook/internal/scheduler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const venuesPollInterval = 30 * time.Second

func newServeCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger := newLogger(cfg, nil)

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

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	sw, notifyCloser, err := newSweeper(cfg, be.sweep, rdb, m, &logger)
	if err != nil {
		return err
	}
	defer func() { _ = notifyCloser.Close() }()

	deps := api.Deps{
		Sweeper: sw,
		Store:   be.pinger,
		Venues:  be.venues,
	}
	if rdb != nil {
		deps.Redis = rdb
	}
	if cfg.Monitoring.PrometheusEnabled {
		deps.Gatherer = reg
	}
	if be.proposals != nil {
		deps.Proposals = proposals.NewService(proposals.Config{
			Expiry:          cfg.ProposalExpiry(),
			DefaultCurrency: cfg.Proposals.DefaultCurrency,
		}, be.proposals, m, &logger)
	}
	if cfg.Relay.Enabled {
		relay, relayCloser, err := notify.New(cfg.Relay.Notify, &logger)
		if err != nil {
			return err
		}
		defer func() { _ = relayCloser.Close() }()
		deps.Relay = relay
		deps.RelayKey = cfg.Relay.ServiceKey
	}

	if cfg.Sweep.VenuesFile != "" {
		if err := config.WatchVenues(ctx, cfg.Sweep.VenuesFile, venuesPollInterval, func(scope *config.VenueScope) {
			sw.SetVenueScope(scope.VenueIDs)
		}); err != nil {
			logger.Error().Err(err).Msg("venue scope watch failed")
		}
	}

	if interval := cfg.SweepInterval(); interval > 0 {
		sched := scheduler.New(scheduler.Config{Interval: interval, Timeout: cfg.SweepTimeout()}, sw, &logger)
		sched.Start(ctx)
		defer sched.Stop()
	}

	if cfg.Backup.Enabled && be.sqlite != nil {
		go database.NewBackupService(be.sqlite, cfg.Backup, &logger).Start(ctx)
	}

	if cfg.HTTP.Mode != "" {
		gin.SetMode(cfg.HTTP.Mode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.NewRouter(deps, &logger)
	srv := api.NewServer(
		cfg.HTTP.Address,
		time.Duration(cfg.HTTP.ReadTimeoutSec)*time.Second,
		time.Duration(cfg.HTTP.WriteTimeoutSec)*time.Second,
		router,
		&logger,
	)

	logger.Info().
		Str("driver", be.driver).
		Str("notify", cfg.Notify.Driver).
		Bool("relay", cfg.Relay.Enabled).
		Dur("sweep_interval", cfg.SweepInterval()).
		Msg("venuebook started")

	return srv.Run(ctx)
}
