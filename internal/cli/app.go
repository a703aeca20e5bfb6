package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"venuebook/internal/api"
	"venuebook/internal/config"
	"venuebook/internal/database"
	"venuebook/internal/lock"
	"venuebook/internal/metrics"
	"venuebook/internal/notify"
	"venuebook/internal/postgres"
	"venuebook/internal/proposals"
	"venuebook/internal/supabase"
	"venuebook/internal/sweeper"
	"venuebook/shared/report"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// newLogger builds the process logger from the logging section.
func newLogger(cfg *config.Config, out io.Writer) zerolog.Logger {
	if out == nil {
		out = os.Stdout
	}
	if cfg.Logging.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}

	level, err := zerolog.ParseLevel(cfg.Logging.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	return zerolog.New(out).Level(level).With().Timestamp().Str("service", "venuebook").Logger()
}

// backend is the storage selected by database.driver. Supabase only serves
// the sweep and reporting paths, so proposals and venues stay nil there.
type backend struct {
	driver    string
	sweep     sweeper.Store
	reports   report.Source
	proposals proposals.Store
	venues    api.VenueStore
	pinger    api.Pinger
	sqlite    *database.DB
	close     func() error
}

func openBackend(ctx context.Context, cfg *config.Config, logger *zerolog.Logger) (*backend, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		db, err := database.NewDB(cfg.Database.Path, logger)
		if err != nil {
			return nil, err
		}
		return &backend{
			driver:    "sqlite",
			sweep:     db,
			reports:   db,
			proposals: db,
			venues:    db,
			pinger:    db,
			sqlite:    db,
			close:     db.Close,
		}, nil

	case "postgres":
		store, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("ping postgres: %w", err)
		}
		return &backend{
			driver:    "postgres",
			sweep:     store,
			reports:   store,
			proposals: store,
			venues:    store,
			pinger:    store,
			close:     store.Close,
		}, nil

	case "supabase":
		store, err := supabase.New(cfg.Database.SupabaseURL, cfg.Database.SupabaseKey)
		if err != nil {
			return nil, err
		}
		return &backend{
			driver:  "supabase",
			sweep:   store,
			reports: store,
			pinger:  store,
			close:   func() error { return nil },
		}, nil
	}

	return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
}

// newRedis returns nil when no redis address is configured.
func newRedis(ctx context.Context, cfg *config.Config) (*redis.Client, error) {
	if cfg.Redis.Address == "" {
		return nil, nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

// newSweeper wires the sweep with its dispatcher and lock. The returned
// closer releases the dispatcher's connections.
func newSweeper(
	cfg *config.Config,
	store sweeper.Store,
	rdb *redis.Client,
	m *metrics.Metrics,
	logger *zerolog.Logger,
) (*sweeper.Sweeper, io.Closer, error) {
	dispatcher, closer, err := notify.New(cfg.Notify, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("notify: %w", err)
	}

	var locker lock.Locker = lock.Noop{}
	if cfg.Sweep.UseLock {
		if rdb == nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("sweep.use_lock requires redis.address")
		}
		locker = lock.NewRedis(rdb)
	}

	venueIDs := cfg.Sweep.VenueIDs
	if cfg.Sweep.VenuesFile != "" {
		scope, err := config.LoadVenueScope(cfg.Sweep.VenuesFile)
		if err != nil {
			_ = closer.Close()
			return nil, nil, fmt.Errorf("load venue scope: %w", err)
		}
		venueIDs = scope.VenueIDs
	}

	sw := sweeper.New(sweeper.Config{
		LockTTL:  cfg.SweepLockTTL(),
		Currency: cfg.Sweep.CurrencyCode,
		VenueIDs: venueIDs,
	}, store, dispatcher, locker, m, logger)

	return sw, closer, nil
}
