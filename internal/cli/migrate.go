package cli

import (
	"errors"
	"fmt"

	"venuebook/internal/config"
	"venuebook/internal/database"
	"venuebook/internal/postgres"

	"github.com/spf13/cobra"
)

var errManagedSchema = errors.New("supabase schema is managed by the Supabase project")

func newMigrateCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			logger := newLogger(cfg, cmd.ErrOrStderr())
			ctx := cmd.Context()

			switch cfg.Database.Driver {
			case "sqlite":
				// tables are created on open
				db, err := database.NewDB(cfg.Database.Path, &logger)
				if err != nil {
					return err
				}
				return db.Close()
			case "postgres":
				store, err := postgres.Open(ctx, cfg.Database.DSN, cfg.Database.MaxConns)
				if err != nil {
					return err
				}
				defer func() { _ = store.Close() }()
				if err := store.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate postgres: %w", err)
				}
				logger.Info().Msg("postgres schema is up to date")
				return nil
			case "supabase":
				return errManagedSchema
			}
			return fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
		},
	}
}
