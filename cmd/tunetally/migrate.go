package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"tunetally/internal/config"
	"tunetally/migrations"
)

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply or roll back the database schema",
		Commands: []*cli.Command{
			{
				Name:   "up",
				Usage:  "Apply all pending migrations",
				Action: migrateAction(func(m *migrate.Migrate) error { return m.Up() }),
			},
			{
				Name:  "down",
				Usage: "Roll back migrations",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "steps",
						Usage: "Number of migrations to roll back (0 rolls back everything)",
					},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					steps := int(cmd.Int("steps"))
					return migrateAction(func(m *migrate.Migrate) error {
						if steps > 0 {
							return m.Steps(-steps)
						}
						return m.Down()
					})(ctx, cmd)
				},
			},
		},
	}
}

func migrateAction(apply func(*migrate.Migrate) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		cfg, err := config.LoadTooling(cmd.String("env-file"))
		if err != nil {
			return err
		}
		setupLogging(cfg.Logging)

		db, err := openDatabase(ctx, cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		m, err := newMigrator(db)
		if err != nil {
			return err
		}

		if err := apply(m); err != nil {
			if errors.Is(err, migrate.ErrNoChange) {
				log.Info().Msg("schema already up to date")
				return nil
			}
			return fmt.Errorf("run migrations: %w", err)
		}

		version, dirty, err := m.Version()
		switch {
		case errors.Is(err, migrate.ErrNilVersion):
			log.Info().Msg("all migrations rolled back")
		case err != nil:
			return fmt.Errorf("read schema version: %w", err)
		default:
			log.Info().Uint("version", version).Bool("dirty", dirty).Msg("migrations applied")
		}
		return nil
	}
}

// newMigrator reads migrations from the binary instead of the working directory.
func newMigrator(db *sql.DB) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("create postgres driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, nil
}
