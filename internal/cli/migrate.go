package cli

import (
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"github.com/Spok95/stockbook/migrations"
)

func NewMigrateCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(opts)
		},
	}
}

func runMigrations(opts *RootOptions) error {
	cfg, log, err := opts.load()
	if err != nil {
		return err
	}
	if cfg.Store.Driver == "memory" {
		log.Info("memory store, migrations skipped")
		return nil
	}

	sqlDB, err := goose.OpenDBWithDriver("postgres", cfg.Postgres.DSN)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer func() { _ = sqlDB.Close() }()

	goose.SetBaseFS(migrations.FS)
	if err := goose.Up(sqlDB, "."); err != nil {
		log.Error("migrations failed", "err", err)
		return err
	}
	log.Info("migrations applied")
	return nil
}
