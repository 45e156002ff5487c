package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Spok95/stockbook/internal/config"
	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/docstore/memstore"
	"github.com/Spok95/stockbook/internal/docstore/pgstore"
	"github.com/Spok95/stockbook/internal/infra/db"
	"github.com/Spok95/stockbook/internal/infra/logger"
	"github.com/Spok95/stockbook/internal/infra/metrics"
)

// RootOptions общие флаги всех команд.
type RootOptions struct {
	ConfigPath string
	Store      string // переопределяет store.driver из конфига
}

func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "stockbook",
		Short:         "stockbook - invoices, materials and stock settlement",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "config/example.yaml", "path to config file")
	cmd.PersistentFlags().StringVar(&opts.Store, "store", "", "document store driver (postgres|memory)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewReportCommand(opts))

	return cmd
}

type env struct {
	cfg     config.Config
	log     *slog.Logger
	store   docstore.Store
	metrics *metrics.Metrics
	close   func()
}

func (o *RootOptions) load() (config.Config, *slog.Logger, error) {
	cfg, err := config.Load(o.ConfigPath)
	if err != nil {
		return cfg, nil, fmt.Errorf("load config: %w", err)
	}
	if o.Store != "" {
		cfg.Store.Driver = o.Store
	}
	return cfg, logger.New(cfg.App.Env), nil
}

// open поднимает конфиг, логгер, метрики и хранилище выбранного драйвера.
func (o *RootOptions) open(ctx context.Context, reg prometheus.Registerer) (*env, error) {
	cfg, log, err := o.load()
	if err != nil {
		return nil, err
	}
	m := metrics.New(reg)
	storeOpts := docstore.Options{MaxAttempts: cfg.Store.MaxAttempts, OnRetry: m.ObserveRetry}

	e := &env{cfg: cfg, log: log, metrics: m, close: func() {}}
	switch cfg.Store.Driver {
	case "memory":
		s, err := memstore.Open(cfg.Store.SnapshotPath, storeOpts)
		if err != nil {
			return nil, fmt.Errorf("open memory store: %w", err)
		}
		e.store = s
		log.Info("using in-memory store", "snapshot", cfg.Store.SnapshotPath)
	case "postgres", "":
		pool, err := db.Connect(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("db connect: %w", err)
		}
		e.store = pgstore.New(pool, storeOpts)
		e.close = pool.Close
		log.Info("db connected")
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
	return e, nil
}
