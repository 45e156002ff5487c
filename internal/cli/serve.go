package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Spok95/stockbook/internal/api"
	httpx "github.com/Spok95/stockbook/internal/infra/http"
	"github.com/Spok95/stockbook/internal/infra/notify"
	"github.com/Spok95/stockbook/internal/infra/payments"
	"github.com/Spok95/stockbook/internal/orders"
)

func NewServeCommand(opts *RootOptions) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			if migrate {
				if err := runMigrations(opts); err != nil {
					return err
				}
			}

			e, err := opts.open(ctx, prometheus.DefaultRegisterer)
			if err != nil {
				return err
			}
			defer e.close()

			var notifier notify.Notifier = notify.NewLog(e.log)
			if e.cfg.Telegram.Token != "" {
				tg, err := notify.NewTelegram(e.cfg.Telegram.Token, e.cfg.Telegram.AdminChatID)
				if err != nil {
					e.log.Error("telegram notifier disabled", "err", err)
				} else {
					notifier = tg
				}
			}

			svc := orders.NewService(e.log, e.store,
				orders.WithMetrics(e.metrics),
				orders.WithNotifier(notifier),
				orders.WithLowStockThreshold(e.cfg.Inventory.LowStockThreshold),
			)
			h := api.New(e.log, e.store, svc, payments.NewService(e.cfg.HTTP.BaseURL), e.cfg.Inventory.LowStockThreshold)

			srv := httpx.New(e.cfg.HTTP.Addr, e.cfg.Metrics.Enabled, h.Mount)
			go func() {
				if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					e.log.Error("http server error", "err", err)
					stop()
				}
			}()
			e.log.Info("HTTP server started", "addr", e.cfg.HTTP.Addr)

			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
			e.log.Info("graceful shutdown complete")
			return nil
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "apply migrations before start (postgres only)")
	return cmd
}
