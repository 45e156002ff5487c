package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/domain/materials"
	"github.com/Spok95/stockbook/internal/reports"
)

var reportKinds = []string{"stock", "margins"}

func NewReportCommand(opts *RootOptions) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:       "report <stock|margins>",
		Short:     "Export an xlsx report",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: reportKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := opts.open(ctx, prometheus.NewRegistry())
			if err != nil {
				return err
			}
			defer e.close()

			var data []byte
			switch args[0] {
			case "stock":
				mats, err := materials.NewRepo(e.store).List(ctx)
				if err != nil {
					return err
				}
				moves, err := inventory.NewRepo(e.store).List(ctx)
				if err != nil {
					return err
				}
				data, err = reports.StockXLSX(mats, moves, e.cfg.Inventory.LowStockThreshold)
				if err != nil {
					return err
				}
			case "margins":
				invs, err := invoices.NewRepo(e.store).List(ctx)
				if err != nil {
					return err
				}
				snap, err := catalog.NewRepo(e.store).Snapshot(ctx)
				if err != nil {
					return err
				}
				data, err = reports.MarginsXLSX(invs, snap)
				if err != nil {
					return err
				}
			}

			if out == "" {
				out = fmt.Sprintf("%s_%s.xlsx", args[0], time.Now().Format("20060102_150405"))
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			e.log.Info("report written", "kind", args[0], "path", out, "bytes", len(data))
			return nil
		},
	}

	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default <kind>_<timestamp>.xlsx)")
	return cmd
}
