package reports

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stockbook/internal/cost"
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/domain/materials"
)

const movementsSheet = "movements"

func money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// StockXLSX остатки материалов и, отдельным листом, журнал списаний.
func StockXLSX(mats []materials.Material, moves []inventory.Movement, lowStock float64) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := []interface{}{"material_id", "name", "unit", "quantity", "cost_per_unit", "stock_value", "low_stock"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("stock header: %w", err)
	}

	row := 2
	var total decimal.Decimal
	for _, m := range mats {
		value := decimal.NewFromFloat(m.Quantity).Mul(decimal.NewFromFloat(m.CostPerUnit))
		total = total.Add(value)
		low := ""
		if m.Quantity <= lowStock {
			low = "yes"
		}
		if err := setRow(f, sheet, row, []interface{}{
			m.ID, m.Name, string(m.Unit), m.Quantity, m.CostPerUnit, value.InexactFloat64(), low,
		}); err != nil {
			return nil, err
		}
		row++
	}
	if err := setRow(f, sheet, row+1, []interface{}{"", "TOTAL", "", "", "", total.InexactFloat64(), ""}); err != nil {
		return nil, err
	}

	if _, err := f.NewSheet(movementsSheet); err != nil {
		return nil, fmt.Errorf("movements sheet: %w", err)
	}
	mvHeader := []interface{}{"created_at", "invoice_id", "material_id", "type", "qty", "before", "after", "clamped"}
	if err := f.SetSheetRow(movementsSheet, "A1", &mvHeader); err != nil {
		return nil, fmt.Errorf("movements header: %w", err)
	}
	for i, mv := range moves {
		clamped := ""
		if mv.Clamped() {
			clamped = "yes"
		}
		if err := setRow(f, movementsSheet, i+2, []interface{}{
			mv.CreatedAt.Format("2006-01-02 15:04:05"), mv.InvoiceID, mv.MaterialID, string(mv.Type),
			mv.Qty, mv.Before, mv.After, clamped,
		}); err != nil {
			return nil, err
		}
	}

	return write(f)
}

// MarginsXLSX выручка, себестоимость и маржа по каждому инвойсу.
func MarginsXLSX(invs []invoices.Invoice, snap catalog.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(f.GetActiveSheetIndex())
	header := []interface{}{"invoice_id", "date", "customer", "status", "amount", "cost", "margin"}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("margins header: %w", err)
	}

	row := 2
	var sumAmount, sumCost decimal.Decimal
	for _, inv := range invs {
		c := decimal.NewFromFloat(cost.OfInvoice(inv.Items, snap))
		amount := decimal.NewFromFloat(inv.Amount)
		sumAmount = sumAmount.Add(amount)
		sumCost = sumCost.Add(c)
		if err := setRow(f, sheet, row, []interface{}{
			inv.ID, inv.Date.Format("2006-01-02"), inv.Customer, string(inv.Status),
			amount.InexactFloat64(), c.InexactFloat64(), amount.Sub(c).InexactFloat64(),
		}); err != nil {
			return nil, err
		}
		row++
	}
	if err := setRow(f, sheet, row+1, []interface{}{
		"TOTAL", "", "", "", sumAmount.InexactFloat64(), sumCost.InexactFloat64(), sumAmount.Sub(sumCost).InexactFloat64(),
	}); err != nil {
		return nil, err
	}

	return write(f)
}

func setRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell: %w", err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("row %d: %w", row, err)
	}
	return nil
}

func write(f *excelize.File) ([]byte, error) {
	buf := &bytes.Buffer{}
	if err := f.Write(buf); err != nil {
		return nil, fmt.Errorf("write xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
