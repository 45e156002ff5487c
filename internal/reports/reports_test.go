package reports

import (
	"bytes"
	"testing"
	"time"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/domain/materials"
)

var at = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func testSnapshot() catalog.Snapshot {
	return catalog.NewSnapshot(
		[]materials.Material{
			{ID: "M1", Name: "Gel", Unit: materials.UnitG, Quantity: 10, CostPerUnit: 5},
			{ID: "M2", Name: "File", Unit: materials.UnitPcs, Quantity: 1, CostPerUnit: 3},
		},
		[]bundles.Bundle{{ID: "P100", Name: "Manicure", Items: []bundles.Item{
			{MaterialID: "M1", Quantity: 2},
			{MaterialID: "M2", Quantity: 1},
		}}},
	)
}

func open(t *testing.T, data []byte) *excelize.File {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestStockXLSX(t *testing.T) {
	snap := testSnapshot()
	mats := []materials.Material{snap.Materials["M1"], snap.Materials["M2"]}
	moves := []inventory.Movement{inventory.NewWriteOff("0101", "M2", 4, 3, 0, at)}

	data, err := StockXLSX(mats, moves, 1)
	require.NoError(t, err)

	f := open(t, data)
	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(rows), 3)
	assert.Equal(t, "material_id", rows[0][0])
	assert.Equal(t, "M1", rows[1][0])
	assert.Equal(t, "50", rows[1][5])
	assert.Equal(t, "yes", rows[2][6], "quantity at threshold is low")

	total, err := f.GetCellValue(sheet, "F5")
	require.NoError(t, err)
	assert.Equal(t, "53", total)

	mv, err := f.GetRows(movementsSheet)
	require.NoError(t, err)
	require.Len(t, mv, 2)
	assert.Equal(t, "0101", mv[1][1])
	assert.Equal(t, "yes", mv[1][7])
}

func TestMarginsXLSX(t *testing.T) {
	invs := []invoices.Invoice{
		{ID: "0101", Customer: "Anna", Status: invoices.StatusPaid, Date: at, Amount: 120,
			Items: []invoices.Item{invoices.BundleItem("P100", 3, 40)}},
		{ID: "0102", Customer: "Olga", Status: invoices.StatusUnpaid, Date: at, Amount: 100,
			Items: []invoices.Item{invoices.CustomItem("Consulting", 1, 100)}},
	}

	data, err := MarginsXLSX(invs, testSnapshot())
	require.NoError(t, err)

	f := open(t, data)
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 5)
	assert.Equal(t, []string{"0101", "2025-03-01", "Anna", "paid", "120", "39", "81"}, rows[1])
	assert.Equal(t, []string{"0102", "2025-03-01", "Olga", "unpaid", "100", "0", "100"}, rows[2])
	assert.Equal(t, []string{"TOTAL", "", "", "", "220", "39", "181"}, rows[4])
}

func TestInvoicePDF(t *testing.T) {
	inv := invoices.Invoice{
		ID: "0101", Customer: "Anna", Status: invoices.StatusUnpaid, Date: at, Amount: 220,
		Items: []invoices.Item{
			invoices.BundleItem("P100", 3, 40),
			invoices.MaterialItem("gone", 1, 0),
			invoices.CustomItem("Consulting", 1, 100),
		},
	}

	data, err := InvoicePDF(inv, testSnapshot())
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("%PDF")))
}

func TestInvoicePDF_Cyrillic(t *testing.T) {
	inv := invoices.Invoice{
		ID: "0102", Customer: "Анна", Status: invoices.StatusPaid, Date: at, Amount: 120,
		Items: []invoices.Item{invoices.BundleItem("P100", 3, 40)},
	}

	data, err := invoicePDF(inv, testSnapshot(), false)
	require.NoError(t, err)

	// шрифт встроен, текст идёт глифами UTF-16BE, а не сырыми байтами UTF-8
	assert.Contains(t, string(data), "/FontFile2")
	assert.Contains(t, string(data), "("+utf16be("Customer: Анна")+")")
	assert.NotContains(t, string(data), "Customer: Анна")
	assert.NotContains(t, string(data), "Customer: Ð")
}

func utf16be(s string) string {
	var b []byte
	for _, r := range utf16.Encode([]rune(s)) {
		b = append(b, byte(r>>8), byte(r))
	}
	return string(b)
}

func TestItemTitle(t *testing.T) {
	snap := testSnapshot()

	assert.Equal(t, "Manicure", itemTitle(invoices.BundleItem("P100", 1, 1), snap))
	assert.Equal(t, "Bundle P999", itemTitle(invoices.BundleItem("P999", 1, 1), snap))
	assert.Equal(t, "Gel", itemTitle(invoices.MaterialItem("M1", 1, 1), snap))
	assert.Equal(t, "Material gone", itemTitle(invoices.MaterialItem("gone", 1, 1), snap))
	assert.Equal(t, "Consulting", itemTitle(invoices.CustomItem("Consulting", 1, 1), snap))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "0.30", money(0.1+0.2))
	assert.Equal(t, "12.00", money(12))
}
