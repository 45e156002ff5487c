package reports

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/jung-kurt/gofpdf"

	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/invoices"
)

// Встроенные шрифты cp1252 кириллицу не печатают, поэтому TTF с UTF-8.
var (
	//go:embed fonts/DejaVuSansCondensed.ttf
	fontRegular []byte
	//go:embed fonts/DejaVuSansCondensed-Bold.ttf
	fontBold []byte
)

const fontFamily = "DejaVu"

// InvoicePDF печатная форма инвойса. Названия позиций берутся из снапшота,
// для удалённых наборов/материалов печатается идентификатор.
func InvoicePDF(inv invoices.Invoice, snap catalog.Snapshot) ([]byte, error) {
	return invoicePDF(inv, snap, true)
}

func invoicePDF(inv invoices.Invoice, snap catalog.Snapshot, compress bool) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetCompression(compress)
	pdf.SetCreationDate(inv.Date)
	pdf.AddUTF8FontFromBytes(fontFamily, "", fontRegular)
	pdf.AddUTF8FontFromBytes(fontFamily, "B", fontBold)
	pdf.AddPage()

	pdf.SetFont(fontFamily, "B", 16)
	pdf.Cell(0, 10, "Invoice #"+inv.ID)
	pdf.Ln(12)

	pdf.SetFont(fontFamily, "", 11)
	pdf.Cell(0, 6, "Customer: "+inv.Customer)
	pdf.Ln(6)
	pdf.Cell(0, 6, "Date: "+inv.Date.Format("02.01.2006"))
	pdf.Ln(6)
	pdf.Cell(0, 6, "Status: "+string(inv.Status))
	pdf.Ln(10)

	widths := []float64{95, 25, 30, 30}
	pdf.SetFont(fontFamily, "B", 11)
	for i, h := range []string{"Item", "Qty", "Price", "Total"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont(fontFamily, "", 10)
	for _, it := range inv.Items {
		pdf.CellFormat(widths[0], 6, itemTitle(it, snap), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%g", it.Quantity), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[2], 6, money(it.Price), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(it.Total()), "1", 0, "R", false, 0, "")
		pdf.Ln(-1)
	}

	pdf.SetFont(fontFamily, "B", 11)
	pdf.CellFormat(widths[0]+widths[1]+widths[2], 7, "Amount", "1", 0, "R", false, 0, "")
	pdf.CellFormat(widths[3], 7, money(inv.Amount), "1", 0, "R", false, 0, "")
	pdf.Ln(-1)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func itemTitle(it invoices.Item, snap catalog.Snapshot) string {
	it = it.Normalize()
	switch it.Kind {
	case invoices.KindBundle:
		if b, ok := snap.Bundle(it.ProductBundleID); ok {
			return b.Name
		}
		return "Bundle " + it.ProductBundleID
	case invoices.KindMaterial:
		if m, ok := snap.Material(it.MaterialID); ok {
			return m.Name
		}
		return "Material " + it.MaterialID
	}
	return it.Description
}
