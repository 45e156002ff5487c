// Package cost считает себестоимость строк и инвойсов по снапшоту каталога.
// Функции чистые: без I/O и скрытого состояния.
package cost

import (
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/invoices"
)

// OfItem себестоимость одной проданной единицы строки. Умножать на
// количество должен вызывающий. Пропавшие материалы и наборы дают 0.
func OfItem(item invoices.Item, snap catalog.Snapshot) float64 {
	item = item.Normalize()
	switch item.Kind {
	case invoices.KindBundle:
		b, ok := snap.Bundle(item.ProductBundleID)
		if !ok {
			return 0
		}
		var sum float64
		for _, ri := range b.Items {
			if m, ok := snap.Material(ri.MaterialID); ok {
				sum += m.CostPerUnit * float64(ri.Quantity)
			}
		}
		return sum
	case invoices.KindMaterial:
		if m, ok := snap.Material(item.MaterialID); ok {
			return m.CostPerUnit
		}
	}
	return 0
}

// OfInvoice сумма OfItem*quantity по всем строкам; пустой список даёт 0.
func OfInvoice(items []invoices.Item, snap catalog.Snapshot) float64 {
	var sum float64
	for _, it := range items {
		sum += OfItem(it, snap) * it.Quantity
	}
	return sum
}

// Margin выручка инвойса минус себестоимость.
func Margin(inv invoices.Invoice, snap catalog.Snapshot) float64 {
	return inv.Amount - OfInvoice(inv.Items, snap)
}
