// Package settlement списывает материалы под новый инвойс: прямые материальные
// строки и материалы внутри наборов. Остаток никогда не уходит ниже нуля.
package settlement

import (
	"fmt"
	"math"
	"time"

	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
)

// Gap строка ссылается на набор или материал, которого нет в снапшоте.
// Такая ссылка ничего не списывает.
type Gap struct {
	ItemIndex  int
	BundleID   string
	MaterialID string
}

func (g Gap) String() string {
	switch {
	case g.BundleID != "" && g.MaterialID != "":
		return fmt.Sprintf("item %d: bundle %s references missing material %s", g.ItemIndex, g.BundleID, g.MaterialID)
	case g.BundleID != "":
		return fmt.Sprintf("item %d: missing bundle %s", g.ItemIndex, g.BundleID)
	default:
		return fmt.Sprintf("item %d: missing material %s", g.ItemIndex, g.MaterialID)
	}
}

// Update итоговое списание по одному материалу.
type Update struct {
	MaterialID string
	Deduction  float64
	Before     float64
	After      float64
}

func (u Update) Clamped() bool { return u.Deduction > u.Before }

// From пересчитывает Before/After от остатка current. Deduction не меняется.
func (u Update) From(current float64) Update {
	u.Before = current
	u.After = math.Max(0, current-u.Deduction)
	return u
}

type Plan struct {
	Updates []Update // в порядке первого упоминания материала
	Gaps    []Gap
}

// Compute суммирует списания по каждому материалу со всех строк и только потом
// считает новый остаток max(0, остаток - сумма). Before/After здесь по снапшоту;
// Settler.Apply пересчитывает их от остатка на момент записи.
func Compute(items []invoices.Item, snap catalog.Snapshot) Plan {
	var (
		plan   Plan
		order  []string
		totals = map[string]float64{}
	)
	add := func(idx int, bundleID, materialID string, qty float64) {
		if _, ok := snap.Material(materialID); !ok {
			plan.Gaps = append(plan.Gaps, Gap{ItemIndex: idx, BundleID: bundleID, MaterialID: materialID})
			return
		}
		if _, seen := totals[materialID]; !seen {
			order = append(order, materialID)
		}
		totals[materialID] += qty
	}

	for i, it := range items {
		it = it.Normalize()
		if it.Quantity <= 0 {
			continue
		}
		switch it.Kind {
		case invoices.KindBundle:
			b, ok := snap.Bundle(it.ProductBundleID)
			if !ok {
				plan.Gaps = append(plan.Gaps, Gap{ItemIndex: i, BundleID: it.ProductBundleID})
				continue
			}
			for _, ri := range b.Items {
				add(i, b.ID, ri.MaterialID, float64(ri.Quantity)*it.Quantity)
			}
		case invoices.KindMaterial:
			add(i, "", it.MaterialID, it.Quantity)
		}
	}

	for _, id := range order {
		m, _ := snap.Material(id)
		plan.Updates = append(plan.Updates, Update{MaterialID: id, Deduction: totals[id]}.From(m.Quantity))
	}
	return plan
}

// Movement запись журнала для этого списания.
func (u Update) Movement(invoiceID string, at time.Time) inventory.Movement {
	return inventory.NewWriteOff(invoiceID, u.MaterialID, u.Deduction, u.Before, u.After, at)
}

func (p Plan) Clamped() []Update {
	var out []Update
	for _, u := range p.Updates {
		if u.Clamped() {
			out = append(out, u)
		}
	}
	return out
}
