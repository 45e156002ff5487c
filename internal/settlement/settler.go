package settlement

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/domain/materials"
)

var ErrSettlement = errors.New("settlement: inventory not fully settled")

// SettlementError мягкая ошибка: инвойс уже сохранён, но остатки списаны
// не полностью (упала запись или есть ссылки на несуществующие записи).
type SettlementError struct {
	InvoiceID string
	Gaps      []Gap
	Err       error // ошибка записи остатков, nil если проблема только в Gaps
}

func (e *SettlementError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "settle invoice %s", e.InvoiceID)
	if e.Err != nil {
		fmt.Fprintf(&b, ": write failed: %v", e.Err)
	}
	if len(e.Gaps) > 0 {
		parts := make([]string, len(e.Gaps))
		for i, g := range e.Gaps {
			parts[i] = g.String()
		}
		fmt.Fprintf(&b, ": %d data integrity gap(s): %s", len(e.Gaps), strings.Join(parts, "; "))
	}
	return b.String()
}

func (e *SettlementError) Unwrap() error { return e.Err }

func (e *SettlementError) Is(target error) bool { return target == ErrSettlement }

type Settler struct {
	store docstore.Store
	now   func() time.Time
}

func NewSettler(store docstore.Store) *Settler {
	return &Settler{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// Settle считает план по снапшоту и применяет его.
// План возвращается и при ошибке, чтобы вызывающий мог залогировать детали.
func (s *Settler) Settle(ctx context.Context, invoiceID string, items []invoices.Item, snap catalog.Snapshot) (Plan, error) {
	return s.Apply(ctx, invoiceID, Compute(items, snap))
}

// Apply списывает материалы плана одной транзакцией. Остатки перечитываются
// внутри неё, так что параллельные инвойсы вычитают каждый своё, а не
// перезаписывают друг друга. В возвращённом плане Before/After это
// фактически записанные значения; при ошибке записи возвращается исходный план.
func (s *Settler) Apply(ctx context.Context, invoiceID string, plan Plan) (Plan, error) {
	applied := plan
	if len(plan.Updates) > 0 {
		at := s.now()
		err := s.store.RunTransaction(ctx, func(ctx context.Context, tx docstore.Tx) error {
			updates := make([]Update, len(plan.Updates))
			for i, u := range plan.Updates {
				var m materials.Material
				if err := tx.Get(ctx, materials.Ref(u.MaterialID), &m); err != nil {
					return fmt.Errorf("read material %s: %w", u.MaterialID, err)
				}
				updates[i] = u.From(m.Quantity)
			}
			for _, u := range updates {
				if err := tx.Update(ctx, materials.Ref(u.MaterialID), docstore.Fields{"quantity": u.After}); err != nil {
					return fmt.Errorf("write material %s: %w", u.MaterialID, err)
				}
				mv := u.Movement(invoiceID, at)
				if err := tx.Set(ctx, inventory.Ref(mv.ID), mv); err != nil {
					return fmt.Errorf("write movement %s: %w", u.MaterialID, err)
				}
			}
			applied.Updates = updates
			return nil
		})
		if err != nil {
			return plan, &SettlementError{InvoiceID: invoiceID, Gaps: plan.Gaps, Err: err}
		}
	}
	if len(plan.Gaps) == 0 {
		return applied, nil
	}
	return applied, &SettlementError{InvoiceID: invoiceID, Gaps: plan.Gaps}
}
