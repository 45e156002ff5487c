// Package orders создаёт инвойсы и наборы: номер, запись, затем списание остатков.
//
// Номер и запись документа делаются одной транзакцией и ошибки там жёсткие:
// вызывающий не получает номера. Списание идёт после и только по возможности:
// его сбой логируется, уходит в уведомления и возвращается как
// Result.Warning, но инвойс не откатывает.
package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/infra/metrics"
	"github.com/Spok95/stockbook/internal/infra/notify"
	"github.com/Spok95/stockbook/internal/sequence"
	"github.com/Spok95/stockbook/internal/settlement"
)

var ErrPersistence = errors.New("orders: record not persisted")

type Result struct {
	ID      string
	Plan    settlement.Plan
	Warning error // *settlement.SettlementError, если остатки списаны не полностью
}

type Service struct {
	log      *slog.Logger
	store    docstore.Store
	catalog  *catalog.Repo
	alloc    *sequence.Allocator
	settler  *settlement.Settler
	notifier notify.Notifier
	metrics  *metrics.Metrics
	lowStock float64
	now      func() time.Time
}

type Option func(*Service)

func WithNotifier(n notify.Notifier) Option { return func(s *Service) { s.notifier = n } }

func WithMetrics(m *metrics.Metrics) Option { return func(s *Service) { s.metrics = m } }

// WithLowStockThreshold остаток, при падении до которого шлём предупреждение.
func WithLowStockThreshold(v float64) Option { return func(s *Service) { s.lowStock = v } }

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func NewService(log *slog.Logger, store docstore.Store, opts ...Option) *Service {
	s := &Service{
		log:      log,
		store:    store,
		catalog:  catalog.NewRepo(store),
		alloc:    sequence.NewAllocator(store),
		settler:  settlement.NewSettler(store),
		notifier: notify.NewLog(log),
		lowStock: 1,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics != nil {
		s.alloc.WithObserver(s.metrics.ObserveAllocation)
	}
	return s
}

// CreateInvoice сохраняет инвойс под новым номером и списывает материалы.
// Ошибка возвращается только если инвойс не сохранён.
func (s *Service) CreateInvoice(ctx context.Context, inv invoices.Invoice) (Result, error) {
	inv, err := inv.Prepare(s.now())
	if err != nil {
		return Result{}, err
	}

	// снапшот берём до выдачи номера: по нему считается списание
	snap, err := s.catalog.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	id, err := s.allocateAndPut(ctx, sequence.Invoices, invoices.Ref, func(id string) any {
		inv.ID = id
		return inv
	})
	if err != nil {
		s.log.Error("create invoice failed", "customer", inv.Customer, "err", err)
		return Result{}, err
	}
	if s.metrics != nil {
		s.metrics.InvoicesCreated.Inc()
	}
	s.log.Info("invoice created", "invoice_id", id, "items", len(inv.Items), "amount", inv.Amount)

	// номер уже выдан: отмена запроса не должна оставить остатки несписанными
	plan, serr := s.settler.Settle(context.WithoutCancel(ctx), id, inv.Items, snap)
	res := Result{ID: id, Plan: plan, Warning: serr}
	s.afterSettle(ctx, id, snap, plan, serr)
	return res, nil
}

// CreateProductBundle сохраняет набор под номером вида P100. Остатки не трогает.
func (s *Service) CreateProductBundle(ctx context.Context, b bundles.Bundle) (Result, error) {
	b.Name = strings.TrimSpace(b.Name)
	if err := b.Validate(); err != nil {
		return Result{}, err
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = s.now()
	}

	id, err := s.allocateAndPut(ctx, sequence.ProductBundles, bundles.Ref, func(id string) any {
		b.ID = id
		return b
	})
	if err != nil {
		s.log.Error("create product bundle failed", "name", b.Name, "err", err)
		return Result{}, err
	}
	s.log.Info("product bundle created", "bundle_id", id, "items", len(b.Items))
	return Result{ID: id}, nil
}

func (s *Service) allocateAndPut(ctx context.Context, seq sequence.Seq, ref func(string) docstore.Ref, build func(id string) any) (string, error) {
	var allocated bool
	id, err := s.alloc.AllocateWith(ctx, seq, func(ctx context.Context, tx docstore.Tx, id string) error {
		allocated = true
		return tx.Set(ctx, ref(id), build(id))
	})
	switch {
	case err == nil:
		return id, nil
	case errors.Is(err, sequence.ErrAllocationConflict), !allocated:
		return "", err
	default:
		return "", fmt.Errorf("%w: %s: %w", ErrPersistence, seq.Name, err)
	}
}

func (s *Service) afterSettle(ctx context.Context, invoiceID string, snap catalog.Snapshot, plan settlement.Plan, serr error) {
	applied := true
	if serr != nil {
		var se *settlement.SettlementError
		if errors.As(serr, &se) && se.Err != nil {
			applied = false
			s.countFailure("write")
		}
		if len(plan.Gaps) > 0 {
			s.countFailure("gap")
		}
		s.log.Warn("inventory settlement incomplete", "invoice_id", invoiceID, "err", serr)
		s.notify(ctx, fmt.Sprintf("Инвойс %s: остатки списаны не полностью.\n%v", invoiceID, serr))
	}
	if !applied {
		return
	}

	var lines []string
	for _, u := range plan.Updates {
		if s.metrics != nil {
			s.metrics.StockDeducted.Add(u.Deduction)
		}
		name := u.MaterialID
		if m, ok := snap.Material(u.MaterialID); ok && m.Name != "" {
			name = m.Name
		}
		if u.Clamped() {
			if s.metrics != nil {
				s.metrics.ClampedMaterials.Inc()
			}
			s.log.Info("stock floored at zero",
				"invoice_id", invoiceID,
				"material_id", u.MaterialID,
				"before", u.Before,
				"deduction", u.Deduction,
			)
		}
		if u.After <= s.lowStock && u.Before > s.lowStock {
			lines = append(lines, fmt.Sprintf("• %s: осталось %.2f", name, u.After))
		}
	}
	if len(lines) > 0 {
		s.notify(ctx, "⚠️ Заканчиваются материалы (инвойс "+invoiceID+"):\n"+strings.Join(lines, "\n"))
	}
}

func (s *Service) countFailure(reason string) {
	if s.metrics != nil {
		s.metrics.SettlementFailed.WithLabelValues(reason).Inc()
	}
}

func (s *Service) notify(ctx context.Context, text string) {
	if err := s.notifier.Notify(context.WithoutCancel(ctx), text); err != nil {
		s.log.Error("notify failed", "err", err)
	}
}
