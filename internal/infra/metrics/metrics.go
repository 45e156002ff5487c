package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

type Metrics struct {
	Allocations      *prometheus.CounterVec // sequence, result
	TxRetries        prometheus.Counter
	InvoicesCreated  prometheus.Counter
	SettlementFailed *prometheus.CounterVec // reason: write|gap
	ClampedMaterials prometheus.Counter
	StockDeducted    prometheus.Counter
}

// New регистрирует метрики в reg. Для /metrics передаём prometheus.DefaultRegisterer,
// в тестах отдельный prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Allocations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockbook",
			Name:      "sequence_allocations_total",
			Help:      "Sequence allocations by sequence and result.",
		}, []string{"sequence", "result"}),
		TxRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Name:      "store_tx_retries_total",
			Help:      "Document store transactions retried after a write conflict.",
		}),
		InvoicesCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Name:      "invoices_created_total",
			Help:      "Invoices persisted.",
		}),
		SettlementFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "stockbook",
			Name:      "settlement_failures_total",
			Help:      "Inventory settlements that did not fully apply.",
		}, []string{"reason"}),
		ClampedMaterials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Name:      "settlement_clamped_materials_total",
			Help:      "Material deductions floored at zero stock.",
		}),
		StockDeducted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "stockbook",
			Name:      "settlement_deducted_units_total",
			Help:      "Material units deducted by settlement.",
		}),
	}
	reg.MustRegister(m.Allocations, m.TxRetries, m.InvoicesCreated, m.SettlementFailed, m.ClampedMaterials, m.StockDeducted)
	return m
}

// ObserveAllocation подходит как observer для sequence.Allocator.
func (m *Metrics) ObserveAllocation(seq string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Allocations.WithLabelValues(seq, result).Inc()
}

// ObserveRetry подходит как docstore.Options.OnRetry.
func (m *Metrics) ObserveRetry(int, error) { m.TxRetries.Inc() }
