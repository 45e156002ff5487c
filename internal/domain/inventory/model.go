package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/stockbook/internal/docstore"
)

const Collection = "movements"

type MoveType string

const (
	MoveIn  MoveType = "in"
	MoveOut MoveType = "out"
)

// Movement запись журнала остатков. Before/After фиксируют, что было и что
// записали, так что обнуление по нижней границе видно при сверке.
type Movement struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"createdAt"`
	MaterialID string    `json:"materialId"`
	InvoiceID  string    `json:"invoiceId,omitempty"`
	Qty        float64   `json:"qty"` // запрошенное списание/приход, всегда > 0
	Before     float64   `json:"before"`
	After      float64   `json:"after"`
	Type       MoveType  `json:"type"`
	Note       string    `json:"note,omitempty"`
}

func Ref(id string) docstore.Ref {
	return docstore.Ref{Collection: Collection, ID: id}
}

// Clamped списали меньше, чем просили: остаток упёрся в ноль.
func (m Movement) Clamped() bool {
	return m.Type == MoveOut && m.Before-m.After < m.Qty
}

func NewWriteOff(invoiceID, materialID string, qty, before, after float64, at time.Time) Movement {
	return Movement{
		ID:         uuid.NewString(),
		CreatedAt:  at,
		MaterialID: materialID,
		InvoiceID:  invoiceID,
		Qty:        qty,
		Before:     before,
		After:      after,
		Type:       MoveOut,
		Note:       "invoice " + invoiceID,
	}
}
