package purchases

import (
	"time"

	"github.com/Spok95/stockbook/internal/docstore"
)

const Collection = "purchases"

type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Purchase закупка у поставщика. Записи только добавляются, остатки не трогают.
type Purchase struct {
	ID          string    `json:"id"`
	Supplier    string    `json:"supplier"`
	ItemCount   int       `json:"itemCount"`
	TotalAmount float64   `json:"totalAmount"`
	Status      Status    `json:"status"`
	Date        time.Time `json:"date"`
}

func Ref(id string) docstore.Ref {
	return docstore.Ref{Collection: Collection, ID: id}
}
