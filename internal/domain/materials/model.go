package materials

import (
	"errors"
	"time"

	"github.com/Spok95/stockbook/internal/docstore"
)

const Collection = "materials"

var ErrInvalid = errors.New("materials: invalid material")

type Unit string

const (
	UnitPcs Unit = "pcs"
	UnitG   Unit = "g"
)

type Material struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Unit        Unit      `json:"unit,omitempty"`
	Quantity    float64   `json:"quantity"`    // не бывает < 0, меняет только settlement
	CostPerUnit float64   `json:"costPerUnit"` // ₽ за g / шт
	CreatedAt   time.Time `json:"createdAt"`
}

func Ref(id string) docstore.Ref {
	return docstore.Ref{Collection: Collection, ID: id}
}
