package bundles

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/stockbook/internal/docstore"
)

const Collection = "productBundles"

var ErrInvalid = errors.New("bundles: invalid product bundle")

// Item строка рецепта: сколько единиц материала уходит на один проданный набор.
type Item struct {
	MaterialID string `json:"materialId"`
	Quantity   int    `json:"quantity"`
}

// Bundle набор материалов со своей ценой. Собственного остатка нет,
// продажа списывает входящие материалы.
type Bundle struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Price     float64   `json:"price"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"createdAt"`
}

func Ref(id string) docstore.Ref {
	return docstore.Ref{Collection: Collection, ID: id}
}

func (b Bundle) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if b.Price < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrInvalid)
	}
	for i, it := range b.Items {
		if it.MaterialID == "" {
			return fmt.Errorf("%w: item %d has no material", ErrInvalid, i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be >= 1", ErrInvalid, i)
		}
	}
	return nil
}
