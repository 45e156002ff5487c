package invoices

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Spok95/stockbook/internal/docstore"
)

const Collection = "invoices"

var (
	ErrInvalid       = errors.New("invoices: invalid invoice")
	ErrInvalidStatus = errors.New("invoices: invalid status")
)

type Status string

const (
	StatusPaid    Status = "paid"
	StatusUnpaid  Status = "unpaid"
	StatusOverdue Status = "overdue"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToLower(strings.TrimSpace(s))); st {
	case StatusPaid, StatusUnpaid, StatusOverdue:
		return st, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
}

type Kind string

const (
	KindBundle   Kind = "bundle"
	KindMaterial Kind = "material"
	KindCustom   Kind = "custom"
)

// Item строка инвойса: набор, материал или произвольная позиция.
// В хранилище лежат productBundleId/materialId (так записаны старые инвойсы)
// плюс явный kind.
type Item struct {
	Kind            Kind    `json:"kind"`
	ProductBundleID string  `json:"productBundleId,omitempty"`
	MaterialID      string  `json:"materialId,omitempty"`
	Description     string  `json:"description,omitempty"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
}

func BundleItem(bundleID string, qty, price float64) Item {
	return Item{Kind: KindBundle, ProductBundleID: bundleID, Quantity: qty, Price: price}
}

func MaterialItem(materialID string, qty, price float64) Item {
	return Item{Kind: KindMaterial, MaterialID: materialID, Quantity: qty, Price: price}
}

func CustomItem(description string, qty, price float64) Item {
	return Item{Kind: KindCustom, Description: description, Quantity: qty, Price: price}
}

// Normalize приводит строку к одному варианту. Явный kind сохраняется, если
// у него есть свой идентификатор; иначе вариант определяется по идентификаторам,
// и при обоих заполненных побеждает набор.
func (it Item) Normalize() Item {
	switch {
	case it.Kind == KindBundle && it.ProductBundleID != "":
		it.MaterialID = ""
	case it.Kind == KindMaterial && it.MaterialID != "":
		it.ProductBundleID = ""
	case it.Kind == KindCustom:
		it.ProductBundleID, it.MaterialID = "", ""
	case it.ProductBundleID != "":
		it.Kind, it.MaterialID = KindBundle, ""
	case it.MaterialID != "":
		it.Kind = KindMaterial
	default:
		it.Kind = KindCustom
	}
	return it
}

func (it *Item) UnmarshalJSON(data []byte) error {
	type plain Item
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*it = Item(p).Normalize()
	return nil
}

func (it Item) Total() float64 { return it.Price * it.Quantity }

type Invoice struct {
	ID       string    `json:"id"`
	Customer string    `json:"customer"`
	Amount   float64   `json:"amount"`
	Status   Status    `json:"status"`
	Date     time.Time `json:"date"`
	Items    []Item    `json:"items"`
}

// UnmarshalJSON терпим к битому items: такой инвойс читается без строк.
func (inv *Invoice) UnmarshalJSON(data []byte) error {
	type plain Invoice
	var p struct {
		plain
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*inv = Invoice(p.plain)
	inv.Items = nil
	var items []Item
	if len(p.Items) > 0 && json.Unmarshal(p.Items, &items) == nil {
		inv.Items = items
	}
	return nil
}

func (inv Invoice) Total() float64 {
	var sum float64
	for _, it := range inv.Items {
		sum += it.Total()
	}
	return sum
}

// Prepare нормализует строки и проставляет значения по умолчанию перед записью.
func (inv Invoice) Prepare(now time.Time) (Invoice, error) {
	inv.Customer = strings.TrimSpace(inv.Customer)
	if inv.Customer == "" {
		return inv, fmt.Errorf("%w: customer is required", ErrInvalid)
	}
	if inv.Status == "" {
		inv.Status = StatusUnpaid
	}
	st, err := ParseStatus(string(inv.Status))
	if err != nil {
		return inv, err
	}
	inv.Status = st
	if inv.Date.IsZero() {
		inv.Date = now
	}
	items := make([]Item, len(inv.Items))
	for i, it := range inv.Items {
		it = it.Normalize()
		if it.Quantity <= 0 {
			return inv, fmt.Errorf("%w: item %d quantity must be > 0", ErrInvalid, i)
		}
		if it.Price < 0 {
			return inv, fmt.Errorf("%w: item %d price must be >= 0", ErrInvalid, i)
		}
		items[i] = it
	}
	inv.Items = items
	if inv.Amount == 0 {
		inv.Amount = inv.Total()
	}
	return inv, nil
}

func Ref(id string) docstore.Ref {
	return docstore.Ref{Collection: Collection, ID: id}
}
