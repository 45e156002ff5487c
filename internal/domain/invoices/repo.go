package invoices

import (
	"context"
	"errors"
	"sort"

	"github.com/Spok95/stockbook/internal/docstore"
)

// Repo чтение и смена статуса. Создание идёт через orders (номер + запись в одной транзакции).
type Repo struct{ store docstore.Store }

func NewRepo(store docstore.Store) *Repo { return &Repo{store: store} }

func (r *Repo) GetByID(ctx context.Context, id string) (*Invoice, error) {
	var inv Invoice
	if err := r.store.Get(ctx, Ref(id), &inv); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &inv, nil
}

// List возвращает инвойсы по возрастанию номера.
func (r *Repo) List(ctx context.Context) ([]Invoice, error) {
	docs, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]Invoice, 0, len(docs))
	for _, d := range docs {
		var inv Invoice
		if err := d.Decode(&inv); err != nil {
			return nil, err
		}
		if inv.ID == "" {
			inv.ID = d.Ref.ID
		}
		out = append(out, inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *Repo) SetStatus(ctx context.Context, id string, status Status) error {
	if _, err := ParseStatus(string(status)); err != nil {
		return err
	}
	return r.store.Update(ctx, Ref(id), docstore.Fields{"status": status})
}
