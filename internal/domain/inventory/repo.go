package inventory

import (
	"context"
	"sort"

	"github.com/Spok95/stockbook/internal/docstore"
)

// Repo читает журнал. Пишет его settlement одним пакетом с остатками.
type Repo struct{ store docstore.Store }

func NewRepo(store docstore.Store) *Repo { return &Repo{store: store} }

func (r *Repo) List(ctx context.Context) ([]Movement, error) {
	docs, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]Movement, 0, len(docs))
	for _, d := range docs {
		var m Movement
		if err := d.Decode(&m); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *Repo) ListByInvoice(ctx context.Context, invoiceID string) ([]Movement, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Movement
	for _, m := range all {
		if m.InvoiceID == invoiceID {
			out = append(out, m)
		}
	}
	return out, nil
}
