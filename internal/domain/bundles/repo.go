package bundles

import (
	"context"
	"errors"

	"github.com/Spok95/stockbook/internal/docstore"
)

// Repo только читает: новые наборы создаёт orders вместе с выдачей номера.
type Repo struct{ store docstore.Store }

func NewRepo(store docstore.Store) *Repo { return &Repo{store: store} }

func (r *Repo) GetByID(ctx context.Context, id string) (*Bundle, error) {
	var b Bundle
	if err := r.store.Get(ctx, Ref(id), &b); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *Repo) List(ctx context.Context) ([]Bundle, error) {
	docs, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]Bundle, 0, len(docs))
	for _, d := range docs {
		var b Bundle
		if err := d.Decode(&b); err != nil {
			return nil, err
		}
		if b.ID == "" {
			b.ID = d.Ref.ID
		}
		out = append(out, b)
	}
	return out, nil
}
