package purchases

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Spok95/stockbook/internal/docstore"
)

var ErrInvalid = errors.New("purchases: invalid purchase")

type Repo struct{ store docstore.Store }

func NewRepo(store docstore.Store) *Repo { return &Repo{store: store} }

func (r *Repo) Create(ctx context.Context, p Purchase) (*Purchase, error) {
	p.Supplier = strings.TrimSpace(p.Supplier)
	if p.Supplier == "" {
		return nil, fmt.Errorf("%w: supplier is required", ErrInvalid)
	}
	if p.ItemCount < 0 || p.TotalAmount < 0 {
		return nil, fmt.Errorf("%w: item count and total must be >= 0", ErrInvalid)
	}
	switch p.Status {
	case "":
		p.Status = StatusPending
	case StatusPending, StatusCompleted, StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalid, p.Status)
	}
	if p.Date.IsZero() {
		p.Date = time.Now().UTC()
	}
	p.ID = uuid.NewString()

	if err := r.store.Set(ctx, Ref(p.ID), p); err != nil {
		return nil, err
	}
	return &p, nil
}

// List новые сверху.
func (r *Repo) List(ctx context.Context) ([]Purchase, error) {
	docs, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]Purchase, 0, len(docs))
	for _, d := range docs {
		var p Purchase
		if err := d.Decode(&p); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}
