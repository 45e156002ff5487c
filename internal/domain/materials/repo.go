package materials

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

type Repo struct{ store docstore.Store }

func NewRepo(store docstore.Store) *Repo { return &Repo{store: store} }

// Create заводит материал с начальным остатком. Дальше quantity меняется только списаниями.
func (r *Repo) Create(ctx context.Context, name string, unit Unit, quantity, costPerUnit float64) (*Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if quantity < 0 || costPerUnit < 0 {
		return nil, fmt.Errorf("%w: quantity and cost must be >= 0", ErrInvalid)
	}
	if unit == "" {
		unit = UnitPcs
	}

	m := Material{
		ID:          uuid.NewString(),
		Name:        name,
		Unit:        unit,
		Quantity:    quantity,
		CostPerUnit: costPerUnit,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.store.Set(ctx, Ref(m.ID), m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *Repo) GetByID(ctx context.Context, id string) (*Material, error) {
	var m Material
	if err := r.store.Get(ctx, Ref(id), &m); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *Repo) List(ctx context.Context) ([]Material, error) {
	docs, err := r.store.List(ctx, Collection)
	if err != nil {
		return nil, err
	}
	out := make([]Material, 0, len(docs))
	for _, d := range docs {
		var m Material
		if err := d.Decode(&m); err != nil {
			return nil, err
		}
		if m.ID == "" {
			m.ID = d.Ref.ID
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *Repo) UpdateName(ctx context.Context, id, name string) (*Material, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := r.store.Update(ctx, Ref(id), docstore.Fields{"name": name}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *Repo) UpdateCost(ctx context.Context, id string, costPerUnit float64) (*Material, error) {
	if costPerUnit < 0 {
		return nil, fmt.Errorf("%w: cost must be >= 0", ErrInvalid)
	}
	if err := r.store.Update(ctx, Ref(id), docstore.Fields{"costPerUnit": costPerUnit}); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

// SearchByName ищет материалы по части названия, без учёта регистра.
func (r *Repo) SearchByName(ctx context.Context, q string) ([]Material, error) {
	q = strings.ToLower(strings.TrimSpace(q))
	if q == "" {
		return nil, nil
	}
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	var out []Material
	for _, m := range all {
		if strings.Contains(strings.ToLower(m.Name), q) {
			out = append(out, m)
		}
	}
	return out, nil
}
