package catalog

import (
	"context"
	"fmt"

	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/materials"
)

type Repo struct {
	materials *materials.Repo
	bundles   *bundles.Repo
}

func NewRepo(store docstore.Store) *Repo {
	return &Repo{materials: materials.NewRepo(store), bundles: bundles.NewRepo(store)}
}

func (r *Repo) Snapshot(ctx context.Context) (Snapshot, error) {
	mats, err := r.materials.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot materials: %w", err)
	}
	bs, err := r.bundles.List(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("snapshot bundles: %w", err)
	}
	return NewSnapshot(mats, bs), nil
}
