package materials

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/docstore/memstore"
)

func TestRepo_CreateAndList(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(memstore.New(docstore.Options{}))

	gel, err := r.Create(ctx, " Гель ", UnitG, 100, 0.5)
	require.NoError(t, err)
	_, err = r.Create(ctx, "Базовое покрытие", "", 3, 20)
	require.NoError(t, err)

	assert.Equal(t, "Гель", gel.Name)

	list, err := r.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Базовое покрытие", list[0].Name)
	assert.Equal(t, UnitPcs, list[0].Unit)

	got, err := r.GetByID(ctx, gel.ID)
	require.NoError(t, err)
	assert.Equal(t, 100.0, got.Quantity)

	missing, err := r.GetByID(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestRepo_CreateRejects(t *testing.T) {
	r := NewRepo(memstore.New(docstore.Options{}))

	_, err := r.Create(context.Background(), "  ", UnitPcs, 1, 1)
	assert.ErrorIs(t, err, ErrInvalid)
	_, err = r.Create(context.Background(), "x", UnitPcs, -1, 1)
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestRepo_Updates(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(memstore.New(docstore.Options{}))
	m, err := r.Create(ctx, "Пилка", UnitPcs, 5, 3)
	require.NoError(t, err)

	m, err = r.UpdateCost(ctx, m.ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4.0, m.CostPerUnit)
	assert.Equal(t, 5.0, m.Quantity)

	m, err = r.UpdateName(ctx, m.ID, "Пилка 180")
	require.NoError(t, err)
	assert.Equal(t, "Пилка 180", m.Name)

	_, err = r.UpdateCost(ctx, "nope", 1)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestRepo_SearchByName(t *testing.T) {
	ctx := context.Background()
	r := NewRepo(memstore.New(docstore.Options{}))
	for _, n := range []string{"Гель красный", "Гель белый", "Пилка"} {
		_, err := r.Create(ctx, n, UnitPcs, 1, 1)
		require.NoError(t, err)
	}

	found, err := r.SearchByName(ctx, "ГЕЛЬ")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = r.SearchByName(ctx, " ")
	require.NoError(t, err)
	assert.Empty(t, found)
}
