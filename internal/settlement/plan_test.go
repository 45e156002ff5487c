package settlement

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/domain/materials"
)

func testSnapshot() catalog.Snapshot {
	return catalog.NewSnapshot(
		[]materials.Material{
			{ID: "M1", Name: "Гель", Quantity: 10, CostPerUnit: 5},
			{ID: "M2", Name: "Пилка", Quantity: 4, CostPerUnit: 3},
		},
		[]bundles.Bundle{
			{ID: "P100", Name: "Маникюр", Items: []bundles.Item{
				{MaterialID: "M1", Quantity: 2},
				{MaterialID: "M2", Quantity: 1},
			}},
			{ID: "P101", Name: "Битый", Items: []bundles.Item{
				{MaterialID: "gone", Quantity: 1},
			}},
		},
	)
}

func TestCompute_ClampsAtZero(t *testing.T) {
	plan := Compute([]invoices.Item{invoices.MaterialItem("M1", 12, 8)}, testSnapshot())

	require.Len(t, plan.Updates, 1)
	u := plan.Updates[0]
	assert.Equal(t, Update{MaterialID: "M1", Deduction: 12, Before: 10, After: 0}, u)
	assert.True(t, u.Clamped())
	assert.Equal(t, []Update{u}, plan.Clamped())
	assert.Empty(t, plan.Gaps)
}

func TestCompute_BundleExpandsRecipe(t *testing.T) {
	plan := Compute([]invoices.Item{invoices.BundleItem("P100", 3, 40)}, testSnapshot())

	assert.Equal(t, []Update{
		{MaterialID: "M1", Deduction: 6, Before: 10, After: 4},
		{MaterialID: "M2", Deduction: 3, Before: 4, After: 1},
	}, plan.Updates)
	assert.Empty(t, plan.Clamped())
}

func TestCompute_SumsSharedMaterialBeforeApplying(t *testing.T) {
	// M1 приходит из набора (2*2) и отдельной строкой (3): списываем 7, а не 3
	plan := Compute([]invoices.Item{
		invoices.BundleItem("P100", 2, 40),
		invoices.MaterialItem("M1", 3, 8),
	}, testSnapshot())

	require.Len(t, plan.Updates, 2)
	assert.Equal(t, Update{MaterialID: "M1", Deduction: 7, Before: 10, After: 3}, plan.Updates[0])
	assert.Equal(t, Update{MaterialID: "M2", Deduction: 2, Before: 4, After: 2}, plan.Updates[1])
}

func TestCompute_CustomItemsDeductNothing(t *testing.T) {
	plan := Compute([]invoices.Item{invoices.CustomItem("Consulting", 1, 100)}, testSnapshot())

	assert.Empty(t, plan.Updates)
	assert.Empty(t, plan.Gaps)
}

func TestCompute_RecordsGaps(t *testing.T) {
	plan := Compute([]invoices.Item{
		invoices.BundleItem("P999", 1, 1),
		invoices.MaterialItem("nope", 1, 1),
		invoices.BundleItem("P101", 1, 1),
		invoices.MaterialItem("M2", 1, 1),
	}, testSnapshot())

	assert.Equal(t, []Gap{
		{ItemIndex: 0, BundleID: "P999"},
		{ItemIndex: 1, MaterialID: "nope"},
		{ItemIndex: 2, BundleID: "P101", MaterialID: "gone"},
	}, plan.Gaps)
	require.Len(t, plan.Updates, 1)
	assert.Equal(t, "M2", plan.Updates[0].MaterialID)

	assert.Equal(t, "item 0: missing bundle P999", plan.Gaps[0].String())
	assert.Equal(t, "item 1: missing material nope", plan.Gaps[1].String())
	assert.Equal(t, "item 2: bundle P101 references missing material gone", plan.Gaps[2].String())
}

func TestCompute_SkipsNonPositiveQuantity(t *testing.T) {
	plan := Compute([]invoices.Item{invoices.MaterialItem("M1", 0, 1), invoices.MaterialItem("M1", -2, 1)}, testSnapshot())

	assert.Empty(t, plan.Updates)
}

func TestUpdate_FromRecalculatesAgainstCurrentStock(t *testing.T) {
	u := Compute([]invoices.Item{invoices.MaterialItem("M1", 2, 8)}, testSnapshot()).Updates[0]
	assert.Equal(t, 8.0, u.After)

	// к моменту записи другой инвойс уже списал 2
	cur := u.From(8)
	assert.Equal(t, Update{MaterialID: "M1", Deduction: 2, Before: 8, After: 6}, cur)

	assert.Equal(t, 0.0, u.From(1).After)
	assert.True(t, u.From(1).Clamped())
}

func TestUpdate_Movement(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	u := Compute([]invoices.Item{invoices.MaterialItem("M1", 12, 8)}, testSnapshot()).Updates[0]

	mv := u.Movement("0101", at)
	assert.NotEmpty(t, mv.ID)
	assert.Equal(t, inventory.MoveOut, mv.Type)
	assert.Equal(t, "0101", mv.InvoiceID)
	assert.Equal(t, "M1", mv.MaterialID)
	assert.Equal(t, 12.0, mv.Qty)
	assert.Equal(t, 10.0, mv.Before)
	assert.Equal(t, 0.0, mv.After)
	assert.Equal(t, at, mv.CreatedAt)
	assert.True(t, mv.Clamped())
}
