package invoices

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestItem_Normalize(t *testing.T) {
	tests := []struct {
		name string
		in   Item
		want Item
	}{
		{"bundle only", Item{ProductBundleID: "P100"}, Item{Kind: KindBundle, ProductBundleID: "P100"}},
		{"material only", Item{MaterialID: "M1"}, Item{Kind: KindMaterial, MaterialID: "M1"}},
		{"neither", Item{Description: "Consulting"}, Item{Kind: KindCustom, Description: "Consulting"}},
		{"both ids prefer bundle", Item{ProductBundleID: "P100", MaterialID: "M1"}, Item{Kind: KindBundle, ProductBundleID: "P100"}},
		{"explicit material kept", Item{Kind: KindMaterial, ProductBundleID: "P100", MaterialID: "M1"}, Item{Kind: KindMaterial, MaterialID: "M1"}},
		{"explicit custom drops ids", Item{Kind: KindCustom, MaterialID: "M1"}, Item{Kind: KindCustom}},
		{"kind without its id is derived", Item{Kind: KindBundle, MaterialID: "M1"}, Item{Kind: KindMaterial, MaterialID: "M1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.in.Normalize())
		})
	}
}

func TestItem_UnmarshalLegacyDocument(t *testing.T) {
	var it Item
	require.NoError(t, json.Unmarshal([]byte(`{"productBundleId":"P100","quantity":2,"price":40}`), &it))

	assert.Equal(t, BundleItem("P100", 2, 40), it)
}

func TestInvoice_UnmarshalMalformedItems(t *testing.T) {
	for _, raw := range []string{
		`{"id":"0101","customer":"Анна","items":"oops"}`,
		`{"id":"0101","customer":"Анна","items":{"a":1}}`,
		`{"id":"0101","customer":"Анна"}`,
	} {
		var inv Invoice
		require.NoError(t, json.Unmarshal([]byte(raw), &inv), raw)
		assert.Equal(t, "0101", inv.ID)
		assert.Equal(t, "Анна", inv.Customer)
		assert.Nil(t, inv.Items, raw)
	}
}

func TestInvoice_UnmarshalItems(t *testing.T) {
	var inv Invoice
	require.NoError(t, json.Unmarshal([]byte(`{"id":"0101","items":[{"materialId":"M1","quantity":1,"price":5}]}`), &inv))

	assert.Equal(t, []Item{MaterialItem("M1", 1, 5)}, inv.Items)
}

func TestInvoice_Prepare(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	inv, err := Invoice{
		Customer: "  Анна ",
		Items: []Item{
			{ProductBundleID: "P100", Quantity: 2, Price: 40},
			{Description: "Дизайн", Quantity: 1, Price: 15},
		},
	}.Prepare(now)
	require.NoError(t, err)

	assert.Equal(t, "Анна", inv.Customer)
	assert.Equal(t, StatusUnpaid, inv.Status)
	assert.Equal(t, now, inv.Date)
	assert.Equal(t, 95.0, inv.Amount)
	assert.Equal(t, KindBundle, inv.Items[0].Kind)
	assert.Equal(t, KindCustom, inv.Items[1].Kind)
}

func TestInvoice_PrepareKeepsExplicitAmount(t *testing.T) {
	inv, err := Invoice{Customer: "Анна", Amount: 70, Items: []Item{CustomItem("x", 1, 100)}}.Prepare(time.Now())
	require.NoError(t, err)
	assert.Equal(t, 70.0, inv.Amount)
}

func TestInvoice_PrepareRejects(t *testing.T) {
	now := time.Now()

	_, err := Invoice{}.Prepare(now)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Invoice{Customer: "Анна", Items: []Item{MaterialItem("M1", 0, 1)}}.Prepare(now)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Invoice{Customer: "Анна", Items: []Item{MaterialItem("M1", 1, -1)}}.Prepare(now)
	assert.ErrorIs(t, err, ErrInvalid)

	_, err = Invoice{Customer: "Анна", Status: "cancelled"}.Prepare(now)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" PAID ")
	require.NoError(t, err)
	assert.Equal(t, StatusPaid, st)

	_, err = ParseStatus("refunded")
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestInvoice_PrepareCanonicalStatus(t *testing.T) {
	for _, raw := range []Status{"PAID", " paid ", "Paid"} {
		inv, err := Invoice{Customer: "Анна", Status: raw}.Prepare(time.Now())
		require.NoError(t, err, raw)
		assert.Equal(t, StatusPaid, inv.Status, raw)
	}
}
