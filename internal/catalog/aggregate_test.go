package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleBatch() ([]ProductRow, []Variant) {
	rows := []ProductRow{
		{ID: "p2", SupplierListID: "l1", SKU: "TEE", Name: "Tee", PriceCents: 10000, Stock: 3, AvailableSizes: []string{"M", "L"}, AvailableColors: []string{"red"}},
		{ID: "p1", SupplierListID: "l1", SKU: "TEE", Name: "Tee", PriceCents: 10000, Stock: 2, AvailableSizes: []string{"S", "M"}, AvailableColors: []string{"blue"}},
		{ID: "p3", SupplierListID: "l1", Name: "Cap", PriceCents: 5000, Stock: 7},
	}
	variants := []Variant{
		{ID: "v3", ProductID: "p2", Size: "L", Color: "red", Stock: 4, Status: VariantActive},
		{ID: "v1", ProductID: "p1", Size: "S", Color: "blue", Stock: 1, Status: VariantActive},
		{ID: "v2", ProductID: "p1", Size: "M", Color: "blue", Stock: 5, Status: VariantInactive},
		{ID: "vx", ProductID: "ghost", Size: "S", Stock: 9, Status: VariantActive},
	}
	return rows, variants
}

func TestAggregate_MergesBySKU(t *testing.T) {
	rows, variants := sampleBatch()
	res := Aggregate(rows, variants)

	require.Len(t, res.Units, 2)
	assert.Equal(t, "TEE", res.Units[0].Key)
	assert.Equal(t, "p3", res.Units[1].Key)

	tee := res.Units[0]
	assert.Equal(t, []string{"p1", "p2"}, tee.ProductIDs)
	// p1: only v1 is live (1); p2: v3 (4)
	assert.Equal(t, 5, tee.TotalStock)
	assert.Equal(t, []string{"S", "M", "L"}, tee.Sizes)
	assert.Equal(t, []string{"blue", "red"}, tee.Colors)
	assert.True(t, tee.HasVariants)
	assert.Len(t, tee.Variants, 3)
	assert.Len(t, tee.DisplayVariants(), 2)

	capUnit := res.Units[1]
	assert.Equal(t, 7, capUnit.TotalStock)
	assert.False(t, capUnit.HasVariants)
	assert.Empty(t, capUnit.Sizes)

	require.Len(t, res.Orphans, 1)
	assert.Equal(t, "vx", res.Orphans[0].ID)
}

func TestAggregate_OrderIndependentAndIdempotent(t *testing.T) {
	rows, variants := sampleBatch()
	first := Aggregate(rows, variants)
	second := Aggregate(rows, variants)
	assert.Equal(t, first, second)

	reversedRows := make([]ProductRow, len(rows))
	for i := range rows {
		reversedRows[len(rows)-1-i] = rows[i]
	}
	reversedVariants := make([]Variant, len(variants))
	for i := range variants {
		reversedVariants[len(variants)-1-i] = variants[i]
	}
	assert.Equal(t, first, Aggregate(reversedRows, reversedVariants))
}

func TestAggregate_NeverDropsRows(t *testing.T) {
	rows := []ProductRow{{ID: "a", SKU: "X"}, {ID: "b", SKU: "X"}, {ID: "c"}, {ID: "d", SKU: " "}}
	res := Aggregate(rows, nil)

	seen := 0
	for _, u := range res.Units {
		seen += len(u.ProductIDs)
	}
	assert.Equal(t, len(rows), seen)
	assert.Len(t, res.Units, 3)
}
