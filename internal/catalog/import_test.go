package catalog

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func workbook(t *testing.T, rows ...[]interface{}) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		row := r
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

var header = []interface{}{"Name", "Image_URL", "Price", "Sizes", "Colors", "Condition", "Category", "Stock", "SKU"}

func TestParseSheet(t *testing.T) {
	buf := workbook(t,
		header,
		[]interface{}{"Linen shirt", "https://img/1.jpg", "125.50", "S, M|L", "white", "new", "tops", "4", "LIN-1"},
		[]interface{}{"", "", "10", "", "", "", "", "1", ""},
		[]interface{}{"Cap", "", "-3", "", "", "", "", "1", ""},
		[]interface{}{"Belt", "", "9.999", "", "", "", "", "1", ""},
		[]interface{}{"Sock", "", "2", "", "", "", "", "many", ""},
	)

	rows, errs, err := ParseSheet(buf, "l1")
	require.NoError(t, err)
	require.Len(t, rows, 1)

	p := rows[0]
	assert.Equal(t, "Linen shirt", p.Name)
	assert.Equal(t, int64(12550), p.PriceCents)
	assert.Equal(t, []string{"S", "M", "L"}, p.AvailableSizes)
	assert.Equal(t, []string{"white"}, p.AvailableColors)
	assert.Equal(t, "LIN-1", p.SKU)
	assert.Equal(t, "l1", p.SupplierListID)
	assert.NotEmpty(t, p.ID)

	require.Len(t, errs, 4)
	assert.Equal(t, 3, errs[0].Row)
	assert.Equal(t, 4, errs[1].Row)
	assert.Equal(t, 5, errs[2].Row)
	assert.Equal(t, 6, errs[3].Row)
}

func TestParseSheet_MissingColumn(t *testing.T) {
	buf := workbook(t, []interface{}{"name", "price"})
	_, _, err := ParseSheet(buf, "l1")
	assert.Error(t, err)
}

func TestService_Import(t *testing.T) {
	store := &fakeStore{}
	cache := newFakeCache()
	svc := &Service{Store: store, Cache: cache}
	cache.data["catalog:l1"] = []byte(`[]`)

	buf := workbook(t,
		header[:8],
		[]interface{}{"Shoe", "", "300", "40,41", "", "used", "shoes", "2"},
	)
	rep, err := svc.Import(context.Background(), "l1", buf)
	require.NoError(t, err)
	assert.Equal(t, 1, rep.Imported)
	assert.Empty(t, rep.Errors)
	require.Len(t, store.rows, 1)
	assert.Equal(t, int64(30000), store.rows[0].PriceCents)
	assert.NotContains(t, cache.data, "catalog:l1")
}
