package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGroupKey(t *testing.T) {
	assert.Equal(t, "SKU-1", GroupKey(ProductRow{ID: "p1", SKU: "SKU-1"}))
	assert.Equal(t, "SKU-1", GroupKey(ProductRow{ID: "p1", SKU: "  SKU-1 "}))
	assert.Equal(t, "p1", GroupKey(ProductRow{ID: "p1", SKU: ""}))
	assert.Equal(t, "p2", GroupKey(ProductRow{ID: "p2", SKU: "   "}))
}
