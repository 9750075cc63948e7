package catalog

import "strings"

// GroupKey derives the identity of the sellable unit a row belongs to:
// the SKU when present and non-blank, otherwise the row id.
func GroupKey(r ProductRow) string {
	if sku := strings.TrimSpace(r.SKU); sku != "" {
		return sku
	}
	return r.ID
}
