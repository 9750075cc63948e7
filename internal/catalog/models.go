package catalog

type VariantStatus string

const (
	VariantActive   VariantStatus = "active"
	VariantInactive VariantStatus = "inactive"
)

// ProductRow is one stored product record. Several rows may share a SKU.
type ProductRow struct {
	ID              string   `json:"id"`
	SupplierListID  string   `json:"supplier_list_id"`
	SKU             string   `json:"sku,omitempty"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Brand           string   `json:"brand"`
	ImageURLs       []string `json:"image_urls"`
	PriceCents      int64    `json:"price_cents"`
	Condition       string   `json:"condition"`
	Category        string   `json:"category"`
	Stock           int      `json:"stock"`
	AvailableSizes  []string `json:"available_sizes"`
	AvailableColors []string `json:"available_colors"`
}

// Variant is a (size, color) stock-bearing entry of a product row.
// An empty Size or Color means the dimension is absent.
type Variant struct {
	ID        string        `json:"id"`
	ProductID string        `json:"product_id"`
	Size      string        `json:"size,omitempty"`
	Color     string        `json:"color,omitempty"`
	Stock     int           `json:"stock"`
	Status    VariantStatus `json:"status"`
}

func (v Variant) Live() bool { return v.Status == VariantActive }

// SellableUnit is the SKU-deduplicated view of one or more product rows.
type SellableUnit struct {
	Key            string    `json:"key"`
	ProductIDs     []string  `json:"product_ids"`
	SupplierListID string    `json:"supplier_list_id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	Brand          string    `json:"brand"`
	ImageURLs      []string  `json:"image_urls"`
	PriceCents     int64     `json:"price_cents"`
	Condition      string    `json:"condition"`
	Category       string    `json:"category"`
	TotalStock     int       `json:"total_stock"`
	Sizes          []string  `json:"sizes"`
	Colors         []string  `json:"colors"`
	Variants       []Variant `json:"variants"`
	HasVariants    bool      `json:"has_variants"`

	// member stock per product row, used to pick a row when there are no variants
	RowStock map[string]int `json:"row_stock"`
}

// DisplayVariants returns the active variants that still have stock.
func (u SellableUnit) DisplayVariants() []Variant {
	out := make([]Variant, 0, len(u.Variants))
	for _, v := range u.Variants {
		if v.Live() && v.Stock > 0 {
			out = append(out, v)
		}
	}
	return out
}

// Target is the concrete row a claim decrements: a variant when VariantID is set,
// otherwise the product row itself.
type Target struct {
	ProductID string `json:"product_id"`
	VariantID string `json:"variant_id,omitempty"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}
