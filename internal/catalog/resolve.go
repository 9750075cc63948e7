package catalog

import (
	"sort"

	"github.com/ariefcatur/go-groupbuy-drops/internal/apperr"
)

type ResolutionStatus string

const (
	// Resolved: a variant with stock matches the selection.
	Resolved ResolutionStatus = "resolved"
	// Incomplete: an offered dimension has not been selected.
	Incomplete ResolutionStatus = "incomplete"
	// OutOfStock: the selection is complete but the matching variant has no stock.
	OutOfStock ResolutionStatus = "out_of_stock"
	// Unavailable: the complete selection matches no live variant.
	Unavailable ResolutionStatus = "unavailable"
	// NoVariants: the stock sits on product rows without variants; there is nothing to resolve.
	NoVariants ResolutionStatus = "no_variants"
)

type Selection struct {
	Size  string `json:"size,omitempty"`
	Color string `json:"color,omitempty"`
}

type Resolution struct {
	Status  ResolutionStatus `json:"status"`
	Variant *Variant         `json:"variant,omitempty"`
}

// Err maps the resolution onto the claim error taxonomy. Resolved and
// NoVariants are not errors.
func (r Resolution) Err() error {
	switch r.Status {
	case Incomplete:
		return apperr.ErrSelectionIncomplete
	case OutOfStock, Unavailable:
		return apperr.ErrOutOfStock
	default:
		return nil
	}
}

// Resolve finds the variant of u matching sel. A dimension the unit does not
// offer is never required and is ignored when supplied.
func Resolve(u SellableUnit, sel Selection) Resolution {
	needSize := len(u.Sizes) > 0
	needColor := len(u.Colors) > 0
	if !needSize {
		sel.Size = ""
	}
	if !needColor {
		sel.Color = ""
	}
	if (needSize && sel.Size == "") || (needColor && sel.Color == "") {
		return Resolution{Status: Incomplete}
	}
	if !u.HasVariants {
		return Resolution{Status: NoVariants}
	}

	var matches []Variant
	for _, v := range u.Variants {
		if !v.Live() {
			continue
		}
		if needSize && v.Size != sel.Size {
			continue
		}
		if needColor && v.Color != sel.Color {
			continue
		}
		matches = append(matches, v)
	}
	if len(matches) == 0 {
		return fallBack(u, Unavailable)
	}
	// merged SKU rows can carry the same pair twice; prefer stock, then id
	sort.Slice(matches, func(i, j int) bool {
		if (matches[i].Stock > 0) != (matches[j].Stock > 0) {
			return matches[i].Stock > 0
		}
		return matches[i].ID < matches[j].ID
	})
	v := matches[0]
	if v.Stock <= 0 {
		if r := fallBack(u, OutOfStock); r.Status == NoVariants {
			return r
		}
		return Resolution{Status: OutOfStock, Variant: &v}
	}
	return Resolution{Status: Resolved, Variant: &v}
}

// fallBack covers SKU groups that merge rows with and without variants: when
// no variant serves the selection, a stocked row without variants still can.
func fallBack(u SellableUnit, status ResolutionStatus) Resolution {
	for _, pid := range plainRows(u) {
		if u.RowStock[pid] > 0 {
			return Resolution{Status: NoVariants}
		}
	}
	return Resolution{Status: status}
}

// plainRows lists the member rows that carry their stock without variants.
func plainRows(u SellableUnit) []string {
	withVariants := make(map[string]bool, len(u.Variants))
	for _, v := range u.Variants {
		withVariants[v.ProductID] = true
	}
	out := make([]string, 0, len(u.ProductIDs))
	for _, pid := range u.ProductIDs {
		if !withVariants[pid] {
			out = append(out, pid)
		}
	}
	return out
}

// TargetFor resolves sel to the concrete row a claim must decrement.
func TargetFor(u SellableUnit, sel Selection) (Target, error) {
	res := Resolve(u, sel)
	if err := res.Err(); err != nil {
		return Target{}, err
	}
	if res.Status == Resolved {
		return Target{
			ProductID: res.Variant.ProductID,
			VariantID: res.Variant.ID,
			Size:      res.Variant.Size,
			Color:     res.Variant.Color,
		}, nil
	}
	for _, pid := range plainRows(u) {
		if u.RowStock[pid] > 0 {
			return Target{ProductID: pid, Size: sel.Size, Color: sel.Color}, nil
		}
	}
	return Target{}, apperr.ErrOutOfStock
}
