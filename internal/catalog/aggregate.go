package catalog

import "sort"

// Result is the output of Aggregate. Orphans are variants whose product_id
// matched no row in the batch; they are a data-quality signal, not an error.
type Result struct {
	Units   []SellableUnit
	Orphans []Variant
}

// Aggregate merges product rows that share a GroupKey into one SellableUnit.
// The output does not depend on the order of rows or variants in the input.
func Aggregate(rows []ProductRow, variants []Variant) Result {
	known := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		known[r.ID] = struct{}{}
	}

	byProduct := make(map[string][]Variant)
	var orphans []Variant
	for _, v := range variants {
		if _, ok := known[v.ProductID]; !ok {
			orphans = append(orphans, v)
			continue
		}
		byProduct[v.ProductID] = append(byProduct[v.ProductID], v)
	}
	for pid := range byProduct {
		vs := byProduct[pid]
		sort.Slice(vs, func(i, j int) bool { return vs[i].ID < vs[j].ID })
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].ID < orphans[j].ID })

	groups := make(map[string][]ProductRow)
	for _, r := range rows {
		k := GroupKey(r)
		groups[k] = append(groups[k], r)
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	units := make([]SellableUnit, 0, len(keys))
	for _, k := range keys {
		members := groups[k]
		sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
		units = append(units, merge(k, members, byProduct))
	}
	return Result{Units: units, Orphans: orphans}
}

func merge(key string, members []ProductRow, byProduct map[string][]Variant) SellableUnit {
	head := members[0]
	u := SellableUnit{
		Key:            key,
		SupplierListID: head.SupplierListID,
		Name:           head.Name,
		Description:    head.Description,
		Brand:          head.Brand,
		PriceCents:     head.PriceCents,
		Condition:      head.Condition,
		Category:       head.Category,
		RowStock:       make(map[string]int, len(members)),
	}

	sizes := newOrderedSet()
	colors := newOrderedSet()
	images := newOrderedSet()

	for _, m := range members {
		u.ProductIDs = append(u.ProductIDs, m.ID)
		sizes.add(m.AvailableSizes...)
		colors.add(m.AvailableColors...)
		images.add(m.ImageURLs...)

		vs := byProduct[m.ID]
		stock := m.Stock
		if len(vs) > 0 {
			stock = 0
			for _, v := range vs {
				if !v.Live() {
					continue
				}
				stock += v.Stock
				sizes.add(v.Size)
				colors.add(v.Color)
			}
		}
		if stock < 0 {
			stock = 0
		}
		u.RowStock[m.ID] = stock
		u.TotalStock += stock
		u.Variants = append(u.Variants, vs...)
	}

	u.Sizes = sizes.items
	u.Colors = colors.items
	u.ImageURLs = images.items
	u.HasVariants = len(u.Variants) > 0
	return u
}

type orderedSet struct {
	seen  map[string]struct{}
	items []string
}

func newOrderedSet() *orderedSet {
	return &orderedSet{seen: map[string]struct{}{}, items: []string{}}
}

func (s *orderedSet) add(vals ...string) {
	for _, v := range vals {
		if v == "" {
			continue
		}
		if _, ok := s.seen[v]; ok {
			continue
		}
		s.seen[v] = struct{}{}
		s.items = append(s.items, v)
	}
}
