// Package filter implements the product catalog filter and sort engine.
package filter

import (
	"cmp"
	"slices"
	"strings"

	"storefront/internal/model"
)

// Apply returns the products that pass spec, ordered by spec's sort option.
// Brand restrictions keep products whose brand equals one of the brands.
// Model restrictions keep products whose title contains one of the models.
// Both comparisons ignore case. Products missing the field a restriction
// looks at are dropped. Absent prices sort as 0. Sorting is stable, and
// the input is never modified.
func Apply(products []model.Product, spec model.FilterSpec) []model.Product {
	brands := lowerAll(spec.Brands())
	models := lowerAll(spec.Models())

	type entry struct {
		arrival int
		product model.Product
	}
	kept := make([]entry, 0, len(products))
	for i, p := range products {
		if matches(p, brands, models) {
			kept = append(kept, entry{arrival: i, product: p})
		}
	}

	if sortBy, ok := spec.SortBy(); ok {
		var compare func(a, b entry) int
		switch sortBy {
		case model.SortOldToNew:
			compare = func(a, b entry) int { return cmp.Compare(a.arrival, b.arrival) }
		case model.SortNewToOld:
			compare = func(a, b entry) int { return cmp.Compare(b.arrival, a.arrival) }
		case model.SortPriceHighToLow:
			compare = func(a, b entry) int { return cmp.Compare(b.product.PriceOrZero(), a.product.PriceOrZero()) }
		case model.SortPriceLowToHigh:
			compare = func(a, b entry) int { return cmp.Compare(a.product.PriceOrZero(), b.product.PriceOrZero()) }
		}
		if compare != nil {
			slices.SortStableFunc(kept, compare)
		}
	}

	out := make([]model.Product, len(kept))
	for i, e := range kept {
		out[i] = e.product
	}
	return out
}

// Match reports whether a single product passes the brand and model
// restrictions of spec. Sorting is not considered.
func Match(p model.Product, spec model.FilterSpec) bool {
	return matches(p, lowerAll(spec.Brands()), lowerAll(spec.Models()))
}

func matches(p model.Product, brands, models []string) bool {
	if len(brands) > 0 {
		if p.Brand == nil {
			return false
		}
		if !slices.Contains(brands, strings.ToLower(strings.TrimSpace(*p.Brand))) {
			return false
		}
	}
	if len(models) > 0 {
		if p.Title == nil {
			return false
		}
		title := strings.ToLower(*p.Title)
		if !slices.ContainsFunc(models, func(m string) bool { return strings.Contains(title, m) }) {
			return false
		}
	}
	return true
}

// Brands returns the distinct brand names present in products, sorted
// case-insensitively. The first spelling seen for a brand is kept.
func Brands(products []model.Product) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, p := range products {
		if p.Brand == nil {
			continue
		}
		name := strings.TrimSpace(*p.Brand)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	slices.SortFunc(out, func(a, b string) int {
		return strings.Compare(strings.ToLower(a), strings.ToLower(b))
	})
	return out
}

func lowerAll(in []string) []string {
	for i, s := range in {
		in[i] = strings.ToLower(s)
	}
	return in
}
