package model

import (
	"fmt"
	"strconv"
	"strings"
)

// SortOption selects the ordering of the derived product list.
type SortOption int

// Supported sort options. The numeric values are stored in the session
// database and used in callback data, so they must not change.
const (
	SortOldToNew SortOption = iota
	SortNewToOld
	SortPriceHighToLow
	SortPriceLowToHigh
)

// SortOptions lists every option in display order.
var SortOptions = []SortOption{SortOldToNew, SortNewToOld, SortPriceHighToLow, SortPriceLowToHigh}

// Title returns the human readable name of the option.
func (s SortOption) Title() string {
	switch s {
	case SortOldToNew:
		return "Old to new"
	case SortNewToOld:
		return "New to old"
	case SortPriceHighToLow:
		return "Price high to low"
	case SortPriceLowToHigh:
		return "Price low to high"
	}
	return fmt.Sprintf("SortOption(%d)", int(s))
}

// Keyword returns the short name accepted by ParseSortOption.
func (s SortOption) Keyword() string {
	switch s {
	case SortOldToNew:
		return "old"
	case SortNewToOld:
		return "new"
	case SortPriceHighToLow:
		return "price_desc"
	case SortPriceLowToHigh:
		return "price_asc"
	}
	return strconv.Itoa(int(s))
}

// Valid reports whether s is one of the supported options.
func (s SortOption) Valid() bool {
	return s >= SortOldToNew && s <= SortPriceLowToHigh
}

// ParseSortOption parses a keyword, alias or number into a sort option.
// The second return value is false when the input asks for no sorting.
func ParseSortOption(raw string) (SortOption, bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "old", "oldest", "old_to_new":
		return SortOldToNew, true, nil
	case "new", "newest", "new_to_old":
		return SortNewToOld, true, nil
	case "price_desc", "high", "price_high_to_low":
		return SortPriceHighToLow, true, nil
	case "price_asc", "low", "price_low_to_high":
		return SortPriceLowToHigh, true, nil
	case "none", "off", "":
		return 0, false, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || !SortOption(n).Valid() {
		return 0, false, fmt.Errorf("unknown sort option %q, use: old, new, price_desc, price_asc, none", raw)
	}
	return SortOption(n), true, nil
}

// FilterSpec describes which products to show and in what order.
// The zero value passes every product through in catalog order.
// A FilterSpec is never modified after construction; the With methods
// return new values.
type FilterSpec struct {
	sortBy SortOption
	sorted bool
	brands []string
	models []string
}

// NewFilterSpec builds a spec. A nil sortBy leaves the order unchanged.
func NewFilterSpec(sortBy *SortOption, brands, models []string) FilterSpec {
	spec := FilterSpec{
		brands: normalizeSet(brands),
		models: normalizeSet(models),
	}
	if sortBy != nil {
		spec.sortBy = *sortBy
		spec.sorted = true
	}
	return spec
}

// SortBy returns the sort option and whether one is set.
func (f FilterSpec) SortBy() (SortOption, bool) {
	return f.sortBy, f.sorted
}

// Brands returns a copy of the brand set.
func (f FilterSpec) Brands() []string {
	return clone(f.brands)
}

// Models returns a copy of the model set.
func (f FilterSpec) Models() []string {
	return clone(f.models)
}

// IsZero reports whether the spec neither filters nor sorts.
func (f FilterSpec) IsZero() bool {
	return !f.sorted && len(f.brands) == 0 && len(f.models) == 0
}

// WithSort returns a copy of f sorted by s.
func (f FilterSpec) WithSort(s SortOption) FilterSpec {
	return FilterSpec{sortBy: s, sorted: true, brands: f.brands, models: f.models}
}

// WithoutSort returns a copy of f that keeps catalog order.
func (f FilterSpec) WithoutSort() FilterSpec {
	return FilterSpec{brands: f.brands, models: f.models}
}

// WithBrands returns a copy of f restricted to the given brands.
// An empty list removes the brand restriction.
func (f FilterSpec) WithBrands(brands []string) FilterSpec {
	return FilterSpec{sortBy: f.sortBy, sorted: f.sorted, brands: normalizeSet(brands), models: f.models}
}

// WithModels returns a copy of f restricted to titles containing one of
// the given models. An empty list removes the model restriction.
func (f FilterSpec) WithModels(models []string) FilterSpec {
	return FilterSpec{sortBy: f.sortBy, sorted: f.sorted, brands: f.brands, models: normalizeSet(models)}
}

// Equal reports whether two specs describe the same filter and order.
func (f FilterSpec) Equal(o FilterSpec) bool {
	if f.sorted != o.sorted || (f.sorted && f.sortBy != o.sortBy) {
		return false
	}
	return equalStrings(f.brands, o.brands) && equalStrings(f.models, o.models)
}

// normalizeSet trims entries, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling and order.
func normalizeSet(in []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(in))
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

func clone(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
