package catalog

import "github.com/Conversly/storefront/internal/types"

// InStock reports whether neither the product nor the variant stock flag
// is explicitly off. A missing flag counts as in stock.
func InStock(p types.Product, variant int) bool {
	if p.InStock != nil && !*p.InStock {
		return false
	}
	if variant < 0 || variant >= len(p.Variants) {
		return true
	}
	v := p.Variants[variant].InStock
	return v == nil || *v
}

// SelectableSizes returns the sizes of a variant a shopper can pick, in
// canonical size order. Out-of-range variants have none.
func SelectableSizes(p types.Product, variant int) []types.Size {
	out := []types.Size{}
	if variant < 0 || variant >= len(p.Variants) || !InStock(p, variant) {
		return out
	}
	stock := make(map[types.Size]int)
	for _, s := range p.Variants[variant].Sizes {
		stock[s.Size] += s.Quantity
	}
	for _, size := range types.Sizes {
		if stock[size] > 0 {
			out = append(out, size)
		}
	}
	return out
}

// CanSelect reports whether size is selectable for the variant.
func CanSelect(p types.Product, variant int, size types.Size) bool {
	for _, s := range SelectableSizes(p, variant) {
		if s == size {
			return true
		}
	}
	return false
}

// Images returns the gallery for a variant, falling back to the product
// images when the variant has none.
func Images(p types.Product, variant int) []string {
	if variant >= 0 && variant < len(p.Variants) && len(p.Variants[variant].Images) > 0 {
		return p.Variants[variant].Images
	}
	return p.Images
}
