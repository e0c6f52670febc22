package catalog

import (
	"sort"
	"strings"

	"points-catalog-service/internal/domain"
)

// Apply returns the products matching c, in display order. It never mutates products.
// The result is rebuilt from scratch on every call.
func Apply(products []domain.Product, c domain.Criteria) []domain.Product {
	search := strings.ToLower(strings.TrimSpace(c.Search))
	brand := strings.ToLower(c.Brand)

	visible := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if search != "" && !strings.Contains(searchText(p), search) {
			continue
		}
		if c.Category != domain.SelectAll && p.CategoryID != c.Category {
			continue
		}
		if c.Brand != domain.SelectAll && strings.ToLower(p.Brand) != brand {
			continue
		}
		if c.Stock == domain.StockAvailable && !p.InStock {
			continue
		}
		if c.Stock == domain.StockUnavailable && p.InStock {
			continue
		}
		if p.Points < c.MinPoints {
			continue
		}
		if c.MaxPoints > 0 && p.Points > c.MaxPoints {
			continue
		}
		if c.AffordableOnly && (p.Points > c.UserPoints || !p.InStock) {
			continue
		}
		visible = append(visible, p)
	}

	Sort(visible, c.Sort, c.UserPoints)
	return visible
}

// Sort orders products in place. Explicit points orders are stable; any other mode
// applies the composite default order.
func Sort(products []domain.Product, mode domain.SortMode, balance int) {
	switch mode {
	case domain.SortPointsAsc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Points < products[j].Points
		})
	case domain.SortPointsDesc:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Points > products[j].Points
		})
	default:
		sort.SliceStable(products, func(i, j int) bool {
			a, b := products[i], products[j]
			if a.InStock != b.InStock {
				return a.InStock
			}
			aa, ba := IsAffordable(a, balance), IsAffordable(b, balance)
			if aa != ba {
				return aa
			}
			return a.Points < b.Points
		})
	}
}

// IsAffordable reports whether p can be redeemed right now with balance points.
func IsAffordable(p domain.Product, balance int) bool {
	return p.InStock && balance > 0 && p.Points <= balance
}

// Summarize computes the grid counters. Affordability is evaluated against balance
// on every call and never cached on the product.
func Summarize(all, visible []domain.Product, balance int) domain.Summary {
	s := domain.Summary{Total: len(all), Displayed: len(visible)}
	for _, p := range all {
		if p.InStock {
			s.InStock++
		}
		if IsAffordable(p, balance) {
			s.Affordable++
		}
	}
	return s
}

func searchText(p domain.Product) string {
	return strings.ToLower(strings.Join([]string{p.Name, p.SKU, p.CategoryName, p.Brand, p.Type}, " "))
}
