package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"points-catalog-service/internal/domain"
)

func allCriteria() domain.Criteria {
	c := domain.ResetCriteria()
	c.Sort = domain.SortPointsAsc
	return c
}

func sampleProducts() []domain.Product {
	return []domain.Product{
		{Key: "k1", Name: "Double Espresso Dolce", SKU: "7044.10", Points: 200, InStock: true, Brand: "vertuo", Type: "capsule", CategoryID: "1166", CategoryName: "Gift capsules"},
		{Key: "k2", Name: "Hazelnut Praline", SKU: "7858.10", Points: 150, InStock: true, Brand: "original", Type: "capsule", CategoryID: "1166", CategoryName: "Gift capsules"},
		{Key: "k3", Name: "Caramel Toffee", SKU: "7295.10", Points: 250, InStock: false, Brand: "Vertuo", Type: "capsule", CategoryID: "1166", CategoryName: "Gift capsules"},
		{Key: "k4", Name: "VIEW Espresso Cup", SKU: "ACC001", Points: 300, InStock: true, Brand: "original", Type: "accessory", CategoryID: "1167", CategoryName: "Accessories"},
		{Key: "k5", Name: "Aeroccino", SKU: "ACC004", Points: 1500, InStock: true, Brand: "original", Type: "accessory", CategoryID: "1167", CategoryName: "Accessories"},
		{Key: "k6", Name: "Voucher 50", SKU: "GIFT001", Points: 800, InStock: false, Brand: "", Type: "gift", CategoryID: "1168", CategoryName: "Special gifts"},
	}
}

func keys(products []domain.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Key
	}
	return out
}

func TestApply_AffordableOnlyExample(t *testing.T) {
	products := []domain.Product{
		{Key: "a", Points: 100, InStock: true},
		{Key: "b", Points: 300, InStock: true},
		{Key: "c", Points: 150, InStock: false},
	}
	c := allCriteria()
	c.AffordableOnly = true
	c.UserPoints = 200

	visible := Apply(products, c)

	require.Len(t, visible, 1)
	assert.Equal(t, 100, visible[0].Points)
}

func TestApply_Search(t *testing.T) {
	products := sampleProducts()

	tests := []struct {
		name   string
		search string
		want   []string
	}{
		{"empty matches all", "", []string{"k2", "k1", "k3", "k4", "k6", "k5"}},
		{"name, case insensitive", "HAZELNUT", []string{"k2"}},
		{"sku", "acc00", []string{"k4", "k5"}},
		{"category name", "special", []string{"k6"}},
		{"brand", "vertuo", []string{"k1", "k3"}},
		{"type", "accessory", []string{"k4", "k5"}},
		{"trimmed", "  toffee  ", []string{"k3"}},
		{"no match", "machine", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := allCriteria()
			c.Search = tt.search
			assert.Equal(t, tt.want, keys(Apply(products, c)))
		})
	}
}

func TestApply_Selectors(t *testing.T) {
	products := sampleProducts()

	c := allCriteria()
	c.Category = "1167"
	assert.Equal(t, []string{"k4", "k5"}, keys(Apply(products, c)))

	c = allCriteria()
	c.Brand = "vertuo"
	assert.Equal(t, []string{"k1", "k3"}, keys(Apply(products, c)), "brand match ignores case on the product side")

	c.Brand = "VERTUO"
	assert.Equal(t, []string{"k1", "k3"}, keys(Apply(products, c)), "and on the selector side")

	c = allCriteria()
	c.Stock = domain.StockAvailable
	assert.Equal(t, []string{"k2", "k1", "k4", "k5"}, keys(Apply(products, c)))

	c.Stock = domain.StockUnavailable
	assert.Equal(t, []string{"k3", "k6"}, keys(Apply(products, c)))
}

func TestApply_PointsBounds(t *testing.T) {
	products := sampleProducts()

	c := allCriteria()
	c.MinPoints = 200
	c.MaxPoints = 300
	assert.Equal(t, []string{"k1", "k3", "k4"}, keys(Apply(products, c)), "bounds are inclusive")

	c.MaxPoints = 0
	assert.Equal(t, []string{"k1", "k3", "k4", "k6", "k5"}, keys(Apply(products, c)), "zero max is unbounded")
}

func TestApply_Idempotent(t *testing.T) {
	products := sampleProducts()
	for _, mode := range []domain.SortMode{domain.SortDefault, domain.SortPointsAsc, domain.SortPointsDesc} {
		c := allCriteria()
		c.Sort = mode
		c.UserPoints = 250
		assert.Equal(t, Apply(products, c), Apply(products, c), "mode %s", mode)
	}
}

func TestApply_DoesNotMutateInput(t *testing.T) {
	products := sampleProducts()
	before := keys(products)

	c := allCriteria()
	c.Sort = domain.SortPointsDesc
	Apply(products, c)

	assert.Equal(t, before, keys(products))
}

func TestApply_AscAndDescAreReverses(t *testing.T) {
	products := sampleProducts()[:5] // distinct points only

	asc := allCriteria()
	desc := allCriteria()
	desc.Sort = domain.SortPointsDesc

	a := keys(Apply(products, asc))
	d := keys(Apply(products, desc))
	require.Len(t, d, len(a))
	for i := range a {
		assert.Equal(t, a[i], d[len(d)-1-i])
	}
}

func TestApply_PointsSortIsStable(t *testing.T) {
	products := []domain.Product{
		{Key: "first", Points: 200, InStock: true},
		{Key: "second", Points: 100, InStock: true},
		{Key: "third", Points: 200, InStock: true},
	}
	c := allCriteria()
	c.Sort = domain.SortPointsDesc
	assert.Equal(t, []string{"first", "third", "second"}, keys(Apply(products, c)))

	c.Sort = domain.SortPointsAsc
	assert.Equal(t, []string{"second", "first", "third"}, keys(Apply(products, c)))
}

func TestApply_DefaultSort(t *testing.T) {
	products := sampleProducts()
	c := allCriteria()
	c.Sort = domain.SortDefault
	c.UserPoints = 250

	got := keys(Apply(products, c))

	// In stock and affordable by points, then in stock by points, then out of stock by points.
	assert.Equal(t, []string{"k2", "k1", "k4", "k5", "k3", "k6"}, got)
}

func TestApply_DefaultSortZeroBalanceIgnoresAffordability(t *testing.T) {
	products := []domain.Product{
		{Key: "free", Points: 0, InStock: true},
		{Key: "cheap", Points: 10, InStock: true},
		{Key: "gone", Points: 5, InStock: false},
	}
	c := allCriteria()
	c.Sort = domain.SortDefault

	assert.Equal(t, []string{"free", "cheap", "gone"}, keys(Apply(products, c)))
}

func TestApply_DefaultSortInStockAffordableBeforeOutOfStock(t *testing.T) {
	products := sampleProducts()
	for _, balance := range []int{0, 100, 250, 5000} {
		c := allCriteria()
		c.Sort = domain.SortDefault
		c.UserPoints = balance
		visible := Apply(products, c)

		lastInStock, firstOut := -1, len(visible)
		for i, p := range visible {
			if p.InStock {
				lastInStock = i
			} else if i < firstOut {
				firstOut = i
			}
		}
		assert.Less(t, lastInStock, firstOut, "balance %d", balance)
	}
}

func TestApply_UnknownSortFallsBackToDefault(t *testing.T) {
	products := sampleProducts()
	c := allCriteria()
	c.UserPoints = 250

	c.Sort = domain.SortDefault
	want := keys(Apply(products, c))
	c.Sort = "bogus"
	assert.Equal(t, want, keys(Apply(products, c)))
}

func TestSummarize(t *testing.T) {
	products := sampleProducts()
	c := allCriteria()
	c.Category = "1166"
	visible := Apply(products, c)

	s := Summarize(products, visible, 250)

	assert.Equal(t, domain.Summary{Total: 6, InStock: 4, Affordable: 2, Displayed: 3}, s)
	assert.Equal(t, 0, Summarize(products, visible, 0).Affordable)
}

func TestIsAffordable(t *testing.T) {
	p := domain.Product{Points: 200, InStock: true}
	assert.True(t, IsAffordable(p, 200))
	assert.False(t, IsAffordable(p, 199))
	assert.False(t, IsAffordable(domain.Product{Points: 0, InStock: true}, 0))
	assert.False(t, IsAffordable(domain.Product{Points: 10, InStock: false}, 100))
}
