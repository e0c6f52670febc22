// Package catalog turns raw points-catalog payloads into products and derives the
// visible set from user criteria.
package catalog

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	"points-catalog-service/internal/domain"
)

// PlaceholderImage is shown for products whose payload carries no image path.
const PlaceholderImage = `data:image/svg+xml,%3Csvg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100" fill="%23555"%3E%3Crect width="100" height="100" fill="%231a1a1a"/%3E%3Cpath d="M35 30 L65 30 L65 75 L35 75 Z" fill="%23333" stroke="%23444" stroke-width="2"/%3E%3Cellipse cx="50" cy="30" rx="15" ry="5" fill="%23444"/%3E%3C/svg%3E`

// keySpace namespaces product keys so they never collide with other v5 UUIDs.
var keySpace = uuid.MustParse("6f1c9a52-3d0e-4c57-9b8e-2a4f7d1e0c33")

// Normalizer flattens a payload into categories and products.
type Normalizer struct {
	imageBaseURL string
}

// NewNormalizer creates a Normalizer resolving relative image paths against imageBaseURL.
func NewNormalizer(imageBaseURL string) *Normalizer {
	return &Normalizer{imageBaseURL: strings.TrimRight(imageBaseURL, "/")}
}

// Normalize emits one Category per usable raw category and one Product per raw product,
// in input order. Products are not deduplicated across categories.
// Categories without a name or without a product list are skipped.
func (n *Normalizer) Normalize(payload domain.Payload) ([]domain.Category, []domain.Product) {
	categories := make([]domain.Category, 0, len(payload))
	products := make([]domain.Product, 0, countProducts(payload))
	seen := make(map[string]int)

	for _, rc := range payload {
		if rc.Name == "" || rc.Products == nil {
			continue
		}
		cat := domain.Category{
			ID:   rc.ID.String(),
			Name: rc.Name.String(),
		}
		if limit, ok := parseCap(rc.MaxProducts.String()); ok {
			cat.MaxItems = &limit
		}
		categories = append(categories, cat)

		for _, rp := range rc.Products {
			p := domain.Product{
				SKU:              rp.SKU.String(),
				Name:             rp.DisplayName.String(),
				Description:      rp.Description.String(),
				ShortDescription: rp.ShortDescription.String(),
				Image:            rp.Image.String(),
				Points:           ParsePoints(rp.PointsValue.String()),
				InStock:          bool(rp.RedeemAvailable),
				Brand:            rp.Brand.String(),
				Type:             rp.Type.String(),
				CategoryID:       cat.ID,
				CategoryName:     cat.Name,
				MaxOrderQty:      ParsePoints(rp.MaxOrderQty.String()),
				URL:              rp.URL.String(),
			}
			p.ImageURL = n.ResolveImage(p.Image)
			p.BrandDisplay = BrandLabel(p.Brand)
			p.TypeDisplay = TypeLabel(p.Type)
			p.Key = productKey(seen, p)
			products = append(products, p)
		}
	}
	return categories, products
}

// ResolveImage maps a raw image path to a URL the renderer can use directly.
func (n *Normalizer) ResolveImage(path string) string {
	switch {
	case path == "":
		return PlaceholderImage
	case strings.HasPrefix(path, "http"):
		return path
	default:
		return n.imageBaseURL + path
	}
}

// ParsePoints reads the leading integer of s. Anything non-numeric yields 0,
// and so does a negative value since point costs are never negative.
func ParsePoints(s string) int {
	s = strings.TrimSpace(s)
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	v, err := strconv.Atoi(s[:end])
	if err != nil || v < 0 {
		return 0
	}
	return v
}

func parseCap(s string) (int, bool) {
	if strings.TrimSpace(s) == "" {
		return 0, false
	}
	v := ParsePoints(s)
	return v, v > 0
}

// productKey derives a stable identifier from the category, SKU and name. Identical
// entries within one payload get an ordinal suffix so every key stays unique.
func productKey(seen map[string]int, p domain.Product) string {
	base := p.CategoryID + "\x00" + p.SKU + "\x00" + p.Name
	ordinal := seen[base]
	seen[base] = ordinal + 1
	if ordinal > 0 {
		base += "\x00" + strconv.Itoa(ordinal)
	}
	return uuid.NewSHA1(keySpace, []byte(base)).String()
}

func countProducts(payload domain.Payload) int {
	n := 0
	for _, c := range payload {
		n += len(c.Products)
	}
	return n
}
