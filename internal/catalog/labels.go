package catalog

import "strings"

var brandLabels = map[string]string{
	"original":     "Original",
	"vertuo":       "Vertuo",
	"professional": "Professional",
}

var typeLabels = map[string]string{
	"capsule":   "Capsules",
	"accessory": "Accessories",
	"machine":   "Machines",
	"gift":      "Gifts",
}

// BrandLabel returns the display name of a brand tag, or the tag itself when unmapped.
func BrandLabel(brand string) string {
	return label(brandLabels, brand)
}

// TypeLabel returns the display name of a product type tag, or the tag itself when unmapped.
func TypeLabel(typ string) string {
	return label(typeLabels, typ)
}

func label(table map[string]string, raw string) string {
	if raw == "" {
		return ""
	}
	if l, ok := table[strings.ToLower(raw)]; ok {
		return l
	}
	return raw
}
