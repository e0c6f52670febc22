package catalog

import (
	"regexp"
	"strings"

	"points-catalog-service/internal/domain"
)

// DescriptionLimit is the maximum number of characters shown in the detail view.
const DescriptionLimit = 300

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// Describe returns the plain-text description shown in the detail view: the long
// description (falling back to the short one) with markup removed, whitespace
// collapsed and the text cut at DescriptionLimit characters.
func Describe(p domain.Product) string {
	text := p.Description
	if text == "" {
		text = p.ShortDescription
	}
	text = tagPattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(spacePattern.ReplaceAllString(text, " "))

	runes := []rune(text)
	if len(runes) > DescriptionLimit {
		return string(runes[:DescriptionLimit]) + "..."
	}
	return text
}
