package loader

import (
	"errors"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"

	"points-catalog-service/internal/domain"
)

// ErrInvalidPayload is returned when a source answers with something that is not a catalog.
var ErrInvalidPayload = errors.New("loader: invalid catalog payload")

// Parse checks that raw is a JSON array holding at least one category with a name and a
// product list, then decodes it. Categories missing either are kept in the payload and
// skipped later by the normalizer.
func Parse(raw []byte) (domain.Payload, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: body is not valid JSON", ErrInvalidPayload)
	}
	root := gjson.ParseBytes(raw)
	if !root.IsArray() {
		return nil, fmt.Errorf("%w: expected an array of categories, got %s", ErrInvalidPayload, root.Type)
	}

	usable := 0
	root.ForEach(func(_, cat gjson.Result) bool {
		if cat.IsObject() && cat.Get("catName").String() != "" && cat.Get("products").IsArray() {
			usable++
		}
		return true
	})
	if usable == 0 {
		return nil, fmt.Errorf("%w: no category carries a name and a product list", ErrInvalidPayload)
	}

	var payload domain.Payload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return payload, nil
}
