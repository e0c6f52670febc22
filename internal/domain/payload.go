package domain

import (
	"bytes"

	"github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// Payload is the raw catalog as served by the points API: an ordered list of categories.
type Payload []RawCategory

// RawCategory mirrors one category object of the remote payload.
type RawCategory struct {
	ID          Scalar       `json:"catId"`
	Name        Scalar       `json:"catName"`
	MaxProducts Scalar       `json:"maxProductsOfThisCategory"`
	Products    []RawProduct `json:"products"`
}

// RawProduct mirrors one product object of the remote payload.
// Only the fields the viewer uses are declared; everything else is dropped on decode.
type RawProduct struct {
	DisplayName      Scalar     `json:"display_name"`
	PointsValue      Scalar     `json:"points_value"`
	RedeemAvailable  StrictBool `json:"points_product_status"`
	InStock          StrictBool `json:"is_in_stock"` // Ignored by the normalizer, availability comes from RedeemAvailable
	Description      Scalar     `json:"description"`
	ShortDescription Scalar     `json:"short_description"`
	Image            Scalar     `json:"image"`
	Brand            Scalar     `json:"gtm_brand"`
	Type             Scalar     `json:"type"`
	SKU              Scalar     `json:"sku"`
	MaxOrderQty      Scalar     `json:"points_max_order_qty"`
	URL              Scalar     `json:"url"`
}

// Scalar is a JSON scalar coerced to its string form. The points API is inconsistent
// about quoting numbers, so strings, numbers and booleans are all accepted; objects,
// arrays and null collapse to "".
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || b[0] == '{' || b[0] == '[' || bytes.Equal(b, []byte("null")) {
		*s = ""
		return nil
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		*s = ""
		return nil
	}
	*s = Scalar(cast.ToString(v))
	return nil
}

// String returns the raw string value.
func (s Scalar) String() string { return string(s) }

// StrictBool is true only when the JSON value is the literal true.
// Strings such as "true" or numbers such as 1 decode to false.
type StrictBool bool

// UnmarshalJSON implements json.Unmarshaler.
func (b *StrictBool) UnmarshalJSON(data []byte) error {
	*b = StrictBool(bytes.Equal(bytes.TrimSpace(data), []byte("true")))
	return nil
}
