package domain

import (
	"time"
)

// Category is a catalog category as emitted by the normalizer.
// It is created once per load cycle and never mutated afterwards.
type Category struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	MaxItems *int   `json:"max_items,omitempty"` // Nil when the source did not send a cap
}

// Product is a redeemable catalog item.
// The json tags correspond to the fields exposed by the API view model.
type Product struct {
	Key              string `json:"key"` // Deterministic per load; see catalog.productKey
	SKU              string `json:"sku"`
	Name             string `json:"name"`
	Description      string `json:"description,omitempty"`
	ShortDescription string `json:"short_description,omitempty"`
	Image            string `json:"image,omitempty"` // Raw path as sent by the source
	Points           int    `json:"points"`
	InStock          bool   `json:"in_stock"`
	Brand            string `json:"brand,omitempty"`
	Type             string `json:"type,omitempty"`
	CategoryID       string `json:"category_id"`
	CategoryName     string `json:"category_name"`
	MaxOrderQty      int    `json:"max_order_qty,omitempty"`
	URL              string `json:"url,omitempty"`

	// Derived at normalization time.
	ImageURL     string `json:"image_url"`
	BrandDisplay string `json:"brand_display,omitempty"`
	TypeDisplay  string `json:"type_display,omitempty"`
}

// Summary holds the counters shown above the product grid.
type Summary struct {
	Total      int `json:"total"`
	InStock    int `json:"in_stock"`
	Affordable int `json:"affordable"`
	Displayed  int `json:"displayed"`
}

// LoadStatus describes where the viewer is in its load cycle.
type LoadStatus string

const (
	StatusIdle    LoadStatus = "idle"
	StatusLoading LoadStatus = "loading"
	StatusReady   LoadStatus = "ready"
	StatusFailed  LoadStatus = "failed"
)

// Snapshot is the catalog as of the last successful load.
type Snapshot struct {
	Categories []Category `json:"categories"`
	Products   []Product  `json:"products"`
	Source     string     `json:"source"`
	FetchedAt  time.Time  `json:"fetched_at"`
}
