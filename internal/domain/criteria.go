package domain

// Selector value meaning "do not filter on this field".
const SelectAll = "all"

// StockFilter selects products by availability.
type StockFilter string

const (
	StockAll         StockFilter = "all"
	StockAvailable   StockFilter = "available"
	StockUnavailable StockFilter = "unavailable"
)

// SortMode orders the visible set.
type SortMode string

const (
	SortDefault    SortMode = "default" // in-stock, then affordable, then points ascending
	SortPointsAsc  SortMode = "points-asc"
	SortPointsDesc SortMode = "points-desc"
)

// Criteria is the full set of filter, sort and balance inputs.
type Criteria struct {
	Search         string      `json:"search"`
	Category       string      `json:"category" validate:"required"`
	Brand          string      `json:"brand" validate:"required"`
	Stock          StockFilter `json:"stock" validate:"oneof=all available unavailable"`
	Sort           SortMode    `json:"sort" validate:"required"`
	MinPoints      int         `json:"min_points" validate:"gte=0"`
	MaxPoints      int         `json:"max_points" validate:"gte=0"` // 0 means unbounded
	AffordableOnly bool        `json:"affordable_only"`
	UserPoints     int         `json:"user_points" validate:"gte=0"`
}

// DefaultCriteria returns the criteria used when nothing has been persisted yet.
func DefaultCriteria() Criteria {
	return Criteria{
		Category: SelectAll,
		Brand:    SelectAll,
		Stock:    StockAvailable,
		Sort:     SortPointsDesc,
	}
}

// ResetCriteria returns what the "reset filters" action produces. It differs from the
// first-run defaults: every product is shown and the composite default order applies.
// The balance is not a filter and is carried over by the caller.
func ResetCriteria() Criteria {
	return Criteria{
		Category: SelectAll,
		Brand:    SelectAll,
		Stock:    StockAll,
		Sort:     SortDefault,
	}
}

// Settings are the display preferences of the viewer.
type Settings struct {
	ImageSize       int  `json:"image_size" validate:"gte=10,lte=300"` // percent
	CardSize        int  `json:"card_size" validate:"gte=120,lte=800"` // pixels
	AutoRefresh     bool `json:"auto_refresh"`
	RefreshInterval int  `json:"refresh_interval" validate:"gte=0"` // milliseconds
}

// DefaultSettings returns the display preferences used when nothing has been persisted yet.
func DefaultSettings() Settings {
	return Settings{
		ImageSize:       100,
		CardSize:        320,
		AutoRefresh:     false,
		RefreshInterval: 300000,
	}
}
