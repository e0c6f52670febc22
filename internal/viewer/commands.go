package viewer

import (
	"points-catalog-service/internal/domain"
)

// Command is a typed request to change viewer state. See Viewer.Dispatch.
type Command interface {
	Name() string
}

type (
	SetSearch        struct{ Value string }
	SetCategory      struct{ ID string }
	SetBrand         struct{ Brand string }
	SetStock         struct{ Stock domain.StockFilter }
	SetSort          struct{ Mode domain.SortMode }
	SetMinPoints     struct{ Points int }
	SetMaxPoints     struct{ Points int } // 0 clears the bound
	SetBalance       struct{ Points int }
	ToggleAffordable struct{}
	ResetFilters     struct{}
	ClearFilters     struct{} // restores every default and forgets the saved snapshot
	UpdateSettings   struct{ Settings domain.Settings }
	Reload           struct{}
	Refresh          struct{ Silent bool }
)

func (SetSearch) Name() string        { return "set_search" }
func (SetCategory) Name() string      { return "set_category" }
func (SetBrand) Name() string         { return "set_brand" }
func (SetStock) Name() string         { return "set_stock" }
func (SetSort) Name() string          { return "set_sort" }
func (SetMinPoints) Name() string     { return "set_min_points" }
func (SetMaxPoints) Name() string     { return "set_max_points" }
func (SetBalance) Name() string       { return "set_balance" }
func (ToggleAffordable) Name() string { return "toggle_affordable" }
func (ResetFilters) Name() string     { return "reset_filters" }
func (ClearFilters) Name() string     { return "clear_filters" }
func (PatchCriteria) Name() string    { return "patch_criteria" }
func (UpdateSettings) Name() string   { return "update_settings" }
func (Reload) Name() string           { return "reload" }
func (Refresh) Name() string          { return "refresh" }

// PatchCriteria changes several criteria fields in one step. Nil fields keep their
// current value. The merge happens under the viewer lock, so concurrent patches
// touching different fields do not overwrite each other.
type PatchCriteria struct {
	Search         *string
	Category       *string
	Brand          *string
	Stock          *domain.StockFilter
	Sort           *domain.SortMode
	MinPoints      *int
	MaxPoints      *int
	UserPoints     *int
	AffordableOnly *bool
}

func (p PatchCriteria) apply(c domain.Criteria) domain.Criteria {
	if p.Search != nil {
		c.Search = *p.Search
	}
	if p.Category != nil {
		c.Category = *p.Category
	}
	if p.Brand != nil {
		c.Brand = *p.Brand
	}
	if p.Stock != nil {
		c.Stock = *p.Stock
	}
	if p.Sort != nil {
		c.Sort = *p.Sort
	}
	if p.MinPoints != nil {
		c.MinPoints = *p.MinPoints
	}
	if p.MaxPoints != nil {
		c.MaxPoints = *p.MaxPoints
	}
	if p.UserPoints != nil {
		c.UserPoints = *p.UserPoints
	}
	if p.AffordableOnly != nil {
		c.AffordableOnly = *p.AffordableOnly
	}
	return c
}
