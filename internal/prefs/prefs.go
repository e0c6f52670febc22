// Package prefs persists viewer filters and display settings through a
// PreferenceStorer. Reads never fail: anything missing or unreadable falls back to
// the defaults and is only logged.
package prefs

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"

	"points-catalog-service/internal/catalog"
	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/store"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
)

const (
	filtersKey  = "filters"
	settingsKey = "settings"
)

// filterSnapshot is the stored form of the criteria. Bounds and balance are kept as
// strings with "" meaning unset; numbers are accepted on read as well.
type filterSnapshot struct {
	Search           *string        `json:"search,omitempty"`
	Category         *string        `json:"category,omitempty"`
	Brand            *string        `json:"brand,omitempty"`
	Stock            *string        `json:"stock,omitempty"`
	Sort             *string        `json:"sort,omitempty"`
	MinPoints        *domain.Scalar `json:"minPoints,omitempty"`
	MaxPoints        *domain.Scalar `json:"maxPoints,omitempty"`
	UserPoints       *domain.Scalar `json:"userPoints,omitempty"`
	AffordableActive *bool          `json:"affordableActive,omitempty"`
}

type settingsSnapshot struct {
	ImageSize       domain.Scalar `json:"imageSize"`
	CardSize        domain.Scalar `json:"cardSize"`
	AutoRefresh     bool          `json:"autoRefresh"`
	RefreshInterval domain.Scalar `json:"refreshInterval"`
}

// Bridge reads and writes the preference snapshots of one profile.
type Bridge struct {
	store    store.PreferenceStorer
	profile  string
	logger   *log.Logger
	validate *validator.Validate
}

// NewBridge creates a Bridge for profile.
func NewBridge(s store.PreferenceStorer, profile string, logger *log.Logger) *Bridge {
	return &Bridge{
		store:    s,
		profile:  profile,
		logger:   logger,
		validate: validator.New(),
	}
}

// SaveFilters stores the criteria snapshot.
func (b *Bridge) SaveFilters(ctx context.Context, c domain.Criteria) error {
	snap := filterSnapshot{
		Search:           ptr(c.Search),
		Category:         ptr(c.Category),
		Brand:            ptr(c.Brand),
		Stock:            ptr(string(c.Stock)),
		Sort:             ptr(string(c.Sort)),
		MinPoints:        ptr(optional(c.MinPoints)),
		MaxPoints:        ptr(optional(c.MaxPoints)),
		UserPoints:       ptr(domain.Scalar(strconv.Itoa(c.UserPoints))),
		AffordableActive: ptr(c.AffordableOnly),
	}
	return b.put(ctx, filtersKey, snap)
}

// ClearFilters removes the stored snapshot so the next load starts from the defaults.
// Clearing a profile with nothing stored is not an error.
func (b *Bridge) ClearFilters(ctx context.Context) error {
	err := b.store.DeletePreference(ctx, b.profile, filtersKey)
	if err != nil && !errors.Is(err, store.ErrPreferenceNotFound) {
		return fmt.Errorf("prefs: clear %s: %w", filtersKey, err)
	}
	return nil
}

// LoadFilters returns the stored criteria merged over DefaultCriteria.
func (b *Bridge) LoadFilters(ctx context.Context) domain.Criteria {
	c := domain.DefaultCriteria()
	var snap filterSnapshot
	if !b.get(ctx, filtersKey, &snap) {
		return c
	}

	if snap.Search != nil {
		c.Search = *snap.Search
	}
	if snap.Category != nil && *snap.Category != "" {
		c.Category = *snap.Category
	}
	if snap.Brand != nil && *snap.Brand != "" {
		c.Brand = *snap.Brand
	}
	if snap.Stock != nil {
		switch s := domain.StockFilter(*snap.Stock); s {
		case domain.StockAll, domain.StockAvailable, domain.StockUnavailable:
			c.Stock = s
		}
	}
	if snap.Sort != nil && *snap.Sort != "" {
		c.Sort = domain.SortMode(*snap.Sort)
	}
	if snap.MinPoints != nil {
		c.MinPoints = catalog.ParsePoints(snap.MinPoints.String())
	}
	if snap.MaxPoints != nil {
		c.MaxPoints = catalog.ParsePoints(snap.MaxPoints.String())
	}
	if snap.UserPoints != nil {
		c.UserPoints = catalog.ParsePoints(snap.UserPoints.String())
	}
	if snap.AffordableActive != nil {
		c.AffordableOnly = *snap.AffordableActive
	}
	return c
}

// SaveSettings validates and stores the display settings.
func (b *Bridge) SaveSettings(ctx context.Context, s domain.Settings) error {
	if err := b.validate.Struct(s); err != nil {
		return fmt.Errorf("prefs: invalid settings: %w", err)
	}
	snap := settingsSnapshot{
		ImageSize:       domain.Scalar(strconv.Itoa(s.ImageSize)),
		CardSize:        domain.Scalar(strconv.Itoa(s.CardSize)),
		AutoRefresh:     s.AutoRefresh,
		RefreshInterval: domain.Scalar(strconv.Itoa(s.RefreshInterval)),
	}
	return b.put(ctx, settingsKey, snap)
}

// LoadSettings returns the stored settings. Zero or missing fields take their default;
// a snapshot that fails validation is discarded as a whole.
func (b *Bridge) LoadSettings(ctx context.Context) domain.Settings {
	def := domain.DefaultSettings()
	var snap settingsSnapshot
	if !b.get(ctx, settingsKey, &snap) {
		return def
	}

	s := domain.Settings{
		ImageSize:       orDefault(catalog.ParsePoints(snap.ImageSize.String()), def.ImageSize),
		CardSize:        orDefault(catalog.ParsePoints(snap.CardSize.String()), def.CardSize),
		AutoRefresh:     snap.AutoRefresh,
		RefreshInterval: orDefault(catalog.ParsePoints(snap.RefreshInterval.String()), def.RefreshInterval),
	}
	if err := b.validate.Struct(s); err != nil {
		b.logger.Printf("WARN: Discarding stored settings for profile %q: %v", b.profile, err)
		return def
	}
	return s
}

func (b *Bridge) get(ctx context.Context, key string, dst any) bool {
	raw, err := b.store.GetPreference(ctx, b.profile, key)
	if err != nil {
		if !errors.Is(err, store.ErrPreferenceNotFound) {
			b.logger.Printf("WARN: Failed to read %s preferences for profile %q: %v", key, b.profile, err)
		}
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		b.logger.Printf("WARN: Ignoring corrupt %s preferences for profile %q: %v", key, b.profile, err)
		return false
	}
	return true
}

func (b *Bridge) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("prefs: encode %s: %w", key, err)
	}
	if err := b.store.PutPreference(ctx, b.profile, key, raw); err != nil {
		return fmt.Errorf("prefs: save %s: %w", key, err)
	}
	return nil
}

func optional(n int) domain.Scalar {
	if n <= 0 {
		return ""
	}
	return domain.Scalar(strconv.Itoa(n))
}

func orDefault(v, def int) int {
	if v == 0 {
		return def
	}
	return v
}

func ptr[T any](v T) *T { return &v }
