// Package viewer owns the catalog viewer state. Every change goes through a typed
// Command; reads get an immutable copy of the state.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"points-catalog-service/internal/catalog"
	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/loader"
	"points-catalog-service/internal/metrics"

	"github.com/go-playground/validator/v10"
)

var (
	ErrInvalidCommand  = errors.New("viewer: invalid command")
	ErrUnknownCommand  = errors.New("viewer: unknown command")
	ErrProductNotFound = errors.New("viewer: product not found")
)

// Notices shown after an explicit refresh.
const (
	NoticeUpdated  = "catalog updated"
	NoticeFallback = "using fallback data"
)

// CatalogLoader fetches raw catalog payloads.
type CatalogLoader interface {
	Load(ctx context.Context) (domain.Payload, loader.Report, error)
	LoadFresh(ctx context.Context) (domain.Payload, loader.Report, error)
}

// Preferences persists criteria and settings.
type Preferences interface {
	SaveFilters(ctx context.Context, c domain.Criteria) error
	ClearFilters(ctx context.Context) error
	LoadFilters(ctx context.Context) domain.Criteria
	SaveSettings(ctx context.Context, s domain.Settings) error
	LoadSettings(ctx context.Context) domain.Settings
}

// Rescheduler arms the periodic refresh.
type Rescheduler interface {
	Reconfigure(enabled bool, interval time.Duration)
}

// Brand is a filter option derived from the loaded products.
type Brand struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// State is a point-in-time copy of the viewer. Slices are never mutated after
// they are published, so a State can be read without locking.
type State struct {
	Status    domain.LoadStatus `json:"status"`
	Error     string            `json:"error,omitempty"`
	Notice    string            `json:"notice,omitempty"`
	NoticeAt  time.Time         `json:"notice_at,omitempty"`
	Catalog   domain.Snapshot   `json:"catalog"`
	Brands    []Brand           `json:"brands"`
	Criteria  domain.Criteria   `json:"criteria"`
	Settings  domain.Settings   `json:"settings"`
	Visible   []domain.Product  `json:"visible"`
	Summary   domain.Summary    `json:"summary"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Viewer is the single owner of the viewer state.
type Viewer struct {
	loader     CatalogLoader
	normalizer *catalog.Normalizer
	prefs      Preferences
	logger     *log.Logger
	validate   *validator.Validate
	now        func() time.Time

	loadMu sync.Mutex // serializes load cycles
	mu     sync.Mutex // guards everything below

	scheduler Rescheduler
	state     State
}

// New creates a Viewer with default criteria and settings and no catalog.
func New(l CatalogLoader, n *catalog.Normalizer, p Preferences, logger *log.Logger) *Viewer {
	return &Viewer{
		loader:     l,
		normalizer: n,
		prefs:      p,
		logger:     logger,
		validate:   validator.New(),
		now:        time.Now,
		state: State{
			Status:   domain.StatusIdle,
			Criteria: domain.DefaultCriteria(),
			Settings: domain.DefaultSettings(),
		},
	}
}

// SetScheduler attaches the refresh scheduler. Settings changes re-arm it.
func (v *Viewer) SetScheduler(s Rescheduler) {
	v.mu.Lock()
	v.scheduler = s
	settings := v.state.Settings
	v.mu.Unlock()
	v.rearm(settings)
}

// Init restores persisted filters and settings, then performs the first load.
func (v *Viewer) Init(ctx context.Context) error {
	criteria := v.prefs.LoadFilters(ctx)
	settings := v.prefs.LoadSettings(ctx)

	v.mu.Lock()
	v.state.Criteria = criteria
	v.state.Settings = settings
	v.mu.Unlock()

	v.rearm(settings)
	return v.load(ctx, false)
}

// State returns a copy of the current state.
func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Product looks a product up by key in the loaded catalog, visible or not.
func (v *Viewer) Product(key string) (domain.Product, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, p := range v.state.Catalog.Products {
		if p.Key == key {
			return p, nil
		}
	}
	return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, key)
}

// Dispatch applies cmd and returns the resulting state.
func (v *Viewer) Dispatch(ctx context.Context, cmd Command) (State, error) {
	switch c := cmd.(type) {
	case Reload:
		err := v.load(ctx, false)
		return v.State(), err
	case Refresh:
		err := v.refresh(ctx, c.Silent)
		return v.State(), err
	case UpdateSettings:
		return v.updateSettings(ctx, c.Settings)
	}

	v.mu.Lock()
	defer v.mu.Unlock()

	next := v.state.Criteria
	switch c := cmd.(type) {
	case SetSearch:
		next.Search = c.Value
	case SetCategory:
		if c.ID == "" {
			return v.state, fmt.Errorf("%w: empty category", ErrInvalidCommand)
		}
		next.Category = c.ID
	case SetBrand:
		if c.Brand == "" {
			return v.state, fmt.Errorf("%w: empty brand", ErrInvalidCommand)
		}
		next.Brand = c.Brand
	case SetStock:
		next.Stock = c.Stock
	case SetSort:
		next.Sort = c.Mode
	case SetMinPoints:
		next.MinPoints = c.Points
	case SetMaxPoints:
		next.MaxPoints = c.Points
	case SetBalance:
		next.UserPoints = c.Points
	case ToggleAffordable:
		next.AffordableOnly = !next.AffordableOnly
	case ResetFilters:
		balance := next.UserPoints
		next = domain.ResetCriteria()
		next.UserPoints = balance
	case ClearFilters:
		next = domain.DefaultCriteria()
	case PatchCriteria:
		next = c.apply(next)
	default:
		return v.state, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}

	if err := v.validate.Struct(next); err != nil {
		return v.state, fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	v.state.Criteria = next
	v.applyLocked(cmd.Name())
	if _, ok := cmd.(ClearFilters); ok {
		if err := v.prefs.ClearFilters(ctx); err != nil {
			v.logger.Printf("WARN: Failed to clear saved filters: %v", err)
		}
		return v.state, nil
	}
	if err := v.prefs.SaveFilters(ctx, next); err != nil {
		v.logger.Printf("WARN: Failed to save filters: %v", err)
	}
	return v.state, nil
}

func (v *Viewer) updateSettings(ctx context.Context, s domain.Settings) (State, error) {
	if err := v.validate.Struct(s); err != nil {
		return v.State(), fmt.Errorf("%w: %v", ErrInvalidCommand, err)
	}

	v.mu.Lock()
	v.state.Settings = s
	v.state.UpdatedAt = v.now()
	v.mu.Unlock()

	if err := v.prefs.SaveSettings(ctx, s); err != nil {
		v.logger.Printf("WARN: Failed to save settings: %v", err)
	}
	// Outside the state lock: a refresh tick in flight may be waiting on it.
	v.rearm(s)
	return v.State(), nil
}

func (v *Viewer) rearm(s domain.Settings) {
	v.mu.Lock()
	sched := v.scheduler
	v.mu.Unlock()
	if sched == nil {
		return
	}
	sched.Reconfigure(s.AutoRefresh, time.Duration(s.RefreshInterval)*time.Millisecond)
}

// load runs the full source chain and installs the result. When keepView is set the
// previous catalog stays visible while loading and is kept if the load fails.
func (v *Viewer) load(ctx context.Context, keepView bool) error {
	v.loadMu.Lock()
	defer v.loadMu.Unlock()
	return v.loadLocked(ctx, keepView)
}

func (v *Viewer) loadLocked(ctx context.Context, keepView bool) error {
	if !keepView {
		v.mu.Lock()
		v.state.Status = domain.StatusLoading
		v.state.Error = ""
		v.mu.Unlock()
	}

	payload, report, err := v.loader.Load(ctx)
	if err != nil {
		v.logger.Printf("ERROR: Catalog load failed after %d attempts: %v", len(report.Attempts), err)
		if keepView {
			return err
		}
		v.mu.Lock()
		defer v.mu.Unlock()
		v.state.Status = domain.StatusFailed
		v.state.Error = err.Error()
		v.state.Catalog = domain.Snapshot{}
		v.state.Brands = nil
		v.applyLocked("load")
		return err
	}

	criteria := v.prefs.LoadFilters(ctx)
	v.install(payload, report.Source, &criteria)
	return nil
}

func (v *Viewer) refresh(ctx context.Context, silent bool) error {
	v.loadMu.Lock()
	defer v.loadMu.Unlock()

	if !silent {
		v.mu.Lock()
		v.state.Status = domain.StatusLoading
		v.state.Error = ""
		v.mu.Unlock()
	}

	payload, report, err := v.loader.LoadFresh(ctx)
	if err == nil {
		v.install(payload, report.Source, nil)
		metrics.Refreshes.WithLabelValues("fresh").Inc()
		if !silent {
			v.setNotice(NoticeUpdated)
		}
		return nil
	}

	v.logger.Printf("WARN: Fresh catalog unavailable, falling back to the full chain: %v", err)
	// A background refresh that fails leaves the current grid alone. An explicit one
	// reports the failure like a reload does.
	if err := v.loadLocked(ctx, silent); err != nil {
		metrics.Refreshes.WithLabelValues("failed").Inc()
		return err
	}
	metrics.Refreshes.WithLabelValues("fallback").Inc()
	if !silent {
		v.setNotice(NoticeFallback)
	}
	return nil
}

// install publishes a newly loaded catalog. A nil criteria keeps the current one.
func (v *Viewer) install(payload domain.Payload, source string, criteria *domain.Criteria) {
	categories, products := v.normalizer.Normalize(payload)
	metrics.CatalogProducts.Set(float64(len(products)))

	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Catalog = domain.Snapshot{
		Categories: categories,
		Products:   products,
		Source:     source,
		FetchedAt:  v.now(),
	}
	v.state.Brands = brandsOf(products)
	if criteria != nil {
		v.state.Criteria = *criteria
	}
	v.state.Status = domain.StatusReady
	v.state.Error = ""
	v.applyLocked("load")
	v.logger.Printf("INFO: Catalog loaded from %s: %d categories, %d products", source, len(categories), len(products))
}

func (v *Viewer) setNotice(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state.Notice = msg
	v.state.NoticeAt = v.now()
}

// applyLocked recomputes the visible set and summary. Callers hold v.mu.
func (v *Viewer) applyLocked(trigger string) {
	start := time.Now()
	c := v.state.Criteria
	v.state.Visible = catalog.Apply(v.state.Catalog.Products, c)
	v.state.Summary = catalog.Summarize(v.state.Catalog.Products, v.state.Visible, c.UserPoints)
	v.state.UpdatedAt = v.now()
	metrics.FilterDuration.Observe(time.Since(start).Seconds())
	metrics.FilterPasses.WithLabelValues(trigger).Inc()
}

func brandsOf(products []domain.Product) []Brand {
	seen := make(map[string]bool)
	var brands []Brand
	for _, p := range products {
		if p.Brand == "" || seen[p.Brand] {
			continue
		}
		seen[p.Brand] = true
		brands = append(brands, Brand{Value: p.Brand, Label: catalog.BrandLabel(p.Brand)})
	}
	sort.Slice(brands, func(i, j int) bool { return brands[i].Label < brands[j].Label })
	return brands
}
