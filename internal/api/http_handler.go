package api

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"points-catalog-service/internal/catalog"
	"points-catalog-service/internal/debounce"
	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/loader"
	"points-catalog-service/internal/render"
	"points-catalog-service/internal/viewer"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CatalogViewer is the part of viewer.Viewer the handlers depend on.
type CatalogViewer interface {
	State() viewer.State
	Product(key string) (domain.Product, error)
	Dispatch(ctx context.Context, cmd viewer.Command) (viewer.State, error)
}

// Pinger reports whether a backing service is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HTTPHandler holds dependencies for HTTP handlers.
type HTTPHandler struct {
	viewer    CatalogViewer
	renderer  *render.Renderer
	debouncer *debounce.Debouncer
	prefs     Pinger
	validate  *validator.Validate

	// Bound for commands fired by the debouncer after the request has returned.
	inputTimeout time.Duration
}

// NewHTTPHandler creates a new HTTPHandler with dependencies.
func NewHTTPHandler(v CatalogViewer, r *render.Renderer, d *debounce.Debouncer, prefs Pinger) *HTTPHandler {
	return &HTTPHandler{
		viewer:       v,
		renderer:     r,
		debouncer:    d,
		prefs:        prefs,
		validate:     validator.New(),
		inputTimeout: 10 * time.Second,
	}
}

// --- Helpers ---

// ErrorResponse defines the structure for JSON error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			log.Printf("ERROR: Failed to encode JSON response: %v", err)
		}
	}
}

// statusFor maps viewer and loader errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, viewer.ErrInvalidCommand), errors.Is(err, viewer.ErrUnknownCommand):
		return http.StatusBadRequest
	case errors.Is(err, viewer.ErrProductNotFound):
		return http.StatusNotFound
	case errors.Is(err, loader.ErrNoData):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *HTTPHandler) dispatchJSON(w http.ResponseWriter, r *http.Request, cmd viewer.Command) {
	st, err := h.viewer.Dispatch(r.Context(), cmd)
	if err != nil {
		log.Printf("ERROR: %s command failed: %v", cmd.Name(), err)
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, h.renderer.Catalog(st))
}

// --- Pages ---

func (h *HTTPHandler) GridPage(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Grid(w, h.viewer.State()); err != nil {
		log.Printf("ERROR: Failed to render catalog page: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

func (h *HTTPHandler) ProductPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.viewer.Product(chi.URLParam(r, "productKey"))
	if err != nil {
		http.Error(w, "Product not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.renderer.Detail(w, h.viewer.State(), p); err != nil {
		log.Printf("ERROR: Failed to render product page: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
	}
}

// RefreshForm handles the refresh and retry buttons. Failures show up on the page.
func (h *HTTPHandler) RefreshForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.viewer.Dispatch(r.Context(), viewer.Refresh{}); err != nil {
		log.Printf("WARN: Refresh from page failed: %v", err)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// FiltersForm applies the filter form of the grid page.
func (h *HTTPHandler) FiltersForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}
	form := r.PostForm
	search := form.Get("search")
	minPoints := catalog.ParsePoints(form.Get("minPoints"))
	maxPoints := catalog.ParsePoints(form.Get("maxPoints"))
	userPoints := catalog.ParsePoints(form.Get("userPoints"))
	affordable := form.Get("affordableActive") == "true"
	patch := viewer.PatchCriteria{
		Search:         &search,
		MinPoints:      &minPoints,
		MaxPoints:      &maxPoints,
		UserPoints:     &userPoints,
		AffordableOnly: &affordable,
	}
	// Empty selects keep the current choice.
	if v := form.Get("category"); v != "" {
		patch.Category = &v
	}
	if v := form.Get("brand"); v != "" {
		patch.Brand = &v
	}
	if v := form.Get("stock"); v != "" {
		stock := domain.StockFilter(v)
		patch.Stock = &stock
	}
	if v := form.Get("sort"); v != "" {
		mode := domain.SortMode(v)
		patch.Sort = &mode
	}

	if _, err := h.viewer.Dispatch(r.Context(), patch); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (h *HTTPHandler) ResetForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.viewer.Dispatch(r.Context(), viewer.ResetFilters{}); err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// --- Catalog API ---

func (h *HTTPHandler) GetCatalog(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.renderer.Catalog(h.viewer.State()))
}

func (h *HTTPHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories := h.viewer.State().Catalog.Categories
	if categories == nil {
		categories = []domain.Category{}
	}
	respondWithJSON(w, http.StatusOK, struct {
		Data []domain.Category `json:"data"`
	}{Data: categories})
}

func (h *HTTPHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "productKey")
	p, err := h.viewer.Product(key)
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, h.renderer.Product(h.viewer.State(), p))
}

func (h *HTTPHandler) ReloadCatalog(w http.ResponseWriter, r *http.Request) {
	h.dispatchJSON(w, r, viewer.Reload{})
}

func (h *HTTPHandler) RefreshCatalog(w http.ResponseWriter, r *http.Request) {
	h.dispatchJSON(w, r, viewer.Refresh{Silent: r.URL.Query().Get("silent") == "true"})
}

// --- Filters API ---

// FiltersInput is a partial criteria update. Absent fields keep their current value.
type FiltersInput struct {
	Search         *string `json:"search"`
	Category       *string `json:"category" validate:"omitempty,min=1"`
	Brand          *string `json:"brand" validate:"omitempty,min=1"`
	Stock          *string `json:"stock" validate:"omitempty,oneof=all available unavailable"`
	Sort           *string `json:"sort" validate:"omitempty,min=1"`
	MinPoints      *int    `json:"min_points" validate:"omitempty,gte=0"`
	MaxPoints      *int    `json:"max_points" validate:"omitempty,gte=0"`
	AffordableOnly *bool   `json:"affordable_only"`
	UserPoints     *int    `json:"user_points" validate:"omitempty,gte=0"`
}

func (in FiltersInput) patch() viewer.PatchCriteria {
	p := viewer.PatchCriteria{
		Search:         in.Search,
		Category:       in.Category,
		Brand:          in.Brand,
		MinPoints:      in.MinPoints,
		MaxPoints:      in.MaxPoints,
		UserPoints:     in.UserPoints,
		AffordableOnly: in.AffordableOnly,
	}
	if in.Stock != nil {
		stock := domain.StockFilter(*in.Stock)
		p.Stock = &stock
	}
	if in.Sort != nil {
		mode := domain.SortMode(*in.Sort)
		p.Sort = &mode
	}
	return p
}

func (h *HTTPHandler) UpdateFilters(w http.ResponseWriter, r *http.Request) {
	var input FiltersInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	h.dispatchJSON(w, r, input.patch())
}

func (h *HTTPHandler) ResetFilters(w http.ResponseWriter, r *http.Request) {
	h.dispatchJSON(w, r, viewer.ResetFilters{})
}

// ClearFilters restores every default, balance included, and drops the saved snapshot.
func (h *HTTPHandler) ClearFilters(w http.ResponseWriter, r *http.Request) {
	h.dispatchJSON(w, r, viewer.ClearFilters{})
}

func (h *HTTPHandler) ToggleAffordable(w http.ResponseWriter, r *http.Request) {
	h.dispatchJSON(w, r, viewer.ToggleAffordable{})
}

// BalanceInput sets the user's points balance.
type BalanceInput struct {
	UserPoints *int `json:"user_points" validate:"required,gte=0"`
}

func (h *HTTPHandler) UpdateBalance(w http.ResponseWriter, r *http.Request) {
	var input BalanceInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}
	h.dispatchJSON(w, r, viewer.SetBalance{Points: *input.UserPoints})
}

// InputEvent is one keystroke-level change of a text or number input. Value may be a
// JSON string or number.
type InputEvent struct {
	Field string        `json:"field" validate:"required,oneof=search minPoints maxPoints userPoints"`
	Value domain.Scalar `json:"value"`
}

// Input accepts raw input changes and applies only the last one of a burst per field.
func (h *HTTPHandler) Input(w http.ResponseWriter, r *http.Request) {
	var input InputEvent
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	cmd := inputCommand(input)
	h.debouncer.Call(input.Field, func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.inputTimeout)
		defer cancel()
		if _, err := h.viewer.Dispatch(ctx, cmd); err != nil {
			log.Printf("WARN: Debounced %s input dropped: %v", input.Field, err)
		}
	})

	respondWithJSON(w, http.StatusAccepted, struct {
		Field      string `json:"field"`
		DebounceMS int64  `json:"debounce_ms"`
	}{Field: input.Field, DebounceMS: h.debouncer.Window().Milliseconds()})
}

func inputCommand(in InputEvent) viewer.Command {
	switch in.Field {
	case "minPoints":
		return viewer.SetMinPoints{Points: catalog.ParsePoints(in.Value.String())}
	case "maxPoints":
		return viewer.SetMaxPoints{Points: catalog.ParsePoints(in.Value.String())}
	case "userPoints":
		return viewer.SetBalance{Points: catalog.ParsePoints(in.Value.String())}
	default:
		return viewer.SetSearch{Value: in.Value.String()}
	}
}

// --- Settings API ---

func (h *HTTPHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, h.viewer.State().Settings)
}

func (h *HTTPHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var input domain.Settings
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return
	}
	defer r.Body.Close()

	if err := h.validate.Struct(input); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	st, err := h.viewer.Dispatch(r.Context(), viewer.UpdateSettings{Settings: input})
	if err != nil {
		respondWithError(w, statusFor(err), err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, st.Settings)
}

// --- Health ---

func (h *HTTPHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	resp := struct {
		Status      string            `json:"status"`
		Catalog     domain.LoadStatus `json:"catalog"`
		Preferences string            `json:"preferences"`
	}{Status: "ok", Catalog: h.viewer.State().Status, Preferences: "ok"}

	code := http.StatusOK
	if h.prefs != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.prefs.Ping(ctx); err != nil {
			log.Printf("WARN: Preference store health check failed: %v", err)
			resp.Status, resp.Preferences = "degraded", err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	respondWithJSON(w, code, resp)
}

// RegisterRoutes sets up the HTTP routes for the service.
func (h *HTTPHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.GridPage)
	r.Get("/products/{productKey}", h.ProductPage)
	r.Post("/refresh", h.RefreshForm)
	r.Post("/filters", h.FiltersForm)
	r.Post("/filters/reset", h.ResetForm)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", h.Healthz)
		r.Get("/catalog", h.GetCatalog)
		r.Post("/catalog/reload", h.ReloadCatalog)
		r.Post("/catalog/refresh", h.RefreshCatalog)
		r.Get("/categories", h.ListCategories)
		r.Get("/products/{productKey}", h.GetProduct)

		r.Route("/filters", func(r chi.Router) {
			r.Put("/", h.UpdateFilters)
			r.Delete("/", h.ClearFilters)
			r.Post("/reset", h.ResetFilters)
			r.Post("/affordable/toggle", h.ToggleAffordable)
		})
		r.Put("/balance", h.UpdateBalance)
		r.Post("/input", h.Input)

		r.Get("/settings", h.GetSettings)
		r.Put("/settings", h.UpdateSettings)
	})
}
