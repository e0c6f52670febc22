// Package render turns viewer state into HTML pages and JSON view models.
package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"time"

	"points-catalog-service/internal/catalog"
	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/viewer"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed templates/*.html
var templateFS embed.FS

// NoticeTTL is how long a refresh notice stays on the page.
const NoticeTTL = 5 * time.Second

// ProductCard is a product as shown in the grid. Affordability is computed against
// the balance at render time.
type ProductCard struct {
	domain.Product
	Affordable  bool   `json:"affordable"`
	PointsLabel string `json:"points_label"`
	DetailPath  string `json:"detail_path"`
}

// ImageSrc is the image URL for use in templates. Image URLs are either absolute
// http(s) URLs or the built-in placeholder data URI, which html/template would
// otherwise reject.
func (c ProductCard) ImageSrc() template.URL { return template.URL(c.ImageURL) }

// CatalogView is the full grid page model.
type CatalogView struct {
	Status     domain.LoadStatus `json:"status"`
	Error      string            `json:"error,omitempty"`
	Notice     string            `json:"notice,omitempty"`
	Source     string            `json:"source,omitempty"`
	FetchedAt  *time.Time        `json:"fetched_at,omitempty"`
	Summary    domain.Summary    `json:"summary"`
	Criteria   domain.Criteria   `json:"criteria"`
	Settings   domain.Settings   `json:"settings"`
	Categories []domain.Category `json:"categories"`
	Brands     []viewer.Brand    `json:"brands"`
	Products   []ProductCard     `json:"products"`
}

// ImageScale is the image size setting as a CSS scale factor.
func (v CatalogView) ImageScale() float64 { return float64(v.Settings.ImageSize) / 100 }

// ProductDetail is the detail page model.
type ProductDetail struct {
	ProductCard
	Description string `json:"description_text"`
	Balance     int    `json:"balance"`
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl    *template.Template
	printer *message.Printer
	now     func() time.Time
}

// New parses the embedded templates. Point values are formatted for lang.
func New(lang language.Tag) (*Renderer, error) {
	r := &Renderer{
		printer: message.NewPrinter(lang),
		now:     time.Now,
	}
	funcs := template.FuncMap{
		"points": r.formatPoints,
		"selected": func(a, b string) bool {
			return a == b
		},
	}
	tmpl, err := template.New("pages").Funcs(funcs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("render: parse templates: %w", err)
	}
	r.tmpl = tmpl
	return r, nil
}

func (r *Renderer) formatPoints(n int) string {
	return r.printer.Sprintf("%d", n)
}

// Catalog builds the grid view model from st.
func (r *Renderer) Catalog(st viewer.State) CatalogView {
	view := CatalogView{
		Status:     st.Status,
		Error:      st.Error,
		Source:     st.Catalog.Source,
		Summary:    st.Summary,
		Criteria:   st.Criteria,
		Settings:   st.Settings,
		Categories: st.Catalog.Categories,
		Brands:     st.Brands,
		Products:   make([]ProductCard, 0, len(st.Visible)),
	}
	if !st.Catalog.FetchedAt.IsZero() {
		t := st.Catalog.FetchedAt
		view.FetchedAt = &t
	}
	if st.Notice != "" && r.now().Sub(st.NoticeAt) < NoticeTTL {
		view.Notice = st.Notice
	}
	for _, p := range st.Visible {
		view.Products = append(view.Products, r.card(p, st.Criteria.UserPoints))
	}
	return view
}

// Product builds the detail view model for p.
func (r *Renderer) Product(st viewer.State, p domain.Product) ProductDetail {
	return ProductDetail{
		ProductCard: r.card(p, st.Criteria.UserPoints),
		Description: catalog.Describe(p),
		Balance:     st.Criteria.UserPoints,
	}
}

func (r *Renderer) card(p domain.Product, balance int) ProductCard {
	return ProductCard{
		Product:     p,
		Affordable:  catalog.IsAffordable(p, balance),
		PointsLabel: r.formatPoints(p.Points),
		DetailPath:  "/products/" + p.Key,
	}
}

// Grid writes the catalog page.
func (r *Renderer) Grid(w io.Writer, st viewer.State) error {
	if err := r.tmpl.ExecuteTemplate(w, "grid.html", r.Catalog(st)); err != nil {
		return fmt.Errorf("render: grid: %w", err)
	}
	return nil
}

// Detail writes the product page.
func (r *Renderer) Detail(w io.Writer, st viewer.State, p domain.Product) error {
	if err := r.tmpl.ExecuteTemplate(w, "detail.html", r.Product(st, p)); err != nil {
		return fmt.Errorf("render: detail: %w", err)
	}
	return nil
}
