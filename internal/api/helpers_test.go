package api

import (
	"context"
	"io"
	"log"
	"net/http/httptest"
	"testing"

	"points-catalog-service/internal/catalog"
	"points-catalog-service/internal/debounce"
	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/loader"
	"points-catalog-service/internal/prefs"
	"points-catalog-service/internal/render"
	"points-catalog-service/internal/store"
	"points-catalog-service/internal/viewer"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

var testLogger = log.New(io.Discard, "", 0)

// MockCatalogViewer is a mock implementation of CatalogViewer
type MockCatalogViewer struct {
	mock.Mock
}

func (m *MockCatalogViewer) State() viewer.State {
	args := m.Called()
	return args.Get(0).(viewer.State)
}

func (m *MockCatalogViewer) Product(key string) (domain.Product, error) {
	args := m.Called(key)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *MockCatalogViewer) Dispatch(ctx context.Context, cmd viewer.Command) (viewer.State, error) {
	args := m.Called(ctx, cmd)
	return args.Get(0).(viewer.State), args.Error(1)
}

// fixedLoader serves the same payload for every load.
type fixedLoader struct {
	payload domain.Payload
	err     error
}

func (l fixedLoader) Load(context.Context) (domain.Payload, loader.Report, error) {
	return l.payload, loader.Report{Source: "embedded"}, l.err
}

func (l fixedLoader) LoadFresh(context.Context) (domain.Payload, loader.Report, error) {
	return l.payload, loader.Report{Source: "proxy-a"}, l.err
}

func testPayload() domain.Payload {
	return domain.Payload{
		{
			ID:   "1166",
			Name: "Capsules",
			Products: []domain.RawProduct{
				{DisplayName: "Dolce", PointsValue: "100", RedeemAvailable: true, SKU: "A1", Brand: "original"},
				{DisplayName: "Forte", PointsValue: "250", RedeemAvailable: true, SKU: "A2", Brand: "vertuo"},
				{DisplayName: "Gone", PointsValue: "50", RedeemAvailable: false, SKU: "A3", Brand: "original"},
			},
		},
	}
}

func newTestRenderer(t *testing.T) *render.Renderer {
	t.Helper()
	r, err := render.New(language.English)
	require.NoError(t, err)
	return r
}

// newTestViewer returns a loaded viewer backed by an in-memory preference store.
func newTestViewer(t *testing.T) (*viewer.Viewer, *store.MemoryStore) {
	t.Helper()
	s := store.NewMemoryStore()
	v := viewer.New(fixedLoader{payload: testPayload()}, catalog.NewNormalizer(""), prefs.NewBridge(s, "default", testLogger), testLogger)
	require.NoError(t, v.Init(context.Background()))
	return v, s
}

// Helper for setting up tests with a chi router and handler
func setupTestChiServer(t *testing.T, v CatalogViewer, d *debounce.Debouncer, p Pinger) *httptest.Server {
	t.Helper()
	if d == nil {
		d = debounce.New(0)
	}
	handler := NewHTTPHandler(v, newTestRenderer(t), d, p)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)

	return httptest.NewServer(router)
}

// Helper function to get a pointer (useful for optional input fields)
func PtrTo[T any](v T) *T {
	return &v
}
