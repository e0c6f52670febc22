package prefs

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"

	"points-catalog-service/internal/domain"
	"points-catalog-service/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPreferenceStorer is a mock type for the store.PreferenceStorer interface
type MockPreferenceStorer struct {
	mock.Mock
}

func (m *MockPreferenceStorer) GetPreference(ctx context.Context, profile, key string) ([]byte, error) {
	args := m.Called(ctx, profile, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockPreferenceStorer) PutPreference(ctx context.Context, profile, key string, value []byte) error {
	args := m.Called(ctx, profile, key, value)
	return args.Error(0)
}

func (m *MockPreferenceStorer) DeletePreference(ctx context.Context, profile, key string) error {
	args := m.Called(ctx, profile, key)
	return args.Error(0)
}

func (m *MockPreferenceStorer) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockPreferenceStorer) Close() error {
	args := m.Called()
	return args.Error(0)
}

func newBridge(s store.PreferenceStorer) (*Bridge, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewBridge(s, "default", log.New(&buf, "", 0)), &buf
}

func TestBridge_LoadFilters_EmptySnapshotGivesDefaults(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.PutPreference(context.Background(), "default", filtersKey, []byte(`{}`)))
	b, _ := newBridge(s)

	c := b.LoadFilters(context.Background())

	assert.Equal(t, domain.StockAvailable, c.Stock)
	assert.Equal(t, domain.SortPointsDesc, c.Sort)
	assert.Equal(t, domain.DefaultCriteria(), c)
}

func TestBridge_LoadFilters_MissingGivesDefaultsSilently(t *testing.T) {
	b, logs := newBridge(store.NewMemoryStore())

	assert.Equal(t, domain.DefaultCriteria(), b.LoadFilters(context.Background()))
	assert.Empty(t, logs.String())
}

func TestBridge_LoadFilters_CorruptGivesDefaults(t *testing.T) {
	s := store.NewMemoryStore()
	require.NoError(t, s.PutPreference(context.Background(), "default", filtersKey, []byte(`{"search": `)))
	b, logs := newBridge(s)

	assert.Equal(t, domain.DefaultCriteria(), b.LoadFilters(context.Background()))
	assert.Contains(t, logs.String(), "WARN:")
}

func TestBridge_LoadFilters_StoreErrorGivesDefaults(t *testing.T) {
	m := new(MockPreferenceStorer)
	m.On("GetPreference", mock.Anything, "default", filtersKey).Return(nil, errors.New("redis: connection refused"))
	b, logs := newBridge(m)

	assert.Equal(t, domain.DefaultCriteria(), b.LoadFilters(context.Background()))
	assert.Contains(t, logs.String(), "connection refused")
	m.AssertExpectations(t)
}

func TestBridge_LoadFilters_AcceptsStringsAndNumbers(t *testing.T) {
	s := store.NewMemoryStore()
	raw := `{"search":"vertuo","category":"1166","brand":"original","stock":"all","sort":"points-asc",
		"minPoints":"150","maxPoints":900,"userPoints":"2500","affordableActive":true}`
	require.NoError(t, s.PutPreference(context.Background(), "default", filtersKey, []byte(raw)))
	b, _ := newBridge(s)

	c := b.LoadFilters(context.Background())

	assert.Equal(t, domain.Criteria{
		Search:         "vertuo",
		Category:       "1166",
		Brand:          "original",
		Stock:          domain.StockAll,
		Sort:           domain.SortPointsAsc,
		MinPoints:      150,
		MaxPoints:      900,
		AffordableOnly: true,
		UserPoints:     2500,
	}, c)
}

func TestBridge_LoadFilters_UnsetBoundsStayUnbounded(t *testing.T) {
	s := store.NewMemoryStore()
	raw := `{"minPoints":"","maxPoints":"","userPoints":"0","stock":"sideways"}`
	require.NoError(t, s.PutPreference(context.Background(), "default", filtersKey, []byte(raw)))
	b, _ := newBridge(s)

	c := b.LoadFilters(context.Background())

	assert.Zero(t, c.MinPoints)
	assert.Zero(t, c.MaxPoints)
	assert.Zero(t, c.UserPoints)
	assert.Equal(t, domain.StockAvailable, c.Stock, "unknown stock value falls back to the default")
}

func TestBridge_Filters_RoundTrip(t *testing.T) {
	b, _ := newBridge(store.NewMemoryStore())
	want := domain.Criteria{
		Search:         "ristretto",
		Category:       "3256",
		Brand:          domain.SelectAll,
		Stock:          domain.StockUnavailable,
		Sort:           domain.SortDefault,
		MaxPoints:      400,
		AffordableOnly: true,
		UserPoints:     320,
	}

	require.NoError(t, b.SaveFilters(context.Background(), want))

	assert.Equal(t, want, b.LoadFilters(context.Background()))
}

func TestBridge_SaveFilters_SnapshotKeys(t *testing.T) {
	s := store.NewMemoryStore()
	b, _ := newBridge(s)

	require.NoError(t, b.SaveFilters(context.Background(), domain.DefaultCriteria()))

	raw, err := s.GetPreference(context.Background(), "default", filtersKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"search":"","category":"all","brand":"all","stock":"available","sort":"points-desc",
		"minPoints":"","maxPoints":"","userPoints":"0","affordableActive":false}`, string(raw))
}

func TestBridge_SaveFilters_StoreError(t *testing.T) {
	m := new(MockPreferenceStorer)
	m.On("PutPreference", mock.Anything, "default", filtersKey, mock.Anything).Return(errors.New("db down"))
	b, _ := newBridge(m)

	err := b.SaveFilters(context.Background(), domain.DefaultCriteria())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	m.AssertExpectations(t)
}

func TestBridge_ClearFilters(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemoryStore()
	b, _ := newBridge(s)
	c := domain.DefaultCriteria()
	c.Search = "forte"
	require.NoError(t, b.SaveFilters(ctx, c))

	require.NoError(t, b.ClearFilters(ctx))

	_, err := s.GetPreference(ctx, "default", filtersKey)
	assert.True(t, errors.Is(err, store.ErrPreferenceNotFound))
	assert.Equal(t, domain.DefaultCriteria(), b.LoadFilters(ctx))
	assert.NoError(t, b.ClearFilters(ctx), "clearing twice is fine")
}

func TestBridge_ClearFilters_StoreError(t *testing.T) {
	m := new(MockPreferenceStorer)
	m.On("DeletePreference", mock.Anything, "default", filtersKey).Return(errors.New("db down"))
	b, _ := newBridge(m)

	err := b.ClearFilters(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
	m.AssertExpectations(t)
}

func TestBridge_Settings(t *testing.T) {
	t.Run("defaults when missing", func(t *testing.T) {
		b, _ := newBridge(store.NewMemoryStore())
		assert.Equal(t, domain.DefaultSettings(), b.LoadSettings(context.Background()))
	})

	t.Run("round trip", func(t *testing.T) {
		b, _ := newBridge(store.NewMemoryStore())
		want := domain.Settings{ImageSize: 150, CardSize: 240, AutoRefresh: true, RefreshInterval: 60000}
		require.NoError(t, b.SaveSettings(context.Background(), want))
		assert.Equal(t, want, b.LoadSettings(context.Background()))
	})

	t.Run("zero fields take defaults", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.PutPreference(context.Background(), "default", settingsKey, []byte(`{"imageSize":0,"autoRefresh":true}`)))
		b, _ := newBridge(s)

		got := b.LoadSettings(context.Background())
		assert.Equal(t, 100, got.ImageSize)
		assert.Equal(t, 320, got.CardSize)
		assert.True(t, got.AutoRefresh)
		assert.Equal(t, 300000, got.RefreshInterval)
	})

	t.Run("out of range is discarded", func(t *testing.T) {
		s := store.NewMemoryStore()
		require.NoError(t, s.PutPreference(context.Background(), "default", settingsKey, []byte(`{"imageSize":"5000"}`)))
		b, logs := newBridge(s)

		assert.Equal(t, domain.DefaultSettings(), b.LoadSettings(context.Background()))
		assert.Contains(t, logs.String(), "WARN:")
	})

	t.Run("invalid settings are not saved", func(t *testing.T) {
		m := new(MockPreferenceStorer)
		b, _ := newBridge(m)
		err := b.SaveSettings(context.Background(), domain.Settings{ImageSize: 1, CardSize: 320})
		assert.Error(t, err)
		m.AssertNotCalled(t, "PutPreference", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}
