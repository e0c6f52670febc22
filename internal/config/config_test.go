package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HttpServer.Port)
	assert.Equal(t, PrefsMemory, cfg.Prefs.Backend)
	assert.Equal(t, []string{"https://corsproxy.io/?", "https://api.allorigins.win/raw?url="}, cfg.Catalog.ProxyPrefixes)
	assert.Equal(t, 300*time.Millisecond, cfg.Catalog.DebounceWindow)
	assert.Equal(t, uint32(3), cfg.Catalog.BreakerFailures)
	assert.True(t, cfg.Catalog.EmbeddedSample)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Setenv("PREFS_BACKEND", "redis")
	t.Setenv("REDIS_ADDR", "cache:6380")
	t.Setenv("CATALOG_PROXY_PREFIXES", "https://proxy.example.com/?u=")
	t.Setenv("CATALOG_DEBOUNCE_WINDOW", "150ms")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, PrefsRedis, cfg.Prefs.Backend)
	assert.Equal(t, "cache:6380", cfg.Redis.Addr)
	assert.Equal(t, []string{"https://proxy.example.com/?u="}, cfg.Catalog.ProxyPrefixes)
	assert.Equal(t, 150*time.Millisecond, cfg.Catalog.DebounceWindow)
}

func TestLoad_Invalid(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("PREFS_BACKEND", "sqlite")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres without credentials", func(t *testing.T) {
		t.Setenv("PREFS_BACKEND", "postgres")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("postgres with credentials", func(t *testing.T) {
		t.Setenv("PREFS_BACKEND", "postgres")
		t.Setenv("POSTGRES_USER", "viewer")
		t.Setenv("POSTGRES_DBNAME", "points")
		cfg, err := Load()
		require.NoError(t, err)
		assert.Contains(t, cfg.Postgres.DSN(), "dbname=points")
	})
}
