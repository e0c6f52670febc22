package config

import (
	"fmt"
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Preference backends.
const (
	PrefsMemory   = "memory"
	PrefsPostgres = "postgres"
	PrefsRedis    = "redis"
)

// Config holds the application's configuration values.
// Tags like `envconfig:"APP_PORT"` specify the environment variable name.
// `default:""` provides a default value if the env var is not set.
type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"development"` // e.g., development, staging, production
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`      // e.g., debug, info, warn, error
	HttpServer ServerConfig
	GrpcServer GrpcServerConfig
	Catalog    CatalogConfig
	Prefs      PrefsConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
}

// ServerConfig holds HTTP server-specific configurations.
type ServerConfig struct {
	Port         string        `envconfig:"HTTP_SERVER_PORT" default:"8080"`
	TimeoutRead  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_READ" default:"15s"`
	TimeoutWrite time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_WRITE" default:"60s"`
	TimeoutIdle  time.Duration `envconfig:"HTTP_SERVER_TIMEOUT_IDLE" default:"60s"`
}

// GrpcServerConfig holds gRPC server-specific configurations.
type GrpcServerConfig struct {
	Port    string `envconfig:"GRPC_SERVER_PORT" default:"9090"`
	Enabled bool   `envconfig:"GRPC_SERVER_ENABLED" default:"true"`
}

// CatalogConfig describes where the catalog comes from and how it is fetched.
type CatalogConfig struct {
	APIURL         string        `envconfig:"CATALOG_API_URL" default:"https://www.nespresso.com/il/he/customer/account/getPointsCatalog"`
	ImageBaseURL   string        `envconfig:"CATALOG_IMAGE_BASE_URL" default:"https://www.nespresso.com/il/he/media/catalog/product"`
	ProxyPrefixes  []string      `envconfig:"CATALOG_PROXY_PREFIXES" default:"https://corsproxy.io/?,https://api.allorigins.win/raw?url="`
	DirectEnabled  bool          `envconfig:"CATALOG_DIRECT_ENABLED" default:"true"`
	AcceptLanguage string        `envconfig:"CATALOG_ACCEPT_LANGUAGE" default:"he-IL,he;q=0.9"`
	LocalFile      string        `envconfig:"CATALOG_LOCAL_FILE" default:"data.json"`
	CacheWriteBack bool          `envconfig:"CATALOG_CACHE_WRITE_BACK" default:"true"`
	EmbeddedSample bool          `envconfig:"CATALOG_EMBEDDED_SAMPLE" default:"true"`
	FetchTimeout   time.Duration `envconfig:"CATALOG_FETCH_TIMEOUT" default:"10s"`
	LoadTimeout    time.Duration `envconfig:"CATALOG_LOAD_TIMEOUT" default:"45s"`

	BreakerFailures    uint32        `envconfig:"CATALOG_BREAKER_FAILURES" default:"3"`
	BreakerOpenTimeout time.Duration `envconfig:"CATALOG_BREAKER_OPEN_TIMEOUT" default:"1m"`

	DebounceWindow time.Duration `envconfig:"CATALOG_DEBOUNCE_WINDOW" default:"300ms"`
	Language       string        `envconfig:"CATALOG_LANGUAGE" default:"en"` // Number formatting on pages
}

// PrefsConfig selects the preference backend.
type PrefsConfig struct {
	Backend string `envconfig:"PREFS_BACKEND" default:"memory"` // memory, postgres or redis
	Profile string `envconfig:"PREFS_PROFILE" default:"default"`
}

// PostgresConfig holds PostgreSQL database connection details.
// Only read when PREFS_BACKEND=postgres.
type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     string `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	DBName   string `envconfig:"POSTGRES_DBNAME"`
}

// DSN constructs the Data Source Name string for connecting to PostgreSQL.
func (pc *PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		pc.Host, pc.Port, pc.User, pc.Password, pc.DBName)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// Load initializes the configuration from environment variables.
// It should be called once during application startup.
func Load() (*Config, error) {
	log.Println("Loading service configuration...")
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process configuration: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log.Printf("Configuration loaded successfully for APP_ENV: %s", cfg.AppEnv)
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Prefs.Backend {
	case PrefsMemory, PrefsRedis:
	case PrefsPostgres:
		if c.Postgres.User == "" || c.Postgres.DBName == "" {
			return fmt.Errorf("config: POSTGRES_USER and POSTGRES_DBNAME are required for the postgres preference backend")
		}
	default:
		return fmt.Errorf("config: invalid PREFS_BACKEND %q", c.Prefs.Backend)
	}
	if c.Catalog.APIURL == "" && c.Catalog.LocalFile == "" && !c.Catalog.EmbeddedSample {
		return fmt.Errorf("config: no catalog source configured")
	}
	return nil
}
