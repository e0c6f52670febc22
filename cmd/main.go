package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"points-catalog-service/internal/api"
	"points-catalog-service/internal/catalog"
	"points-catalog-service/internal/config"
	"points-catalog-service/internal/debounce"
	"points-catalog-service/internal/loader"
	"points-catalog-service/internal/prefs"
	"points-catalog-service/internal/refresh"
	"points-catalog-service/internal/render"
	"points-catalog-service/internal/store"
	"points-catalog-service/internal/viewer"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"golang.org/x/text/language"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const (
	defaultAppName = "PointsCatalogService" // App name for logger
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("INFO: No .env file found or failed to load, relying on system environment")
	}
	logger := log.New(os.Stdout, fmt.Sprintf("[%s] ", defaultAppName), log.LstdFlags|log.Lshortfile|log.Lmicroseconds)
	logger.Println("INFO: Starting service...")

	// --- Configuration Loading ---
	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("FATAL: Error loading configuration: %v", err)
	}
	logger.Printf("INFO: Configuration loaded for APP_ENV: %s, LogLevel: %s", cfg.AppEnv, cfg.LogLevel)

	// --- Preference Store ---
	prefStore, err := openPreferenceStore(cfg, logger)
	if err != nil {
		logger.Fatalf("FATAL: Failed to open %s preference store: %v", cfg.Prefs.Backend, err)
	}

	// --- Catalog Pipeline ---
	catalogLoader := buildLoader(cfg.Catalog, logger)
	bridge := prefs.NewBridge(prefStore, cfg.Prefs.Profile, logger)
	catalogViewer := viewer.New(catalogLoader, catalog.NewNormalizer(cfg.Catalog.ImageBaseURL), bridge, logger)

	scheduler := refresh.NewScheduler(func(ctx context.Context) {
		if _, err := catalogViewer.Dispatch(ctx, viewer.Refresh{Silent: true}); err != nil {
			logger.Printf("WARN: Scheduled refresh failed: %v", err)
		}
	}, cfg.Catalog.LoadTimeout, logger)

	// Cancelled on shutdown; the initial load must finish before the scheduler is stopped.
	appCtx, cancelApp := context.WithCancel(context.Background())
	initDone := startInitialLoad(appCtx, catalogViewer, scheduler, cfg.Catalog.LoadTimeout, logger)

	lang, err := language.Parse(cfg.Catalog.Language)
	if err != nil {
		logger.Printf("WARN: Invalid CATALOG_LANGUAGE %q, using English: %v", cfg.Catalog.Language, err)
		lang = language.English
	}
	renderer, err := render.New(lang)
	if err != nil {
		logger.Fatalf("FATAL: Failed to load page templates: %v", err)
	}
	debouncer := debounce.New(cfg.Catalog.DebounceWindow)

	// --- Initialize API Handlers ---
	httpAPIHandler := api.NewHTTPHandler(catalogViewer, renderer, debouncer, prefStore)
	grpcAPIHandler := api.NewGRPCHandler(catalogViewer, renderer)

	// --- Setup & Start HTTP Server ---
	httpRouter := chi.NewRouter()
	setupBaseMiddleware(httpRouter, logger)
	httpAPIHandler.RegisterRoutes(httpRouter)

	httpServer := &http.Server{
		Addr:         ":" + cfg.HttpServer.Port,
		Handler:      httpRouter,
		ReadTimeout:  cfg.HttpServer.TimeoutRead,
		WriteTimeout: cfg.HttpServer.TimeoutWrite,
		IdleTimeout:  cfg.HttpServer.TimeoutIdle,
	}

	go func() {
		logger.Printf("INFO: HTTP server listening on port %s", cfg.HttpServer.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("FATAL: HTTP server ListenAndServe error: %v", err)
		}
		logger.Println("INFO: HTTP server has stopped.")
	}()

	// --- Setup & Start gRPC Server ---
	var grpcServer *grpc.Server
	if cfg.GrpcServer.Enabled {
		grpcServer = setupGRPCServer(logger, grpcAPIHandler)
		grpcListener, err := net.Listen("tcp", ":"+cfg.GrpcServer.Port)
		if err != nil {
			logger.Fatalf("FATAL: Failed to listen for gRPC on port %s: %v", cfg.GrpcServer.Port, err)
		}

		go func() {
			logger.Printf("INFO: gRPC server listening on port %s", cfg.GrpcServer.Port)
			if err := grpcServer.Serve(grpcListener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
				logger.Fatalf("FATAL: gRPC server Serve error: %v", err)
			}
			logger.Println("INFO: gRPC server has stopped.")
		}()
	}

	// --- Graceful Shutdown ---
	shutdownComplete := make(chan struct{})
	go waitForShutdown(logger, httpServer, grpcServer, func() {
		cancelApp()
		<-initDone
		debouncer.Stop()
		scheduler.Stop()
		if err := prefStore.Close(); err != nil {
			logger.Printf("WARN: Error closing preference store: %v", err)
		}
	}, shutdownComplete)

	<-shutdownComplete
	logger.Println("INFO: Service shutdown sequence finished.")
}

type initializer interface {
	Init(ctx context.Context) error
	SetScheduler(s viewer.Rescheduler)
}

// startInitialLoad runs the first catalog load in the background, then attaches the
// scheduler unless ctx was cancelled meanwhile. The channel closes when it is done.
func startInitialLoad(ctx context.Context, v initializer, sched viewer.Rescheduler, timeout time.Duration, logger *log.Logger) <-chan struct{} {
	done := make(chan struct{})
	go func() {
		defer close(done)
		loadCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()
		if err := v.Init(loadCtx); err != nil {
			logger.Printf("ERROR: Initial catalog load failed: %v", err)
		}
		if ctx.Err() != nil {
			logger.Println("INFO: Shutdown during initial load, auto-refresh not armed.")
			return
		}
		// Armed after the first load so a tick never races the initial fetch.
		v.SetScheduler(sched)
	}()
	return done
}

func openPreferenceStore(cfg *config.Config, logger *log.Logger) (store.PreferenceStorer, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.Prefs.Backend {
	case config.PrefsPostgres:
		db, err := sql.Open("postgres", cfg.Postgres.DSN())
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		if err := db.PingContext(ctx); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ping database: %w", err)
		}
		logger.Println("INFO: Database connection established successfully.")
		return store.NewPostgresStore(db), nil
	case config.PrefsRedis:
		client, err := store.NewRedisClient(ctx, store.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, err
		}
		logger.Printf("INFO: Connected to Redis at %s", cfg.Redis.Addr)
		return store.NewRedisStore(client), nil
	default:
		logger.Println("WARN: Using in-memory preferences; they will not survive a restart.")
		return store.NewMemoryStore(), nil
	}
}

// buildLoader assembles the source chain: proxies, direct, local file, embedded sample.
func buildLoader(cfg config.CatalogConfig, logger *log.Logger) *loader.Loader {
	client := &http.Client{Timeout: cfg.FetchTimeout}
	breaker := loader.BreakerConfig{
		ConsecutiveFailures: cfg.BreakerFailures,
		OpenTimeout:         cfg.BreakerOpenTimeout,
	}

	var sources []loader.Source
	if cfg.APIURL != "" {
		for i, prefix := range cfg.ProxyPrefixes {
			name := fmt.Sprintf("proxy-%d", i+1)
			if u, err := url.Parse(prefix); err == nil && u.Host != "" {
				name = u.Host
			}
			sources = append(sources, loader.NewProxySource(name, prefix, cfg.APIURL, client, breaker, logger))
		}
		if cfg.DirectEnabled {
			sources = append(sources, loader.NewDirectSource(cfg.APIURL, cfg.AcceptLanguage, client, breaker, logger))
		}
	}
	if cfg.LocalFile != "" {
		sources = append(sources, loader.NewFileSource(cfg.LocalFile))
	}
	if cfg.EmbeddedSample {
		sources = append(sources, loader.NewEmbeddedSource())
	}

	cachePath := ""
	if cfg.CacheWriteBack {
		cachePath = cfg.LocalFile
	}
	l := loader.New(logger, cachePath, sources...)
	for _, s := range l.Sources() {
		logger.Printf("INFO: Catalog source registered: %s (%s)", s.Name(), s.Kind())
	}
	return l
}

func setupBaseMiddleware(router *chi.Mux, logger *log.Logger) {
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))
	logger.Println("INFO: Base HTTP middleware registered.")
}

func setupGRPCServer(logger *log.Logger, grpcAPIHandler *api.GRPCHandler) *grpc.Server {
	s := grpc.NewServer()

	grpcAPIHandler.Register(s)
	logger.Printf("INFO: %s gRPC service registered.", api.CatalogViewerServiceName)

	grpc_health_v1.RegisterHealthServer(s, health.NewServer())
	logger.Println("INFO: gRPC health check service registered.")

	// Enable gRPC server reflection (useful for tools like grpcurl).
	reflection.Register(s)
	logger.Println("INFO: gRPC reflection service registered.")

	return s
}

func waitForShutdown(
	logger *log.Logger,
	httpServer *http.Server,
	grpcServer *grpc.Server,
	cleanup func(),
	shutdownComplete chan struct{},
) {
	defer close(shutdownComplete)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	receivedSignal := <-sigChan
	logger.Printf("INFO: Received signal: %s. Starting graceful shutdown...", receivedSignal)

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	stoppedGrpc := make(chan struct{})
	if grpcServer != nil {
		logger.Println("INFO: Attempting to gracefully shut down gRPC server...")
		go func() {
			grpcServer.GracefulStop()
			close(stoppedGrpc)
		}()
	} else {
		close(stoppedGrpc)
	}

	logger.Println("INFO: Attempting to gracefully shut down HTTP server...")
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Printf("WARN: HTTP server graceful shutdown failed: %v", err)
	} else {
		logger.Println("INFO: HTTP server gracefully shut down.")
	}

	select {
	case <-stoppedGrpc:
		logger.Println("INFO: gRPC server gracefully shut down.")
	case <-shutdownCtx.Done():
		logger.Printf("WARN: gRPC server graceful shutdown timed out: %v", shutdownCtx.Err())
		logger.Println("INFO: Forcing gRPC server stop...")
		grpcServer.Stop()
		logger.Println("INFO: gRPC server forced stop.")
	}

	cleanup()
	logger.Println("INFO: Graceful shutdown sequence completed.")
}
