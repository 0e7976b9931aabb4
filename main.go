package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-proxy/internal/coordinator"
	"media-proxy/internal/extraction"
	"media-proxy/internal/generator"
	"media-proxy/internal/handlers"
	"media-proxy/internal/kvstore"
	"media-proxy/internal/logging"
	"media-proxy/internal/middleware"
	"media-proxy/internal/proxycache"
	"media-proxy/internal/startup"
	"media-proxy/internal/workers"
)

func main() {
	startTime := time.Now()
	ctx := context.Background()

	// Load configuration
	config, err := startup.LoadConfig()
	if err != nil {
		startup.LogFatal("Configuration error: %v", err)
	}

	// Open the snapshot store
	store, err := kvstore.OpenSQLite(ctx, config.DatabasePath)
	if err != nil {
		startup.LogFatal("Failed to open snapshot store: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error("Failed to close snapshot store: %v", err)
		}
	}()

	// Restore the sprite cache, dropping expired and unreachable entries
	cache := proxycache.New(store, proxycache.Options{
		MaxEntries: config.MaxCacheEntries,
		TTL:        config.CacheTTL,
	})
	if _, _, err := cache.Load(ctx); err != nil {
		logging.Warn("Cache restore failed, starting empty: %v", err)
	}

	// Wire the extraction pipeline
	backend := extraction.NewFFmpegBackend(config.FFmpegPath, workers.ForCPU(8))
	prober := extraction.NewFFprobeProber(config.FFprobePath)
	coord := coordinator.New(backend, coordinator.TimeoutConfig{
		Base:     config.TimeoutBase,
		PerSheet: config.TimeoutPerSheet,
		Max:      config.TimeoutMax,
	}, config.PollInterval)
	gen := generator.New(prober, coord, cache, config.SheetDir)

	// Setup router
	h := handlers.New(gen)
	router := setupRouter(h, config)

	loggingConfig := middleware.DefaultLoggingConfig()
	loggingConfig.LogHealthChecks = config.LogHealthChecks
	handler := middleware.Logger(loggingConfig)(router)
	if config.MetricsEnabled {
		handler = middleware.Metrics(middleware.DefaultMetricsConfig())(handler)
	}

	srv := &http.Server{
		Addr:         ":" + config.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 0, // generations can take minutes
		IdleTimeout:  60 * time.Second,
	}

	go handleShutdown(srv, backend)

	startup.LogServerStarted(config.Port, time.Since(startTime))
	if err := srv.ListenAndServe(); err != http.ErrServerClosed {
		startup.LogFatal("Server error: %v", err)
	}
}

func setupRouter(h *handlers.Handlers, config *startup.Config) *mux.Router {
	r := mux.NewRouter()

	// Health and version routes
	r.HandleFunc("/health", h.HealthCheck).Methods("GET")
	r.HandleFunc("/healthz", h.HealthCheck).Methods("GET")
	r.HandleFunc("/livez", h.LivenessCheck).Methods("GET", "HEAD")
	r.HandleFunc("/version", h.GetVersion).Methods("GET")

	// Proxy API
	api := r.PathPrefix("/api/proxy").Subrouter()
	api.HandleFunc("/generate", h.Generate).Methods("POST")
	api.HandleFunc("/cached", h.GetCached).Methods("GET")
	api.HandleFunc("/info", h.GetMediaInfo).Methods("GET")
	api.HandleFunc("/source", h.InvalidateSource).Methods("DELETE")
	api.HandleFunc("/cache", h.ClearCache).Methods("DELETE")
	api.HandleFunc("/stats", h.Stats).Methods("GET")

	if config.MetricsEnabled {
		r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	}

	return r
}

func handleShutdown(srv *http.Server, backend *extraction.FFmpegBackend) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan

	logging.Info("Received signal %v, shutting down...", sig)

	// Abandoned generations keep their entries out of the cache; killing the
	// extraction processes is all the cleanup the backend needs.
	backend.Cleanup()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logging.Error("Server shutdown error: %v", err)
	}
}
