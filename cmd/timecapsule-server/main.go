package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dfryer1193/timecapsule/capsule/application"
	"github.com/dfryer1193/timecapsule/capsule/media"
	"github.com/dfryer1193/timecapsule/capsule/persistence"
	"github.com/dfryer1193/timecapsule/internal/config"
	"github.com/dfryer1193/timecapsule/internal/metrics"
	"github.com/dfryer1193/timecapsule/internal/middleware"
	"github.com/dfryer1193/timecapsule/internal/rest"
	"github.com/dfryer1193/timecapsule/shared/db/sqlite"
	"github.com/dfryer1193/timecapsule/shared/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)

	database := sqlite.NewSQLiteDB(cfg.SQLite)
	if err := database.Connect(); err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer func() {
		if err := database.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close database")
		}
	}()

	store, err := storage.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open data directory")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer, err := metrics.NewPrometheusObserver("timecapsule", registry)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to register metrics")
	}

	capsuleRepo := persistence.NewCapsuleRepository(database.DB())
	entryRepo := persistence.NewEntryRepository(database.DB())

	normalizer := media.NewNormalizer(store, nil, media.DefaultNormalizeConfig(), observer)
	collageCfg := media.DefaultCollageConfig()
	collageCfg.DiskBackedCanvas = cfg.DiskBackedCanvas
	assembler := media.NewAssembler(store, collageCfg, observer)

	capsuleService := application.NewCapsuleService(capsuleRepo)
	selfieService := application.NewSelfieService(capsuleRepo, entryRepo, normalizer, store)
	exportService := application.NewExportService(capsuleRepo, entryRepo, assembler, store, cfg.MaxConcurrentExports)
	defer func() {
		if err := exportService.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to gracefully close export service")
		}
	}()

	if _, err := capsuleService.GetOrCreateActive(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("Failed to ensure an active capsule")
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.LoggingMiddleware())
	router.Use(gin.CustomRecovery(middleware.HandlePanics()))

	if _, err := rest.NewApi(router, rest.Options{
		Capsules:           capsuleService,
		Selfies:            selfieService,
		Exports:            exportService,
		Store:              store,
		DB:                 database,
		Gatherer:           registry,
		ThumbnailCacheSize: cfg.ThumbnailCacheSize,
		MaxUploadBytes:     cfg.MaxUploadBytes,
		SelfieKeepDays:     cfg.SelfieKeepDays,
		ExportKeepDays:     cfg.ExportKeepDays,
	}); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up API")
	}

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", srv.Addr).Str("data_dir", cfg.DataDir).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shutdown server")
	}

	log.Info().Msg("Server stopped")
}
