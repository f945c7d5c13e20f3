package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dvloznov/smart-ledger/internal/analytics/engine"
	"github.com/dvloznov/smart-ledger/internal/api/handlers"
	"github.com/dvloznov/smart-ledger/internal/config"
	"github.com/dvloznov/smart-ledger/internal/database"
	"github.com/dvloznov/smart-ledger/internal/infra/sqlite"
	"github.com/dvloznov/smart-ledger/internal/jobs/inmemory"
	"github.com/dvloznov/smart-ledger/internal/ledger"
	"github.com/dvloznov/smart-ledger/internal/logger"
	"github.com/dvloznov/smart-ledger/internal/reports"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logger.New()
		l.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger
	log := logger.NewWithOptions(logger.Options{Level: cfg.Log.Level, Format: cfg.Log.Format})

	ctx := context.Background()

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatal().Err(err).Msg("Failed to create database directory")
	}
	db, err := database.OpenMigrated(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to open database")
	}
	defer db.Close()

	repos := sqlite.NewRepositories(db)
	ledgerService := ledger.NewService(sqlite.NewStore(db), log)

	analytics, err := engine.New(ctx, cfg, repos, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build analytics engine")
	}
	defer analytics.Close()

	// Train the classifier in the background; suggestions fall through to
	// the other strategies until it is ready.
	go func() {
		if err := analytics.Classifier.Train(ctx); err != nil {
			log.Error().Err(err).Msg("Classifier training failed")
		}
	}()

	// Initialize report export
	var objects reports.ObjectStore
	if cfg.Storage.Bucket == "" {
		log.Warn().Msg("No storage bucket configured - dashboard exports will fail")
	} else {
		gcs, err := reports.NewGCSStore(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to create storage client")
		}
		defer gcs.Close()
		objects = gcs
	}
	exporter := reports.NewExporter(analytics.Dashboard, objects, cfg.Storage.Bucket, log)

	// Initialize job infrastructure
	jobStore := inmemory.NewStore()
	jobQueue := inmemory.NewQueue(100, inmemory.DefaultWorkers, jobStore, log)

	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	go func() {
		log.Info().Msg("Starting job worker")
		if err := jobQueue.Start(workerCtx, exporter.Handle); err != nil {
			log.Error().Err(err).Msg("Job worker stopped with error")
		}
	}()

	handler := handlers.NewRouter(handlers.Deps{
		Ledger:       ledgerService,
		Accounts:     repos.Accounts,
		Categories:   repos.Categories,
		Transactions: repos.Transactions,
		Classifier:   analytics.Classifier,
		Forecaster:   analytics.Forecaster,
		Detector:     analytics.Detector,
		Dashboard:    analytics.Dashboard,
		JobStore:     jobStore,
		Publisher:    jobQueue,
		Reports:      exporter,
	}, log)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Server.Port).Str("analytics_source", cfg.Analytics.Source).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop job queue and wait for in-flight jobs
	if err := jobQueue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping job queue")
	}
	cancelWorker()

	log.Info().Msg("Server exited")
}
