package main

import (
	"context"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduscale/backend-go/internal/api"
	"github.com/eduscale/backend-go/internal/cache"
	"github.com/eduscale/backend-go/internal/config"
	"github.com/eduscale/backend-go/internal/repository"
	"github.com/eduscale/backend-go/internal/repository/memory"
	"github.com/eduscale/backend-go/internal/repository/postgres"
	"github.com/eduscale/backend-go/internal/service"
	"github.com/eduscale/backend-go/internal/storage"
	"github.com/eduscale/backend-go/pkg/logger"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	logger.SetLevel(cfg.Server.Mode)
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// Resolve the storage backend once; the same instance serves every
	// request for the process lifetime.
	backend, err := storage.New(cfg.Storage)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to resolve storage backend")
	}
	if closer, ok := backend.(io.Closer); ok {
		defer closer.Close()
	}

	// Initialize the upload catalog
	var catalog repository.UploadCatalog
	switch cfg.Catalog.Backend {
	case "memory":
		catalog = memory.NewUploadCatalog()
	case "postgres":
		db, err := postgres.NewDB(&cfg.Database)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to connect to database")
		}
		defer db.Close()
		catalog, err = postgres.NewUploadCatalog(context.Background(), db)
		if err != nil {
			logger.Log.Fatal().Err(err).Msg("Failed to initialize upload catalog")
		}
	default:
		logger.Log.Fatal().Str("backend", cfg.Catalog.Backend).Msg("Unknown catalog backend")
	}

	recordCache, err := cache.NewUploadCache(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize upload cache")
	}

	// Initialize services
	uploadService := service.NewUploadService(backend, catalog, recordCache)

	// Initialize HTTP server
	router := api.NewRouter(&api.Services{UploadService: uploadService}, cfg)
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Log.Info().
			Str("port", cfg.Server.Port).
			Str("storage_backend", backend.Name()).
			Str("catalog_backend", cfg.Catalog.Backend).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
