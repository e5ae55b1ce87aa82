// backend-go/cmd/server/main.go
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/andresuchdata/scamark/backend-go/internal/api"
	"github.com/andresuchdata/scamark/backend-go/internal/auth"
	"github.com/andresuchdata/scamark/backend-go/internal/cache"
	"github.com/andresuchdata/scamark/backend-go/internal/config"
	"github.com/andresuchdata/scamark/backend-go/internal/repository"
	"github.com/andresuchdata/scamark/backend-go/internal/store/backend"
	"github.com/andresuchdata/scamark/backend-go/pkg/logger"
	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	if err := logger.Init(cfg.Log.Level, cfg.Log.File); err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize logger")
	}
	if cfg.Server.Mode == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx := context.Background()

	// Initialize document store
	handle, err := backend.Open(ctx, cfg)
	if err != nil {
		logger.Log.Fatal().Err(err).Str("backend", cfg.Store.Backend).Msg("Failed to open document store")
	}
	defer handle.Close()

	cacheSvc, err := cache.NewFromConfig(cfg.Cache)
	if err != nil {
		logger.Log.Fatal().Err(err).Msg("Failed to initialize cache")
	}

	// Initialize services
	repo := repository.NewDecisionRepository(handle.Docs, cacheSvc, repository.OptionsFromConfig(cfg))
	authSvc := auth.NewService(handle.Users, cfg.Auth)

	router := api.NewRouter(&api.Services{Repo: repo, Auth: authSvc}, cfg.Server.AllowedOrigins)
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
			Str("store", handle.Name).
			Strs("suppliers", repo.Suppliers()).
			Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	logger.Log.Info().Msg("Server exiting")
}
