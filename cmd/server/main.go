package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/medilink/health-exchange-api/internal/system/config"
	"github.com/medilink/health-exchange-api/internal/system/database"
	"github.com/medilink/health-exchange-api/internal/system/database/provider"
	"github.com/medilink/health-exchange-api/internal/system/log"
	"github.com/medilink/health-exchange-api/internal/system/middleware"
)

// Version information (set by build script)
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.GetLogger().Fatal("Failed to load configuration", log.Error(err))
	}

	log.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger := log.GetLogger()

	logger.Info("Starting Health Exchange API Server...",
		log.String("version", version),
		log.String("build_date", buildDate),
	)

	db, err := database.Initialize(&cfg.Database)
	if err != nil {
		logger.Fatal("Failed to initialize database", log.Error(err))
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.HealthCheck(ctx); err != nil {
		logger.Fatal("Database health check failed", log.Error(err))
	}
	logger.Info("Database connection established")

	provider.InitDBProvider(db)
	dbClient, err := provider.GetDBProvider().GetDBClient()
	if err != nil {
		logger.Fatal("Failed to create database client", log.Error(err))
	}

	mux := http.NewServeMux()
	registerServices(mux, dbClient, db)

	httpHandler := middleware.WrapWithCorrelationID(mux)

	server := &http.Server{
		Addr:           cfg.Server.GetServerAddress(),
		Handler:        httpHandler,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    cfg.Server.IdleTimeout,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		logger.Info("Starting HTTP server...", log.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", log.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	unregisterServices()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("Server forced to shutdown", log.Error(err))
	}

	logger.Info("Server exited gracefully")
}
