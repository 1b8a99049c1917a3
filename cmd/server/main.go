// Package main initializes and starts the onboarding backend server,
// setting up configuration, logging, the store, repositories, services,
// handlers, and background maintenance.
package main

import (
	"cmp"
	"context"
	"fmt"
	"time"

	nethttp "net/http"

	"github.com/onboardkit/onboardkit/internal/config"
	"github.com/onboardkit/onboardkit/internal/db"
	"github.com/onboardkit/onboardkit/internal/logger"
	"github.com/onboardkit/onboardkit/internal/repository"
	"github.com/onboardkit/onboardkit/internal/server/handler/http"
	"github.com/onboardkit/onboardkit/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	// Parse command-line and environment configuration.
	options := config.Parse()
	addr := options.Port
	dsn := options.DatabaseDSN

	// Print build metadata (or "N/A" if unset).
	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	// Initialize structured logging.
	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	// Open the store (Postgres or SQLite by DSN) and apply the schema.
	store, dialect, err := db.Init(dsn)
	if err != nil {
		zapLogger.Fatal("cannot init store", zap.Error(err))
	}

	// Prune assignments from devices that stopped resolving.
	db.StartAssignmentCleaner(context.Background(), store, dialect,
		time.Hour,       // interval
		90*24*time.Hour, // retention: 90 days
		zapLogger,
	)

	// Initialize the flow repository.
	flowRepo := repository.NewFlowRepository(store, dialect)

	// Initialize business-logic services.
	configService := service.NewConfigService(flowRepo)
	resolveService := service.NewResolveService(flowRepo)

	// Create HTTP handlers for the config, resolve, and content endpoints.
	configHandler := &http.ConfigHandler{ConfigService: configService}
	resolveHandler := &http.ResolveHandler{ResolveService: resolveService}
	contentHandler := &http.ContentHandler{}

	// Build the router with middleware and routes.
	router := http.NewRouter(configHandler, resolveHandler, contentHandler, zapLogger)

	// Create and start the HTTP server.
	server := &nethttp.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	zapLogger.Info("starting HTTP server", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil {
		zapLogger.Fatal("failed to start HTTP server", zap.Error(err))
	}
}
