package main

import (
	"net/http"

	"github.com/medilink/health-exchange-api/internal/audit"
	"github.com/medilink/health-exchange-api/internal/consent"
	"github.com/medilink/health-exchange-api/internal/fetch"
	"github.com/medilink/health-exchange-api/internal/gateway"
	"github.com/medilink/health-exchange-api/internal/record"
	"github.com/medilink/health-exchange-api/internal/router"
	"github.com/medilink/health-exchange-api/internal/system/config"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/database"
	"github.com/medilink/health-exchange-api/internal/system/database/provider"
	"github.com/medilink/health-exchange-api/internal/system/log"
	"github.com/medilink/health-exchange-api/internal/system/stores"
)

// Package-level service references for cleanup during shutdown
var (
	auditService   audit.AuditService
	consentService consent.ConsentService
	recordService  record.RecordService
	fetchService   fetch.FetchService
)

// registerServices wires the stores, gateway client, and modules onto the
// provided HTTP multiplexer. Module order matters: audit first (every other
// module appends to it), record before fetch (the fetch orchestrator owns a
// bundle processor).
func registerServices(
	mux *http.ServeMux,
	dbClient provider.DBClientInterface,
	db *database.DB,
) {
	logger := log.GetLogger()
	cfg := config.Get()

	registry := stores.NewStoreRegistry(dbClient)
	registry.Consent = consent.NewStore(dbClient)
	registry.Fetch = fetch.NewStore(dbClient)
	registry.Record = record.NewStore(dbClient)
	registry.Audit = audit.NewStore(dbClient)

	gatewayClient := gateway.NewClient(&cfg.Exchange)

	auditService = audit.Initialize(mux, registry)
	logger.Info("Audit module initialized")

	consentService = consent.Initialize(mux, registry, gatewayClient, auditService)
	logger.Info("Consent module initialized")

	var processor record.BundleProcessor
	recordService, processor = record.Initialize(registry, auditService)
	logger.Info("Record module initialized")

	fetchService = fetch.Initialize(mux, registry, gatewayClient, auditService, processor)
	logger.Info("Fetch module initialized")

	// The record access API is served by gin; mount it under the base path.
	ginRouter := router.SetupRouter(recordService)
	mux.Handle(constants.APIBasePath+"/records", http.StripPrefix(constants.APIBasePath, ginRouter))
	mux.Handle(constants.APIBasePath+"/records/", http.StripPrefix(constants.APIBasePath, ginRouter))

	registerHealthCheck(mux, db)
}

func registerHealthCheck(mux *http.ServeMux, db *database.DB) {
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})
}

// unregisterServices performs cleanup of all services during shutdown.
func unregisterServices() {
}
