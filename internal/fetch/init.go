package fetch

import (
	"net/http"

	"github.com/medilink/health-exchange-api/internal/audit"
	"github.com/medilink/health-exchange-api/internal/gateway"
	"github.com/medilink/health-exchange-api/internal/record"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/middleware"
	"github.com/medilink/health-exchange-api/internal/system/stores"
)

// Initialize sets up the fetch module and registers routes
func Initialize(mux *http.ServeMux, registry *stores.StoreRegistry, gatewayClient gateway.ClientInterface, auditService audit.AuditService, processor record.BundleProcessor) FetchService {
	service := newFetchService(registry, gatewayClient, auditService, processor)
	handler := newFetchHandler(service)

	registerRoutes(mux, handler)

	return service
}

// registerRoutes registers all fetch routes
func registerRoutes(mux *http.ServeMux, handler *fetchHandler) {
	corsOpts := middleware.CORSOptions{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   "GET, POST, OPTIONS",
		AllowedHeaders:   "Content-Type, Authorization, X-Actor-ID, X-Actor-Kind, X-Correlation-ID",
		AllowCredentials: true,
	}

	// POST /api/v1/health-records/fetch - Start an async fetch
	mux.HandleFunc(middleware.WithCORS("POST "+constants.APIBasePath+"/health-records/fetch", handler.fetchHealthRecords, corsOpts))

	// GET /api/v1/health-records/fetch/{fetchRequestId} - Fetch progress
	mux.HandleFunc(middleware.WithCORS("GET "+constants.APIBasePath+"/health-records/fetch/{fetchRequestId}", handler.getFetchStatus, corsOpts))

	// POST /api/v1/health-records/fetch/{fetchRequestId}/cancel - Cancel a fetch
	mux.HandleFunc(middleware.WithCORS("POST "+constants.APIBasePath+"/health-records/fetch/{fetchRequestId}/cancel", handler.cancelFetch, corsOpts))

	// POST /api/v1/health-records/notify - Exchange bundle delivery
	mux.HandleFunc("POST "+constants.APIBasePath+"/health-records/notify", handler.notify)
}
