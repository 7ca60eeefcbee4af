package audit

import (
	"net/http"

	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/middleware"
	"github.com/medilink/health-exchange-api/internal/system/stores"
)

// Initialize sets up the audit module and registers routes
func Initialize(mux *http.ServeMux, registry *stores.StoreRegistry) AuditService {
	service := newAuditService(registry)
	handler := newAuditHandler(service)

	registerRoutes(mux, handler)

	return service
}

// registerRoutes registers all audit routes
func registerRoutes(mux *http.ServeMux, handler *auditHandler) {
	corsOpts := middleware.CORSOptions{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   "GET, OPTIONS",
		AllowedHeaders:   "Content-Type, Authorization, X-Actor-ID, X-Actor-Kind, X-Correlation-ID",
		AllowCredentials: true,
	}

	// GET /api/v1/audit - Query audit trail
	mux.HandleFunc(middleware.WithCORS("GET "+constants.APIBasePath+"/audit", handler.queryAudit, corsOpts))
}
