package consent

import (
	"net/http"

	"github.com/medilink/health-exchange-api/internal/audit"
	"github.com/medilink/health-exchange-api/internal/gateway"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/middleware"
	"github.com/medilink/health-exchange-api/internal/system/stores"
)

// Initialize sets up the consent module and registers routes
func Initialize(mux *http.ServeMux, registry *stores.StoreRegistry, gatewayClient gateway.ClientInterface, auditService audit.AuditService) ConsentService {
	service := newConsentService(registry, gatewayClient, auditService)
	handler := newConsentHandler(service)

	registerRoutes(mux, handler)

	return service
}

// registerRoutes registers all consent routes
func registerRoutes(mux *http.ServeMux, handler *consentHandler) {
	corsOpts := middleware.CORSOptions{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   "GET, POST, OPTIONS",
		AllowedHeaders:   "Content-Type, Authorization, X-Actor-ID, X-Actor-Kind, X-Correlation-ID",
		AllowCredentials: true,
	}

	// POST /api/v1/consents - Request consent
	mux.HandleFunc(middleware.WithCORS("POST "+constants.APIBasePath+"/consents", handler.requestConsent, corsOpts))

	// POST /api/v1/consents/callback - Exchange status callback
	mux.HandleFunc("POST "+constants.APIBasePath+"/consents/callback", handler.statusCallback)

	// GET /api/v1/consents/active - List active artifacts for a patient
	mux.HandleFunc(middleware.WithCORS("GET "+constants.APIBasePath+"/consents/active", handler.listActive, corsOpts))

	// GET /api/v1/consents/{consentRequestId} - Get consent by ID
	mux.HandleFunc(middleware.WithCORS("GET "+constants.APIBasePath+"/consents/{consentRequestId}", handler.getConsent, corsOpts))

	// GET /api/v1/consents/{consentRequestId}/audit - Consent audit trail
	mux.HandleFunc(middleware.WithCORS("GET "+constants.APIBasePath+"/consents/{consentRequestId}/audit", handler.getAuditTrail, corsOpts))

	// POST /api/v1/consents/artifacts/{artifactId}/revoke - Revoke artifact
	mux.HandleFunc(middleware.WithCORS("POST "+constants.APIBasePath+"/consents/artifacts/{artifactId}/revoke", handler.revokeArtifact, corsOpts))
}
