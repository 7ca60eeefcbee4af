package record

import (
	"github.com/medilink/health-exchange-api/internal/audit"
	"github.com/medilink/health-exchange-api/internal/system/stores"
)

// Initialize sets up the record module. The record access API itself is
// served by the gin router; this module exposes the service and the bundle
// processor consumed by the fetch orchestrator.
func Initialize(registry *stores.StoreRegistry, auditService audit.AuditService) (RecordService, BundleProcessor) {
	service := newRecordService(registry, auditService)
	processor := newBundleProcessor(registry)
	return service, processor
}

