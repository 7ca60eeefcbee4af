package audit

import (
	"context"

	"github.com/medilink/health-exchange-api/internal/audit/model"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/log"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// AuditService defines the exported service interface
type AuditService interface {
	Append(ctx context.Context, entry model.AuditEntry)
	AppendWithTx(tx dbmodel.TxInterface, entry model.AuditEntry) error
	GetByConsentRequestID(ctx context.Context, consentRequestID string) ([]model.AuditEntry, *serviceerror.ServiceError)
	GetByArtifactID(ctx context.Context, artifactID string) ([]model.AuditEntry, *serviceerror.ServiceError)
	GetByRecordID(ctx context.Context, recordID string) ([]model.AuditEntry, *serviceerror.ServiceError)
	GetByActorID(ctx context.Context, actorID string) ([]model.AuditEntry, *serviceerror.ServiceError)
}

// auditService implements the AuditService interface
type auditService struct {
	stores *stores.StoreRegistry
}

func newAuditService(registry *stores.StoreRegistry) AuditService {
	return &auditService{
		stores: registry,
	}
}

// Append writes an audit entry outside any transaction. The audit trail is
// best-effort on this path: a write failure is logged, never surfaced, so
// audit problems cannot fail the business operation they describe.
func (auditService *auditService) Append(ctx context.Context, entry model.AuditEntry) {
	store := auditService.stores.Audit.(AuditStore)

	fillEntryDefaults(&entry)

	if err := store.Create(ctx, &entry); err != nil {
		log.GetLogger().With(log.String(log.LoggerKeyComponentName, "AuditService")).
			Error("Failed to append audit entry",
				log.String("action", entry.Action),
				log.Error(err),
			)
	}
}

// AppendWithTx writes an audit entry inside a caller-owned transaction so
// the entry commits atomically with the state change it records.
func (auditService *auditService) AppendWithTx(tx dbmodel.TxInterface, entry model.AuditEntry) error {
	store := auditService.stores.Audit.(AuditStore)

	fillEntryDefaults(&entry)
	return store.CreateWithTx(tx, &entry)
}

// GetByConsentRequestID returns the chronological trail for a consent request.
func (auditService *auditService) GetByConsentRequestID(ctx context.Context, consentRequestID string) ([]model.AuditEntry, *serviceerror.ServiceError) {
	store := auditService.stores.Audit.(AuditStore)

	entries, err := store.GetByConsentRequestID(ctx, consentRequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to query audit log")
	}
	return entries, nil
}

// GetByArtifactID returns the chronological trail for a consent artifact.
func (auditService *auditService) GetByArtifactID(ctx context.Context, artifactID string) ([]model.AuditEntry, *serviceerror.ServiceError) {
	store := auditService.stores.Audit.(AuditStore)

	entries, err := store.GetByArtifactID(ctx, artifactID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to query audit log")
	}
	return entries, nil
}

// GetByRecordID returns the chronological trail for a health record.
func (auditService *auditService) GetByRecordID(ctx context.Context, recordID string) ([]model.AuditEntry, *serviceerror.ServiceError) {
	store := auditService.stores.Audit.(AuditStore)

	entries, err := store.GetByRecordID(ctx, recordID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to query audit log")
	}
	return entries, nil
}

// GetByActorID returns the chronological trail for an actor.
func (auditService *auditService) GetByActorID(ctx context.Context, actorID string) ([]model.AuditEntry, *serviceerror.ServiceError) {
	store := auditService.stores.Audit.(AuditStore)

	entries, err := store.GetByActorID(ctx, actorID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to query audit log")
	}
	return entries, nil
}

func fillEntryDefaults(entry *model.AuditEntry) {
	if entry.AuditID == "" {
		entry.AuditID = utils.GenerateUUID()
	}
	if entry.ActionTime == 0 {
		entry.ActionTime = utils.GetCurrentTimeMillis()
	}
	if entry.ActorKind == "" {
		entry.ActorKind = model.ActorKindSystem
	}
}
