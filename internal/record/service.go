package record

import (
	"context"

	"github.com/medilink/health-exchange-api/internal/audit"
	auditmodel "github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/record/model"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// RecordService defines the exported service interface for record access.
type RecordService interface {
	ListRecords(ctx context.Context, patientID, recordType string, from, to int64, limit, offset int) (*model.RecordListResponse, *serviceerror.ServiceError)
	GetRecord(ctx context.Context, recordID, actorID, actorKind, origin string) (*model.HealthRecord, *serviceerror.ServiceError)
	ArchiveRecord(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError
	RestoreRecord(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError
	DeleteRecord(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError
	GetAccessLog(ctx context.Context, recordID string) ([]model.AccessLog, *serviceerror.ServiceError)
}

// recordService implements the RecordService interface
type recordService struct {
	stores *stores.StoreRegistry
	audit  audit.AuditService
}

func newRecordService(registry *stores.StoreRegistry, auditService audit.AuditService) RecordService {
	return &recordService{
		stores: registry,
		audit:  auditService,
	}
}

// ListRecords returns paginated records for a patient with optional type and
// date filters. Deleted records are never listed.
func (recordService *recordService) ListRecords(ctx context.Context, patientID, recordType string, from, to int64, limit, offset int) (*model.RecordListResponse, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("patientId", patientID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if recordType != "" && !model.IsValidRecordType(recordType) {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"Unknown record type: "+recordType)
	}
	if err := utils.ValidatePagination(limit, offset); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if to == 0 {
		to = utils.GetCurrentTimeMillis()
	}
	if from > to {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError,
			"from must not be after to")
	}

	recordStore := recordService.stores.Record.(RecordStore)

	records, total, err := recordStore.List(ctx, patientID, recordType, from, to, limit, offset)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to list records")
	}

	summaries := make([]model.RecordSummary, 0, len(records))
	for _, record := range records {
		summaries = append(summaries, record.ToSummary())
	}

	return &model.RecordListResponse{
		Records: summaries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
	}, nil
}

// GetRecord returns a record by ID, recomputing the stored checksum first.
// A mismatch surfaces as an integrity error and leaves the record untouched.
// Successful reads are written to the access log.
func (recordService *recordService) GetRecord(ctx context.Context, recordID, actorID, actorKind, origin string) (*model.HealthRecord, *serviceerror.ServiceError) {
	record, serviceErr := recordService.loadRecord(ctx, recordID)
	if serviceErr != nil {
		return nil, serviceErr
	}

	if utils.ComputeChecksum([]byte(record.Payload)) != record.Checksum {
		return nil, serviceerror.CustomServiceError(serviceerror.RecordIntegrityFailedError,
			"Checksum mismatch for record "+recordID)
	}

	recordService.writeAccessLog(ctx, record.RecordID, actorID, actorKind, model.AccessTypeView, origin)

	return record, nil
}

// ArchiveRecord transitions an ACTIVE record to ARCHIVED.
func (recordService *recordService) ArchiveRecord(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError {
	return recordService.transition(ctx, recordID, actorID, actorKind,
		[]string{model.StatusActive}, model.StatusArchived, auditmodel.ActionRecordArchived)
}

// RestoreRecord transitions an ARCHIVED record back to ACTIVE.
func (recordService *recordService) RestoreRecord(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError {
	return recordService.transition(ctx, recordID, actorID, actorKind,
		[]string{model.StatusArchived}, model.StatusActive, auditmodel.ActionRecordRestored)
}

// DeleteRecord transitions a record to DELETED. DELETED is terminal.
func (recordService *recordService) DeleteRecord(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError {
	return recordService.transition(ctx, recordID, actorID, actorKind,
		[]string{model.StatusActive, model.StatusArchived}, model.StatusDeleted, auditmodel.ActionRecordDeleted)
}

// GetAccessLog returns the compliance trail for a record.
func (recordService *recordService) GetAccessLog(ctx context.Context, recordID string) ([]model.AccessLog, *serviceerror.ServiceError) {
	if _, serviceErr := recordService.loadRecord(ctx, recordID); serviceErr != nil {
		return nil, serviceErr
	}

	recordStore := recordService.stores.Record.(RecordStore)

	logs, err := recordStore.GetAccessLogsByRecordID(ctx, recordID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to query access log")
	}
	return logs, nil
}

func (recordService *recordService) loadRecord(ctx context.Context, recordID string) (*model.HealthRecord, *serviceerror.ServiceError) {
	if err := utils.ValidateUUID(recordID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	recordStore := recordService.stores.Record.(RecordStore)

	record, err := recordStore.GetByID(ctx, recordID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load record")
	}
	if record == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.RecordNotFoundError,
			"No record found for ID "+recordID)
	}
	return record, nil
}

func (recordService *recordService) transition(ctx context.Context, recordID, actorID, actorKind string, allowedFrom []string, target, auditAction string) *serviceerror.ServiceError {
	record, serviceErr := recordService.loadRecord(ctx, recordID)
	if serviceErr != nil {
		return serviceErr
	}

	allowed := false
	for _, status := range allowedFrom {
		if record.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return serviceerror.CustomServiceError(serviceerror.ConflictError,
			"Record status "+record.Status+" does not permit this transition")
	}

	recordStore := recordService.stores.Record.(RecordStore)

	if err := recordStore.UpdateStatus(ctx, recordID, target, utils.GetCurrentTimeMillis()); err != nil {
		return serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to update record status")
	}

	recordService.audit.Append(ctx, auditmodel.AuditEntry{
		RecordID:  &record.RecordID,
		Action:    auditAction,
		ActorID:   actorID,
		ActorKind: actorKind,
	})

	return nil
}

func (recordService *recordService) writeAccessLog(ctx context.Context, recordID, actorID, actorKind, accessType, origin string) {
	recordStore := recordService.stores.Record.(RecordStore)

	logEntry := &model.AccessLog{
		AccessID:   utils.GenerateUUID(),
		RecordID:   recordID,
		ActorID:    actorID,
		ActorKind:  actorKind,
		AccessType: accessType,
		AccessTime: utils.GetCurrentTimeMillis(),
	}
	if origin != "" {
		logEntry.Origin = &origin
	}

	// Best effort; a failed access-log write must not fail the read.
	recordStore.CreateAccessLog(ctx, logEntry)
}
