package record

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditmodel "github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/record/model"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/error/codes"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

type recordedAudit struct {
	entries []auditmodel.AuditEntry
}

func (a *recordedAudit) Append(ctx context.Context, entry auditmodel.AuditEntry) {
	a.entries = append(a.entries, entry)
}
func (a *recordedAudit) AppendWithTx(tx dbmodel.TxInterface, entry auditmodel.AuditEntry) error {
	a.entries = append(a.entries, entry)
	return nil
}
func (a *recordedAudit) GetByConsentRequestID(ctx context.Context, consentRequestID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.entries, nil
}
func (a *recordedAudit) GetByArtifactID(ctx context.Context, artifactID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.entries, nil
}
func (a *recordedAudit) GetByRecordID(ctx context.Context, recordID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.entries, nil
}
func (a *recordedAudit) GetByActorID(ctx context.Context, actorID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.entries, nil
}

func newTestRecordService(store *fakeRecordStore, auditSvc *recordedAudit) RecordService {
	registry := stores.NewStoreRegistry(nil)
	registry.Record = store
	return newRecordService(registry, auditSvc)
}

func storedRecord(status string) *model.HealthRecord {
	payload := `{"resourceType":"Observation","id":"rec-1"}`
	return &model.HealthRecord{
		RecordID:   utils.GenerateUUID(),
		PatientID:  "patient-001",
		RecordType: model.TypeObservation,
		Payload:    payload,
		Checksum:   utils.ComputeChecksum([]byte(payload)),
		Status:     status,
	}
}

// TestGetRecord_VerifiesChecksumAndLogsAccess tests the read path
func TestGetRecord_VerifiesChecksumAndLogsAccess(t *testing.T) {
	record := storedRecord(model.StatusActive)
	store := &fakeRecordStore{record: record}
	service := newTestRecordService(store, &recordedAudit{})

	got, serviceErr := service.GetRecord(context.Background(), record.RecordID, "doctor-001", auditmodel.ActorKindDoctor, "203.0.113.9")

	require.Nil(t, serviceErr)
	assert.Equal(t, record.RecordID, got.RecordID)
	require.Len(t, store.accessLogs, 1)
	assert.Equal(t, model.AccessTypeView, store.accessLogs[0].AccessType)
	assert.Equal(t, "doctor-001", store.accessLogs[0].ActorID)
}

// TestGetRecord_ChecksumMismatch tests that a tampered payload is refused
func TestGetRecord_ChecksumMismatch(t *testing.T) {
	record := storedRecord(model.StatusActive)
	record.Checksum = "0000000000000000000000000000000000000000000000000000000000000000"
	store := &fakeRecordStore{record: record}
	service := newTestRecordService(store, &recordedAudit{})

	got, serviceErr := service.GetRecord(context.Background(), record.RecordID, "doctor-001", auditmodel.ActorKindDoctor, "")

	require.NotNil(t, serviceErr)
	assert.Nil(t, got)
	assert.Equal(t, codes.RecordIntegrityFailed, serviceErr.Code)
	assert.Empty(t, store.accessLogs)
}

// TestRecordTransitions tests the allowed status transitions
func TestRecordTransitions(t *testing.T) {
	tests := []struct {
		name       string
		from       string
		call       func(RecordService, string) *serviceerror.ServiceError
		wantStatus string
		wantAction string
		wantErr    string
	}{
		{
			name: "archive active",
			from: model.StatusActive,
			call: func(s RecordService, id string) *serviceerror.ServiceError {
				return s.ArchiveRecord(context.Background(), id, "doctor-001", auditmodel.ActorKindDoctor)
			},
			wantStatus: model.StatusArchived,
			wantAction: auditmodel.ActionRecordArchived,
		},
		{
			name: "restore archived",
			from: model.StatusArchived,
			call: func(s RecordService, id string) *serviceerror.ServiceError {
				return s.RestoreRecord(context.Background(), id, "doctor-001", auditmodel.ActorKindDoctor)
			},
			wantStatus: model.StatusActive,
			wantAction: auditmodel.ActionRecordRestored,
		},
		{
			name: "delete archived",
			from: model.StatusArchived,
			call: func(s RecordService, id string) *serviceerror.ServiceError {
				return s.DeleteRecord(context.Background(), id, "patient-001", auditmodel.ActorKindPatient)
			},
			wantStatus: model.StatusDeleted,
			wantAction: auditmodel.ActionRecordDeleted,
		},
		{
			name: "archive deleted is a conflict",
			from: model.StatusDeleted,
			call: func(s RecordService, id string) *serviceerror.ServiceError {
				return s.ArchiveRecord(context.Background(), id, "doctor-001", auditmodel.ActorKindDoctor)
			},
			wantErr: codes.ConflictError,
		},
		{
			name: "restore active is a conflict",
			from: model.StatusActive,
			call: func(s RecordService, id string) *serviceerror.ServiceError {
				return s.RestoreRecord(context.Background(), id, "doctor-001", auditmodel.ActorKindDoctor)
			},
			wantErr: codes.ConflictError,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			record := storedRecord(tc.from)
			store := &fakeRecordStore{record: record}
			auditSvc := &recordedAudit{}
			service := newTestRecordService(store, auditSvc)

			serviceErr := tc.call(service, record.RecordID)

			if tc.wantErr != "" {
				require.NotNil(t, serviceErr)
				assert.Equal(t, tc.wantErr, serviceErr.Code)
				assert.Empty(t, store.updatedStatus)
				return
			}
			require.Nil(t, serviceErr)
			assert.Equal(t, tc.wantStatus, store.updatedStatus)
			require.Len(t, auditSvc.entries, 1)
			assert.Equal(t, tc.wantAction, auditSvc.entries[0].Action)
		})
	}
}

// TestListRecords_Validation tests list parameter validation
func TestListRecords_Validation(t *testing.T) {
	service := newTestRecordService(&fakeRecordStore{}, &recordedAudit{})

	_, serviceErr := service.ListRecords(context.Background(), "", "", 0, 0, 30, 0)
	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ValidationError, serviceErr.Code)

	_, serviceErr = service.ListRecords(context.Background(), "patient-001", "Telepathy", 0, 0, 30, 0)
	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ValidationError, serviceErr.Code)

	_, serviceErr = service.ListRecords(context.Background(), "patient-001", "", 0, 0, 0, -1)
	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ValidationError, serviceErr.Code)
}

// TestListRecords_ReturnsSummaries tests that listing omits payloads
func TestListRecords_ReturnsSummaries(t *testing.T) {
	record := storedRecord(model.StatusActive)
	store := &fakeRecordStore{records: []model.HealthRecord{*record}, total: 1}
	service := newTestRecordService(store, &recordedAudit{})

	response, serviceErr := service.ListRecords(context.Background(), "patient-001", "", 0, 0, 30, 0)

	require.Nil(t, serviceErr)
	assert.Equal(t, 1, response.Total)
	require.Len(t, response.Records, 1)
	assert.Equal(t, record.RecordID, response.Records[0].RecordID)
}

// TestGetRecord_NotFound tests the missing record path
func TestGetRecord_NotFound(t *testing.T) {
	service := newTestRecordService(&fakeRecordStore{}, &recordedAudit{})

	_, serviceErr := service.GetRecord(context.Background(), utils.GenerateUUID(), "doctor-001", auditmodel.ActorKindDoctor, "")

	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.RecordNotFound, serviceErr.Code)
}
