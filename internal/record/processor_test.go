package record

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/health-exchange-api/internal/record/model"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

type fakeRecordStore struct {
	createErr      func(record *model.HealthRecord) error
	created        []*model.HealthRecord
	processingLogs []*model.ProcessingLog
	accessLogs     []*model.AccessLog

	record    *model.HealthRecord
	records   []model.HealthRecord
	total     int
	recordIDs []string

	updatedStatus string
}

func (s *fakeRecordStore) Create(ctx context.Context, record *model.HealthRecord) error {
	if s.createErr != nil {
		if err := s.createErr(record); err != nil {
			return err
		}
	}
	s.created = append(s.created, record)
	return nil
}
func (s *fakeRecordStore) GetByID(ctx context.Context, recordID string) (*model.HealthRecord, error) {
	return s.record, nil
}
func (s *fakeRecordStore) List(ctx context.Context, patientID, recordType string, from, to int64, limit, offset int) ([]model.HealthRecord, int, error) {
	return s.records, s.total, nil
}
func (s *fakeRecordStore) UpdateStatus(ctx context.Context, recordID, status string, updatedTime int64) error {
	s.updatedStatus = status
	return nil
}
func (s *fakeRecordStore) GetIDsByFetchRequestID(ctx context.Context, fetchRequestID string) ([]string, error) {
	return s.recordIDs, nil
}
func (s *fakeRecordStore) CreateProcessingLog(ctx context.Context, logEntry *model.ProcessingLog) error {
	s.processingLogs = append(s.processingLogs, logEntry)
	return nil
}
func (s *fakeRecordStore) GetProcessingLogsByFetchRequestID(ctx context.Context, fetchRequestID string) ([]model.ProcessingLog, error) {
	return nil, nil
}
func (s *fakeRecordStore) CreateAccessLog(ctx context.Context, logEntry *model.AccessLog) error {
	s.accessLogs = append(s.accessLogs, logEntry)
	return nil
}
func (s *fakeRecordStore) GetAccessLogsByRecordID(ctx context.Context, recordID string) ([]model.AccessLog, error) {
	return nil, nil
}

func newTestProcessor(store *fakeRecordStore) BundleProcessor {
	registry := stores.NewStoreRegistry(nil)
	registry.Record = store
	return newBundleProcessor(registry)
}

func resourceEntry(t *testing.T, resource map[string]interface{}) model.BundleEntry {
	t.Helper()
	raw, err := json.Marshal(resource)
	require.NoError(t, err)
	return model.BundleEntry{Resource: raw}
}

// TestProcessBundle_MixedEntries tests that good, malformed, and duplicate
// entries are counted independently and the counts add up
func TestProcessBundle_MixedEntries(t *testing.T) {
	store := &fakeRecordStore{
		createErr: func(record *model.HealthRecord) error {
			if record.ExternalRecordID == "dup-1" {
				return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
			}
			return nil
		},
	}
	processor := newTestProcessor(store)

	bundle := &model.Bundle{
		ResourceType: "Bundle",
		Entries: []model.BundleEntry{
			resourceEntry(t, map[string]interface{}{
				"resourceType":      "DiagnosticReport",
				"id":                "rec-1",
				"effectiveDateTime": "2026-03-01T10:00:00Z",
			}),
			{Resource: json.RawMessage(`{not json`)},
			resourceEntry(t, map[string]interface{}{
				"resourceType": "Observation",
			}),
			resourceEntry(t, map[string]interface{}{
				"resourceType": "MedicationRequest",
				"id":           "dup-1",
			}),
		},
	}

	result, serviceErr := processor.ProcessBundle(context.Background(), bundle, utils.GenerateUUID(), "patient-001")

	require.Nil(t, serviceErr)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 2, result.Failed)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, result.Total, result.Processed+result.Failed+result.Skipped)
	assert.Len(t, result.RecordIDs, 1)
	assert.Len(t, result.Errors, 2)

	require.Len(t, store.created, 1)
	assert.Equal(t, model.TypeDiagnosticReport, store.created[0].RecordType)
	assert.Equal(t, model.StatusActive, store.created[0].Status)
	assert.Equal(t, model.SourceExchange, store.created[0].Source)
	assert.Equal(t, utils.ComputeChecksum([]byte(store.created[0].Payload)), store.created[0].Checksum)
}

// TestProcessBundle_RejectsNonBundle tests the outer-shape validation
func TestProcessBundle_RejectsNonBundle(t *testing.T) {
	processor := newTestProcessor(&fakeRecordStore{})

	_, serviceErr := processor.ProcessBundle(context.Background(),
		&model.Bundle{ResourceType: "Patient"}, utils.GenerateUUID(), "patient-001")
	require.NotNil(t, serviceErr)

	_, serviceErr = processor.ProcessBundle(context.Background(),
		&model.Bundle{ResourceType: "Bundle"}, utils.GenerateUUID(), "patient-001")
	require.NotNil(t, serviceErr)
}

// TestProcessBundle_WritesProcessingLogs tests that every entry leaves a
// processing log row
func TestProcessBundle_WritesProcessingLogs(t *testing.T) {
	store := &fakeRecordStore{}
	processor := newTestProcessor(store)

	bundle := &model.Bundle{
		ResourceType: "bundle",
		Entries: []model.BundleEntry{
			resourceEntry(t, map[string]interface{}{"resourceType": "Condition", "id": "rec-1"}),
			{},
		},
	}

	result, serviceErr := processor.ProcessBundle(context.Background(), bundle, utils.GenerateUUID(), "patient-001")

	require.Nil(t, serviceErr)
	assert.Equal(t, 1, result.Processed)
	assert.Equal(t, 1, result.Failed)
	require.Len(t, store.processingLogs, 2)
	outcomes := []string{store.processingLogs[0].Outcome, store.processingLogs[1].Outcome}
	assert.Contains(t, outcomes, model.OutcomeSuccess)
	assert.Contains(t, outcomes, model.OutcomeFailed)
}

// TestExtractRecordDate tests the timestamp preference chain
func TestExtractRecordDate(t *testing.T) {
	millis, ok := parseClinicalDate("2026-03-01T10:00:00Z")
	require.True(t, ok)

	resource := &clinicalResource{
		EffectiveDateTime: "2026-03-01T10:00:00Z",
		Issued:            "2026-04-01T10:00:00Z",
	}
	assert.Equal(t, millis, extractRecordDate(resource))

	// Falls through to the next candidate when the preferred one is absent.
	issued, ok := parseClinicalDate("2026-04-01T10:00:00Z")
	require.True(t, ok)
	resource.EffectiveDateTime = ""
	assert.Equal(t, issued, extractRecordDate(resource))

	// No parseable timestamp falls back to ingestion time.
	before := utils.GetCurrentTimeMillis()
	got := extractRecordDate(&clinicalResource{EffectiveDateTime: "yesterday"})
	assert.GreaterOrEqual(t, got, before)
}

// TestParseClinicalDate tests the accepted date layouts
func TestParseClinicalDate(t *testing.T) {
	for _, value := range []string{
		"2026-03-01T10:00:00.123Z",
		"2026-03-01T10:00:00Z",
		"2026-03-01T10:00:00",
		"2026-03-01",
	} {
		_, ok := parseClinicalDate(value)
		assert.True(t, ok, value)
	}

	_, ok := parseClinicalDate("01/03/2026")
	assert.False(t, ok)
}

// TestExtractProvider tests performer extraction including nested actors
func TestExtractProvider(t *testing.T) {
	id, name := extractProvider(&clinicalResource{})
	assert.Nil(t, id)
	assert.Nil(t, name)

	id, name = extractProvider(&clinicalResource{
		Performer: []resourceRef{{Reference: "Practitioner/42", Display: "Dr. Perera"}},
	})
	require.NotNil(t, id)
	require.NotNil(t, name)
	assert.Equal(t, "Practitioner/42", *id)
	assert.Equal(t, "Dr. Perera", *name)

	id, name = extractProvider(&clinicalResource{
		Performer: []resourceRef{{Actor: &resourceRef{Reference: "Organization/7", Display: "General Hospital"}}},
	})
	require.NotNil(t, id)
	assert.Equal(t, "Organization/7", *id)
	assert.Equal(t, "General Hospital", *name)
}
