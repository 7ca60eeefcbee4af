package record

import (
	"context"

	"github.com/medilink/health-exchange-api/internal/record/model"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/database/provider"
)

// DBQuery objects for health record operations
var (
	QueryCreateRecord = dbmodel.DBQuery{
		ID:    "CREATE_HEALTH_RECORD",
		Query: "INSERT INTO HEALTH_RECORD (RECORD_ID, FETCH_REQUEST_ID, PATIENT_ID, EXTERNAL_RECORD_ID, RECORD_TYPE, RECORD_DATE, PROVIDER_ID, PROVIDER_NAME, PROVIDER_KIND, PAYLOAD, SOURCE, STATUS, CHECKSUM, ENCRYPTION_KEY_REF, CREATED_TIME, UPDATED_TIME) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetRecordByID = dbmodel.DBQuery{
		ID:    "GET_HEALTH_RECORD_BY_ID",
		Query: "SELECT RECORD_ID, FETCH_REQUEST_ID, PATIENT_ID, EXTERNAL_RECORD_ID, RECORD_TYPE, RECORD_DATE, PROVIDER_ID, PROVIDER_NAME, PROVIDER_KIND, PAYLOAD, SOURCE, STATUS, CHECKSUM, ENCRYPTION_KEY_REF, CREATED_TIME, UPDATED_TIME FROM HEALTH_RECORD WHERE RECORD_ID = ?",
	}

	QueryListRecordsByPatient = dbmodel.DBQuery{
		ID:    "LIST_HEALTH_RECORDS_BY_PATIENT",
		Query: "SELECT RECORD_ID, FETCH_REQUEST_ID, PATIENT_ID, EXTERNAL_RECORD_ID, RECORD_TYPE, RECORD_DATE, PROVIDER_ID, PROVIDER_NAME, PROVIDER_KIND, PAYLOAD, SOURCE, STATUS, CHECKSUM, ENCRYPTION_KEY_REF, CREATED_TIME, UPDATED_TIME FROM HEALTH_RECORD WHERE PATIENT_ID = ? AND RECORD_DATE >= ? AND RECORD_DATE <= ? AND STATUS <> 'DELETED' ORDER BY RECORD_DATE DESC LIMIT ? OFFSET ?",
	}

	QueryListRecordsByPatientAndType = dbmodel.DBQuery{
		ID:    "LIST_HEALTH_RECORDS_BY_PATIENT_AND_TYPE",
		Query: "SELECT RECORD_ID, FETCH_REQUEST_ID, PATIENT_ID, EXTERNAL_RECORD_ID, RECORD_TYPE, RECORD_DATE, PROVIDER_ID, PROVIDER_NAME, PROVIDER_KIND, PAYLOAD, SOURCE, STATUS, CHECKSUM, ENCRYPTION_KEY_REF, CREATED_TIME, UPDATED_TIME FROM HEALTH_RECORD WHERE PATIENT_ID = ? AND RECORD_TYPE = ? AND RECORD_DATE >= ? AND RECORD_DATE <= ? AND STATUS <> 'DELETED' ORDER BY RECORD_DATE DESC LIMIT ? OFFSET ?",
	}

	QueryCountRecordsByPatient = dbmodel.DBQuery{
		ID:    "COUNT_HEALTH_RECORDS_BY_PATIENT",
		Query: "SELECT COUNT(*) as count FROM HEALTH_RECORD WHERE PATIENT_ID = ? AND RECORD_DATE >= ? AND RECORD_DATE <= ? AND STATUS <> 'DELETED'",
	}

	QueryCountRecordsByPatientAndType = dbmodel.DBQuery{
		ID:    "COUNT_HEALTH_RECORDS_BY_PATIENT_AND_TYPE",
		Query: "SELECT COUNT(*) as count FROM HEALTH_RECORD WHERE PATIENT_ID = ? AND RECORD_TYPE = ? AND RECORD_DATE >= ? AND RECORD_DATE <= ? AND STATUS <> 'DELETED'",
	}

	QueryUpdateRecordStatus = dbmodel.DBQuery{
		ID:    "UPDATE_HEALTH_RECORD_STATUS",
		Query: "UPDATE HEALTH_RECORD SET STATUS = ?, UPDATED_TIME = ? WHERE RECORD_ID = ?",
	}

	QueryGetRecordIDsByFetchRequestID = dbmodel.DBQuery{
		ID:    "GET_HEALTH_RECORD_IDS_BY_FETCH_REQUEST_ID",
		Query: "SELECT RECORD_ID FROM HEALTH_RECORD WHERE FETCH_REQUEST_ID = ? ORDER BY CREATED_TIME ASC",
	}

	QueryCreateProcessingLog = dbmodel.DBQuery{
		ID:    "CREATE_PROCESSING_LOG",
		Query: "INSERT INTO HEALTH_RECORD_PROCESSING_LOG (LOG_ID, FETCH_REQUEST_ID, EXTERNAL_RECORD_ID, STAGE, OUTCOME, LATENCY_MS, DETAIL, CREATED_TIME) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetProcessingLogsByFetchRequestID = dbmodel.DBQuery{
		ID:    "GET_PROCESSING_LOGS_BY_FETCH_REQUEST_ID",
		Query: "SELECT LOG_ID, FETCH_REQUEST_ID, EXTERNAL_RECORD_ID, STAGE, OUTCOME, LATENCY_MS, DETAIL, CREATED_TIME FROM HEALTH_RECORD_PROCESSING_LOG WHERE FETCH_REQUEST_ID = ? ORDER BY CREATED_TIME ASC",
	}

	QueryCreateAccessLog = dbmodel.DBQuery{
		ID:    "CREATE_ACCESS_LOG",
		Query: "INSERT INTO HEALTH_RECORD_ACCESS_LOG (ACCESS_ID, RECORD_ID, ACTOR_ID, ACTOR_KIND, ACCESS_TYPE, ORIGIN, ACCESS_TIME) VALUES (?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetAccessLogsByRecordID = dbmodel.DBQuery{
		ID:    "GET_ACCESS_LOGS_BY_RECORD_ID",
		Query: "SELECT ACCESS_ID, RECORD_ID, ACTOR_ID, ACTOR_KIND, ACCESS_TYPE, ORIGIN, ACCESS_TIME FROM HEALTH_RECORD_ACCESS_LOG WHERE RECORD_ID = ? ORDER BY ACCESS_TIME ASC",
	}
)

// RecordStore defines the interface for health record data operations
type RecordStore interface {
	Create(ctx context.Context, record *model.HealthRecord) error
	GetByID(ctx context.Context, recordID string) (*model.HealthRecord, error)
	List(ctx context.Context, patientID, recordType string, from, to int64, limit, offset int) ([]model.HealthRecord, int, error)
	UpdateStatus(ctx context.Context, recordID, status string, updatedTime int64) error
	GetIDsByFetchRequestID(ctx context.Context, fetchRequestID string) ([]string, error)

	CreateProcessingLog(ctx context.Context, logEntry *model.ProcessingLog) error
	GetProcessingLogsByFetchRequestID(ctx context.Context, fetchRequestID string) ([]model.ProcessingLog, error)

	CreateAccessLog(ctx context.Context, logEntry *model.AccessLog) error
	GetAccessLogsByRecordID(ctx context.Context, recordID string) ([]model.AccessLog, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewStore creates and returns a new record store (exported for registry)
func NewStore(dbClient provider.DBClientInterface) interface{} {
	return newRecordStore(dbClient)
}

func newRecordStore(dbClient provider.DBClientInterface) RecordStore {
	return &store{
		dbClient: dbClient,
	}
}

// Create inserts a health record. A duplicate-key failure on the
// (PATIENT_ID, EXTERNAL_RECORD_ID) unique constraint is returned to the
// caller unchanged; the processor treats it as the skip branch.
func (s *store) Create(ctx context.Context, record *model.HealthRecord) error {
	_, err := s.dbClient.Execute(QueryCreateRecord,
		record.RecordID, record.FetchRequestID, record.PatientID, record.ExternalRecordID,
		string(record.RecordType), record.RecordDate, record.ProviderID, record.ProviderName,
		record.ProviderKind, record.Payload, record.Source, record.Status,
		record.Checksum, record.EncryptionKeyRef, record.CreatedTime, record.UpdatedTime)
	return err
}

// GetByID retrieves a health record by ID.
func (s *store) GetByID(ctx context.Context, recordID string) (*model.HealthRecord, error) {
	rows, err := s.dbClient.Query(QueryGetRecordByID, recordID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToHealthRecord(rows[0]), nil
}

// List retrieves paginated records for a patient with optional type filter.
func (s *store) List(ctx context.Context, patientID, recordType string, from, to int64, limit, offset int) ([]model.HealthRecord, int, error) {
	var countRows, rows []map[string]interface{}
	var err error

	if recordType != "" {
		countRows, err = s.dbClient.Query(QueryCountRecordsByPatientAndType, patientID, recordType, from, to)
	} else {
		countRows, err = s.dbClient.Query(QueryCountRecordsByPatient, patientID, from, to)
	}
	if err != nil {
		return nil, 0, err
	}

	totalCount := 0
	if len(countRows) > 0 {
		if count, ok := countRows[0]["count"].(int64); ok {
			totalCount = int(count)
		}
	}

	if recordType != "" {
		rows, err = s.dbClient.Query(QueryListRecordsByPatientAndType, patientID, recordType, from, to, limit, offset)
	} else {
		rows, err = s.dbClient.Query(QueryListRecordsByPatient, patientID, from, to, limit, offset)
	}
	if err != nil {
		return nil, 0, err
	}

	records := make([]model.HealthRecord, 0, len(rows))
	for _, row := range rows {
		record := mapToHealthRecord(row)
		if record != nil {
			records = append(records, *record)
		}
	}

	return records, totalCount, nil
}

// UpdateStatus updates a record's status.
func (s *store) UpdateStatus(ctx context.Context, recordID, status string, updatedTime int64) error {
	_, err := s.dbClient.Execute(QueryUpdateRecordStatus, status, updatedTime, recordID)
	return err
}

// GetIDsByFetchRequestID returns the IDs of records produced by a fetch request.
func (s *store) GetIDsByFetchRequestID(ctx context.Context, fetchRequestID string) ([]string, error) {
	rows, err := s.dbClient.Query(QueryGetRecordIDsByFetchRequestID, fetchRequestID)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id, ok := row["RECORD_ID"].(string); ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// CreateProcessingLog appends a processing log row.
func (s *store) CreateProcessingLog(ctx context.Context, logEntry *model.ProcessingLog) error {
	_, err := s.dbClient.Execute(QueryCreateProcessingLog,
		logEntry.LogID, logEntry.FetchRequestID, logEntry.ExternalRecordID,
		logEntry.Stage, logEntry.Outcome, logEntry.LatencyMs, logEntry.Detail,
		logEntry.CreatedTime)
	return err
}

// GetProcessingLogsByFetchRequestID retrieves processing logs in chronological order.
func (s *store) GetProcessingLogsByFetchRequestID(ctx context.Context, fetchRequestID string) ([]model.ProcessingLog, error) {
	rows, err := s.dbClient.Query(QueryGetProcessingLogsByFetchRequestID, fetchRequestID)
	if err != nil {
		return nil, err
	}

	logs := make([]model.ProcessingLog, 0, len(rows))
	for _, row := range rows {
		logEntry := mapToProcessingLog(row)
		if logEntry != nil {
			logs = append(logs, *logEntry)
		}
	}
	return logs, nil
}

// CreateAccessLog appends an access log row.
func (s *store) CreateAccessLog(ctx context.Context, logEntry *model.AccessLog) error {
	_, err := s.dbClient.Execute(QueryCreateAccessLog,
		logEntry.AccessID, logEntry.RecordID, logEntry.ActorID, logEntry.ActorKind,
		logEntry.AccessType, logEntry.Origin, logEntry.AccessTime)
	return err
}

// GetAccessLogsByRecordID retrieves access logs in chronological order.
func (s *store) GetAccessLogsByRecordID(ctx context.Context, recordID string) ([]model.AccessLog, error) {
	rows, err := s.dbClient.Query(QueryGetAccessLogsByRecordID, recordID)
	if err != nil {
		return nil, err
	}

	logs := make([]model.AccessLog, 0, len(rows))
	for _, row := range rows {
		logEntry := mapToAccessLog(row)
		if logEntry != nil {
			logs = append(logs, *logEntry)
		}
	}
	return logs, nil
}

// Mapper functions

func mapToHealthRecord(row map[string]interface{}) *model.HealthRecord {
	if row == nil {
		return nil
	}

	record := &model.HealthRecord{}

	if id, ok := row["RECORD_ID"].(string); ok {
		record.RecordID = id
	}
	if fetchRequestID, ok := row["FETCH_REQUEST_ID"].(string); ok {
		record.FetchRequestID = &fetchRequestID
	}
	if patientID, ok := row["PATIENT_ID"].(string); ok {
		record.PatientID = patientID
	}
	if externalID, ok := row["EXTERNAL_RECORD_ID"].(string); ok {
		record.ExternalRecordID = externalID
	}
	if recordType, ok := row["RECORD_TYPE"].(string); ok {
		record.RecordType = model.RecordType(recordType)
	}
	if recordDate, ok := row["RECORD_DATE"].(int64); ok {
		record.RecordDate = recordDate
	}
	if providerID, ok := row["PROVIDER_ID"].(string); ok {
		record.ProviderID = &providerID
	}
	if providerName, ok := row["PROVIDER_NAME"].(string); ok {
		record.ProviderName = &providerName
	}
	if providerKind, ok := row["PROVIDER_KIND"].(string); ok {
		record.ProviderKind = &providerKind
	}
	if payload, ok := row["PAYLOAD"].(string); ok {
		record.Payload = payload
	}
	if source, ok := row["SOURCE"].(string); ok {
		record.Source = source
	}
	if status, ok := row["STATUS"].(string); ok {
		record.Status = status
	}
	if checksum, ok := row["CHECKSUM"].(string); ok {
		record.Checksum = checksum
	}
	if keyRef, ok := row["ENCRYPTION_KEY_REF"].(string); ok {
		record.EncryptionKeyRef = &keyRef
	}
	if created, ok := row["CREATED_TIME"].(int64); ok {
		record.CreatedTime = created
	}
	if updated, ok := row["UPDATED_TIME"].(int64); ok {
		record.UpdatedTime = updated
	}

	return record
}

func mapToProcessingLog(row map[string]interface{}) *model.ProcessingLog {
	if row == nil {
		return nil
	}

	logEntry := &model.ProcessingLog{}

	if id, ok := row["LOG_ID"].(string); ok {
		logEntry.LogID = id
	}
	if fetchRequestID, ok := row["FETCH_REQUEST_ID"].(string); ok {
		logEntry.FetchRequestID = fetchRequestID
	}
	if externalID, ok := row["EXTERNAL_RECORD_ID"].(string); ok {
		logEntry.ExternalRecordID = externalID
	}
	if stage, ok := row["STAGE"].(string); ok {
		logEntry.Stage = stage
	}
	if outcome, ok := row["OUTCOME"].(string); ok {
		logEntry.Outcome = outcome
	}
	if latency, ok := row["LATENCY_MS"].(int64); ok {
		logEntry.LatencyMs = latency
	}
	if detail, ok := row["DETAIL"].(string); ok {
		logEntry.Detail = &detail
	}
	if created, ok := row["CREATED_TIME"].(int64); ok {
		logEntry.CreatedTime = created
	}

	return logEntry
}

func mapToAccessLog(row map[string]interface{}) *model.AccessLog {
	if row == nil {
		return nil
	}

	logEntry := &model.AccessLog{}

	if id, ok := row["ACCESS_ID"].(string); ok {
		logEntry.AccessID = id
	}
	if recordID, ok := row["RECORD_ID"].(string); ok {
		logEntry.RecordID = recordID
	}
	if actorID, ok := row["ACTOR_ID"].(string); ok {
		logEntry.ActorID = actorID
	}
	if actorKind, ok := row["ACTOR_KIND"].(string); ok {
		logEntry.ActorKind = actorKind
	}
	if accessType, ok := row["ACCESS_TYPE"].(string); ok {
		logEntry.AccessType = accessType
	}
	if origin, ok := row["ORIGIN"].(string); ok {
		logEntry.Origin = &origin
	}
	if accessTime, ok := row["ACCESS_TIME"].(int64); ok {
		logEntry.AccessTime = accessTime
	}

	return logEntry
}
