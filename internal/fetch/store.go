package fetch

import (
	"context"
	"encoding/json"

	"github.com/medilink/health-exchange-api/internal/fetch/model"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/database/provider"
)

// DBQuery objects for fetch request operations
var (
	QueryCreateFetchRequest = dbmodel.DBQuery{
		ID:    "CREATE_FETCH_REQUEST",
		Query: "INSERT INTO HEALTH_RECORD_FETCH_REQUEST (FETCH_REQUEST_ID, ARTIFACT_ID, PATIENT_ID, DOCTOR_ID, EXTERNAL_REQUEST_ID, HI_TYPES, DATE_FROM, DATE_TO, STATUS, TOTAL_RECORDS, COMPLETED_RECORDS, FAILED_RECORDS, CREATED_TIME, UPDATED_TIME) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetFetchRequestByID = dbmodel.DBQuery{
		ID:    "GET_FETCH_REQUEST_BY_ID",
		Query: "SELECT FETCH_REQUEST_ID, ARTIFACT_ID, PATIENT_ID, DOCTOR_ID, EXTERNAL_REQUEST_ID, HI_TYPES, DATE_FROM, DATE_TO, STATUS, TOTAL_RECORDS, COMPLETED_RECORDS, FAILED_RECORDS, CREATED_TIME, UPDATED_TIME FROM HEALTH_RECORD_FETCH_REQUEST WHERE FETCH_REQUEST_ID = ?",
	}

	QueryGetFetchRequestByExternalID = dbmodel.DBQuery{
		ID:    "GET_FETCH_REQUEST_BY_EXTERNAL_ID",
		Query: "SELECT FETCH_REQUEST_ID, ARTIFACT_ID, PATIENT_ID, DOCTOR_ID, EXTERNAL_REQUEST_ID, HI_TYPES, DATE_FROM, DATE_TO, STATUS, TOTAL_RECORDS, COMPLETED_RECORDS, FAILED_RECORDS, CREATED_TIME, UPDATED_TIME FROM HEALTH_RECORD_FETCH_REQUEST WHERE EXTERNAL_REQUEST_ID = ?",
	}

	QuerySetFetchExternalRequestID = dbmodel.DBQuery{
		ID:    "SET_FETCH_EXTERNAL_REQUEST_ID",
		Query: "UPDATE HEALTH_RECORD_FETCH_REQUEST SET EXTERNAL_REQUEST_ID = ?, UPDATED_TIME = ? WHERE FETCH_REQUEST_ID = ?",
	}

	// Counter updates are single-statement increments so concurrent bundle
	// deliveries cannot lose updates.
	QueryIncrementFetchCounters = dbmodel.DBQuery{
		ID:    "INCREMENT_FETCH_COUNTERS",
		Query: "UPDATE HEALTH_RECORD_FETCH_REQUEST SET TOTAL_RECORDS = TOTAL_RECORDS + ?, COMPLETED_RECORDS = COMPLETED_RECORDS + ?, FAILED_RECORDS = FAILED_RECORDS + ?, UPDATED_TIME = ? WHERE FETCH_REQUEST_ID = ?",
	}

	// Guarded by PROCESSING so a cancelled fetch is never overwritten by a
	// late terminal derivation (and vice versa).
	QueryUpdateFetchStatus = dbmodel.DBQuery{
		ID:    "UPDATE_FETCH_STATUS",
		Query: "UPDATE HEALTH_RECORD_FETCH_REQUEST SET STATUS = ?, UPDATED_TIME = ? WHERE FETCH_REQUEST_ID = ? AND STATUS = 'PROCESSING'",
	}
)

// FetchStore defines the interface for fetch request data operations
type FetchStore interface {
	Create(ctx context.Context, request *model.FetchRequest) error
	CreateWithTx(tx dbmodel.TxInterface, request *model.FetchRequest) error
	GetByID(ctx context.Context, fetchRequestID string) (*model.FetchRequest, error)
	GetByExternalRequestID(ctx context.Context, externalRequestID string) (*model.FetchRequest, error)
	SetExternalRequestID(ctx context.Context, fetchRequestID, externalRequestID string, updatedTime int64) error
	IncrementCounters(ctx context.Context, fetchRequestID string, totalDelta, completedDelta, failedDelta int, updatedTime int64) error
	UpdateStatusFromProcessing(ctx context.Context, fetchRequestID, status string, updatedTime int64) (int64, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewStore creates and returns a new fetch store (exported for registry)
func NewStore(dbClient provider.DBClientInterface) interface{} {
	return newFetchStore(dbClient)
}

func newFetchStore(dbClient provider.DBClientInterface) FetchStore {
	return &store{
		dbClient: dbClient,
	}
}

// Create inserts a fetch request.
func (s *store) Create(ctx context.Context, request *model.FetchRequest) error {
	hiTypes, err := json.Marshal(request.HiTypes)
	if err != nil {
		return err
	}
	_, err = s.dbClient.Execute(QueryCreateFetchRequest,
		request.FetchRequestID, request.ArtifactID, request.PatientID, request.DoctorID,
		request.ExternalRequestID, string(hiTypes), request.DateFrom, request.DateTo,
		request.Status, request.TotalRecords, request.CompletedRecords,
		request.FailedRecords, request.CreatedTime, request.UpdatedTime)
	return err
}

// CreateWithTx inserts a fetch request within an existing transaction.
func (s *store) CreateWithTx(tx dbmodel.TxInterface, request *model.FetchRequest) error {
	hiTypes, err := json.Marshal(request.HiTypes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(QueryCreateFetchRequest.Query,
		request.FetchRequestID, request.ArtifactID, request.PatientID, request.DoctorID,
		request.ExternalRequestID, string(hiTypes), request.DateFrom, request.DateTo,
		request.Status, request.TotalRecords, request.CompletedRecords,
		request.FailedRecords, request.CreatedTime, request.UpdatedTime)
	return err
}

// GetByID retrieves a fetch request by internal ID.
func (s *store) GetByID(ctx context.Context, fetchRequestID string) (*model.FetchRequest, error) {
	rows, err := s.dbClient.Query(QueryGetFetchRequestByID, fetchRequestID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToFetchRequest(rows[0]), nil
}

// GetByExternalRequestID retrieves a fetch request by the exchange's request
// identifier.
func (s *store) GetByExternalRequestID(ctx context.Context, externalRequestID string) (*model.FetchRequest, error) {
	rows, err := s.dbClient.Query(QueryGetFetchRequestByExternalID, externalRequestID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToFetchRequest(rows[0]), nil
}

// SetExternalRequestID stores the exchange-assigned request identifier.
func (s *store) SetExternalRequestID(ctx context.Context, fetchRequestID, externalRequestID string, updatedTime int64) error {
	_, err := s.dbClient.Execute(QuerySetFetchExternalRequestID, externalRequestID, updatedTime, fetchRequestID)
	return err
}

// IncrementCounters applies counter deltas atomically in one statement.
func (s *store) IncrementCounters(ctx context.Context, fetchRequestID string, totalDelta, completedDelta, failedDelta int, updatedTime int64) error {
	_, err := s.dbClient.Execute(QueryIncrementFetchCounters,
		totalDelta, completedDelta, failedDelta, updatedTime, fetchRequestID)
	return err
}

// UpdateStatusFromProcessing transitions a PROCESSING fetch to a terminal
// status. Returns the number of rows affected; zero means the fetch was
// already terminal.
func (s *store) UpdateStatusFromProcessing(ctx context.Context, fetchRequestID, status string, updatedTime int64) (int64, error) {
	return s.dbClient.Execute(QueryUpdateFetchStatus, status, updatedTime, fetchRequestID)
}

func mapToFetchRequest(row map[string]interface{}) *model.FetchRequest {
	if row == nil {
		return nil
	}

	request := &model.FetchRequest{}

	if id, ok := row["FETCH_REQUEST_ID"].(string); ok {
		request.FetchRequestID = id
	}
	if artifactID, ok := row["ARTIFACT_ID"].(string); ok {
		request.ArtifactID = artifactID
	}
	if patientID, ok := row["PATIENT_ID"].(string); ok {
		request.PatientID = patientID
	}
	if doctorID, ok := row["DOCTOR_ID"].(string); ok {
		request.DoctorID = doctorID
	}
	if externalID, ok := row["EXTERNAL_REQUEST_ID"].(string); ok {
		request.ExternalRequestID = &externalID
	}
	if hiTypes, ok := row["HI_TYPES"].(string); ok {
		json.Unmarshal([]byte(hiTypes), &request.HiTypes)
	}
	if from, ok := row["DATE_FROM"].(int64); ok {
		request.DateFrom = from
	}
	if to, ok := row["DATE_TO"].(int64); ok {
		request.DateTo = to
	}
	if status, ok := row["STATUS"].(string); ok {
		request.Status = status
	}
	if total, ok := row["TOTAL_RECORDS"].(int64); ok {
		request.TotalRecords = int(total)
	}
	if completed, ok := row["COMPLETED_RECORDS"].(int64); ok {
		request.CompletedRecords = int(completed)
	}
	if failed, ok := row["FAILED_RECORDS"].(int64); ok {
		request.FailedRecords = int(failed)
	}
	if created, ok := row["CREATED_TIME"].(int64); ok {
		request.CreatedTime = created
	}
	if updated, ok := row["UPDATED_TIME"].(int64); ok {
		request.UpdatedTime = updated
	}

	return request
}
