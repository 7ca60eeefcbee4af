package consent

import (
	"context"
	"encoding/json"

	"github.com/medilink/health-exchange-api/internal/consent/model"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/database/provider"
)

// DBQuery objects for consent operations
var (
	QueryCreateConsentRequest = dbmodel.DBQuery{
		ID:    "CREATE_CONSENT_REQUEST",
		Query: "INSERT INTO CONSENT_REQUEST (CONSENT_REQUEST_ID, PATIENT_ID, DOCTOR_ID, EXTERNAL_REQUEST_ID, PURPOSE_CODE, PURPOSE_TEXT, HI_TYPES, DATE_FROM, DATE_TO, EXPIRY_TIME, STATUS, CALLBACK_URL, CREATED_TIME, UPDATED_TIME) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetConsentRequestByID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_REQUEST_BY_ID",
		Query: "SELECT CONSENT_REQUEST_ID, PATIENT_ID, DOCTOR_ID, EXTERNAL_REQUEST_ID, PURPOSE_CODE, PURPOSE_TEXT, HI_TYPES, DATE_FROM, DATE_TO, EXPIRY_TIME, STATUS, CALLBACK_URL, CREATED_TIME, UPDATED_TIME FROM CONSENT_REQUEST WHERE CONSENT_REQUEST_ID = ?",
	}

	QueryGetConsentRequestByExternalID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_REQUEST_BY_EXTERNAL_ID",
		Query: "SELECT CONSENT_REQUEST_ID, PATIENT_ID, DOCTOR_ID, EXTERNAL_REQUEST_ID, PURPOSE_CODE, PURPOSE_TEXT, HI_TYPES, DATE_FROM, DATE_TO, EXPIRY_TIME, STATUS, CALLBACK_URL, CREATED_TIME, UPDATED_TIME FROM CONSENT_REQUEST WHERE EXTERNAL_REQUEST_ID = ?",
	}

	QuerySetExternalRequestID = dbmodel.DBQuery{
		ID:    "SET_CONSENT_EXTERNAL_REQUEST_ID",
		Query: "UPDATE CONSENT_REQUEST SET EXTERNAL_REQUEST_ID = ?, UPDATED_TIME = ? WHERE CONSENT_REQUEST_ID = ?",
	}

	// Guarded by the expected previous status so a request leaves REQUESTED
	// exactly once even under concurrent callbacks.
	QueryUpdateConsentRequestStatus = dbmodel.DBQuery{
		ID:    "UPDATE_CONSENT_REQUEST_STATUS",
		Query: "UPDATE CONSENT_REQUEST SET STATUS = ?, UPDATED_TIME = ? WHERE CONSENT_REQUEST_ID = ? AND STATUS = ?",
	}

	QueryCreateArtifact = dbmodel.DBQuery{
		ID:    "CREATE_CONSENT_ARTIFACT",
		Query: "INSERT INTO CONSENT_ARTIFACT (ARTIFACT_ID, CONSENT_REQUEST_ID, EXTERNAL_ARTIFACT_ID, ARTIFACT_PAYLOAD, STATUS, GRANTED_TIME, EXPIRY_TIME, REVOKED_TIME, REVOKE_REASON) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetArtifactByID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_ARTIFACT_BY_ID",
		Query: "SELECT ARTIFACT_ID, CONSENT_REQUEST_ID, EXTERNAL_ARTIFACT_ID, ARTIFACT_PAYLOAD, STATUS, GRANTED_TIME, EXPIRY_TIME, REVOKED_TIME, REVOKE_REASON FROM CONSENT_ARTIFACT WHERE ARTIFACT_ID = ?",
	}

	QueryGetArtifactByConsentRequestID = dbmodel.DBQuery{
		ID:    "GET_CONSENT_ARTIFACT_BY_CONSENT_REQUEST_ID",
		Query: "SELECT ARTIFACT_ID, CONSENT_REQUEST_ID, EXTERNAL_ARTIFACT_ID, ARTIFACT_PAYLOAD, STATUS, GRANTED_TIME, EXPIRY_TIME, REVOKED_TIME, REVOKE_REASON FROM CONSENT_ARTIFACT WHERE CONSENT_REQUEST_ID = ?",
	}

	// Expiry is evaluated here, at query time, not from a stored flag.
	QueryGetActiveArtifactsByPatient = dbmodel.DBQuery{
		ID:    "GET_ACTIVE_ARTIFACTS_BY_PATIENT",
		Query: "SELECT A.ARTIFACT_ID, A.CONSENT_REQUEST_ID, A.EXTERNAL_ARTIFACT_ID, A.ARTIFACT_PAYLOAD, A.STATUS, A.GRANTED_TIME, A.EXPIRY_TIME, A.REVOKED_TIME, A.REVOKE_REASON FROM CONSENT_ARTIFACT A INNER JOIN CONSENT_REQUEST R ON A.CONSENT_REQUEST_ID = R.CONSENT_REQUEST_ID WHERE R.PATIENT_ID = ? AND A.STATUS = 'ACTIVE' AND A.EXPIRY_TIME > ? ORDER BY A.GRANTED_TIME DESC",
	}

	QueryRevokeArtifact = dbmodel.DBQuery{
		ID:    "REVOKE_CONSENT_ARTIFACT",
		Query: "UPDATE CONSENT_ARTIFACT SET STATUS = 'REVOKED', REVOKED_TIME = ?, REVOKE_REASON = ? WHERE ARTIFACT_ID = ? AND STATUS = 'ACTIVE'",
	}
)

// ConsentStore defines the interface for consent data operations. It is
// exported so the fetch orchestrator can assert it from the store registry.
type ConsentStore interface {
	Create(ctx context.Context, request *model.ConsentRequest) error
	GetByID(ctx context.Context, consentRequestID string) (*model.ConsentRequest, error)
	GetByExternalRequestID(ctx context.Context, externalRequestID string) (*model.ConsentRequest, error)
	SetExternalRequestID(ctx context.Context, consentRequestID, externalRequestID string, updatedTime int64) error

	GetArtifactByID(ctx context.Context, artifactID string) (*model.ConsentArtifact, error)
	GetArtifactByConsentRequestID(ctx context.Context, consentRequestID string) (*model.ConsentArtifact, error)
	GetActiveArtifactsByPatient(ctx context.Context, patientID string, now int64) ([]model.ConsentArtifact, error)

	CreateWithTx(tx dbmodel.TxInterface, request *model.ConsentRequest) error
	UpdateStatusWithTx(tx dbmodel.TxInterface, consentRequestID, fromStatus, toStatus string, updatedTime int64) (int64, error)
	CreateArtifactWithTx(tx dbmodel.TxInterface, artifact *model.ConsentArtifact) error
	RevokeArtifactWithTx(tx dbmodel.TxInterface, artifactID string, revokedTime int64, reason string) (int64, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewStore creates and returns a new consent store (exported for registry)
func NewStore(dbClient provider.DBClientInterface) interface{} {
	return newConsentStore(dbClient)
}

func newConsentStore(dbClient provider.DBClientInterface) ConsentStore {
	return &store{
		dbClient: dbClient,
	}
}

// Create inserts a consent request.
func (s *store) Create(ctx context.Context, request *model.ConsentRequest) error {
	hiTypes, err := json.Marshal(request.HiTypes)
	if err != nil {
		return err
	}
	_, err = s.dbClient.Execute(QueryCreateConsentRequest,
		request.ConsentRequestID, request.PatientID, request.DoctorID,
		request.ExternalRequestID, request.PurposeCode, request.PurposeText,
		string(hiTypes), request.DateFrom, request.DateTo, request.ExpiryTime,
		request.Status, request.CallbackURL, request.CreatedTime, request.UpdatedTime)
	return err
}

// GetByID retrieves a consent request by internal ID.
func (s *store) GetByID(ctx context.Context, consentRequestID string) (*model.ConsentRequest, error) {
	rows, err := s.dbClient.Query(QueryGetConsentRequestByID, consentRequestID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToConsentRequest(rows[0]), nil
}

// GetByExternalRequestID retrieves a consent request by the exchange's
// request identifier.
func (s *store) GetByExternalRequestID(ctx context.Context, externalRequestID string) (*model.ConsentRequest, error) {
	rows, err := s.dbClient.Query(QueryGetConsentRequestByExternalID, externalRequestID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToConsentRequest(rows[0]), nil
}

// SetExternalRequestID stores the exchange-assigned request identifier.
func (s *store) SetExternalRequestID(ctx context.Context, consentRequestID, externalRequestID string, updatedTime int64) error {
	_, err := s.dbClient.Execute(QuerySetExternalRequestID, externalRequestID, updatedTime, consentRequestID)
	return err
}

// GetArtifactByID retrieves an artifact by ID.
func (s *store) GetArtifactByID(ctx context.Context, artifactID string) (*model.ConsentArtifact, error) {
	rows, err := s.dbClient.Query(QueryGetArtifactByID, artifactID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToConsentArtifact(rows[0]), nil
}

// GetArtifactByConsentRequestID retrieves the artifact of a consent request.
func (s *store) GetArtifactByConsentRequestID(ctx context.Context, consentRequestID string) (*model.ConsentArtifact, error) {
	rows, err := s.dbClient.Query(QueryGetArtifactByConsentRequestID, consentRequestID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return mapToConsentArtifact(rows[0]), nil
}

// GetActiveArtifactsByPatient retrieves ACTIVE, unexpired artifacts for a
// patient at the given instant.
func (s *store) GetActiveArtifactsByPatient(ctx context.Context, patientID string, now int64) ([]model.ConsentArtifact, error) {
	rows, err := s.dbClient.Query(QueryGetActiveArtifactsByPatient, patientID, now)
	if err != nil {
		return nil, err
	}

	artifacts := make([]model.ConsentArtifact, 0, len(rows))
	for _, row := range rows {
		artifact := mapToConsentArtifact(row)
		if artifact != nil {
			artifacts = append(artifacts, *artifact)
		}
	}
	return artifacts, nil
}

// CreateWithTx inserts a consent request within a transaction.
func (s *store) CreateWithTx(tx dbmodel.TxInterface, request *model.ConsentRequest) error {
	hiTypes, err := json.Marshal(request.HiTypes)
	if err != nil {
		return err
	}
	_, err = tx.Exec(QueryCreateConsentRequest.Query,
		request.ConsentRequestID, request.PatientID, request.DoctorID,
		request.ExternalRequestID, request.PurposeCode, request.PurposeText,
		string(hiTypes), request.DateFrom, request.DateTo, request.ExpiryTime,
		request.Status, request.CallbackURL, request.CreatedTime, request.UpdatedTime)
	return err
}

// UpdateStatusWithTx transitions a request's status, guarded by the expected
// previous status. Returns the number of rows affected; zero means the
// request was no longer in fromStatus.
func (s *store) UpdateStatusWithTx(tx dbmodel.TxInterface, consentRequestID, fromStatus, toStatus string, updatedTime int64) (int64, error) {
	result, err := tx.Exec(QueryUpdateConsentRequestStatus.Query,
		toStatus, updatedTime, consentRequestID, fromStatus)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// CreateArtifactWithTx inserts an artifact within a transaction.
func (s *store) CreateArtifactWithTx(tx dbmodel.TxInterface, artifact *model.ConsentArtifact) error {
	_, err := tx.Exec(QueryCreateArtifact.Query,
		artifact.ArtifactID, artifact.ConsentRequestID, artifact.ExternalArtifactID,
		artifact.ArtifactPayload, artifact.Status, artifact.GrantedTime,
		artifact.ExpiryTime, artifact.RevokedTime, artifact.RevokeReason)
	return err
}

// RevokeArtifactWithTx revokes an ACTIVE artifact. Returns the number of
// rows affected; zero means the artifact was not ACTIVE.
func (s *store) RevokeArtifactWithTx(tx dbmodel.TxInterface, artifactID string, revokedTime int64, reason string) (int64, error) {
	result, err := tx.Exec(QueryRevokeArtifact.Query, revokedTime, reason, artifactID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Mapper functions

func mapToConsentRequest(row map[string]interface{}) *model.ConsentRequest {
	if row == nil {
		return nil
	}

	request := &model.ConsentRequest{}

	if id, ok := row["CONSENT_REQUEST_ID"].(string); ok {
		request.ConsentRequestID = id
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
	if code, ok := row["PURPOSE_CODE"].(string); ok {
		request.PurposeCode = code
	}
	if text, ok := row["PURPOSE_TEXT"].(string); ok {
		request.PurposeText = text
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
	if expiry, ok := row["EXPIRY_TIME"].(int64); ok {
		request.ExpiryTime = expiry
	}
	if status, ok := row["STATUS"].(string); ok {
		request.Status = status
	}
	if callbackURL, ok := row["CALLBACK_URL"].(string); ok {
		request.CallbackURL = &callbackURL
	}
	if created, ok := row["CREATED_TIME"].(int64); ok {
		request.CreatedTime = created
	}
	if updated, ok := row["UPDATED_TIME"].(int64); ok {
		request.UpdatedTime = updated
	}

	return request
}

func mapToConsentArtifact(row map[string]interface{}) *model.ConsentArtifact {
	if row == nil {
		return nil
	}

	artifact := &model.ConsentArtifact{}

	if id, ok := row["ARTIFACT_ID"].(string); ok {
		artifact.ArtifactID = id
	}
	if requestID, ok := row["CONSENT_REQUEST_ID"].(string); ok {
		artifact.ConsentRequestID = requestID
	}
	if externalID, ok := row["EXTERNAL_ARTIFACT_ID"].(string); ok {
		artifact.ExternalArtifactID = externalID
	}
	if payload, ok := row["ARTIFACT_PAYLOAD"].(string); ok {
		artifact.ArtifactPayload = payload
	}
	if status, ok := row["STATUS"].(string); ok {
		artifact.Status = status
	}
	if granted, ok := row["GRANTED_TIME"].(int64); ok {
		artifact.GrantedTime = granted
	}
	if expiry, ok := row["EXPIRY_TIME"].(int64); ok {
		artifact.ExpiryTime = expiry
	}
	if revoked, ok := row["REVOKED_TIME"].(int64); ok {
		artifact.RevokedTime = &revoked
	}
	if reason, ok := row["REVOKE_REASON"].(string); ok {
		artifact.RevokeReason = &reason
	}

	return artifact
}
