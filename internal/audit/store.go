package audit

import (
	"context"

	"github.com/medilink/health-exchange-api/internal/audit/model"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/database/provider"
)

// DBQuery objects for audit operations
var (
	QueryCreateAuditEntry = dbmodel.DBQuery{
		ID:    "CREATE_AUDIT_ENTRY",
		Query: "INSERT INTO CONSENT_AUDIT_LOG (AUDIT_ID, CONSENT_REQUEST_ID, ARTIFACT_ID, RECORD_ID, ACTION, ACTOR_ID, ACTOR_KIND, DETAIL, ORIGIN, ACTION_TIME) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
	}

	QueryGetAuditByConsentRequestID = dbmodel.DBQuery{
		ID:    "GET_AUDIT_BY_CONSENT_REQUEST_ID",
		Query: "SELECT AUDIT_ID, CONSENT_REQUEST_ID, ARTIFACT_ID, RECORD_ID, ACTION, ACTOR_ID, ACTOR_KIND, DETAIL, ORIGIN, ACTION_TIME FROM CONSENT_AUDIT_LOG WHERE CONSENT_REQUEST_ID = ? ORDER BY ACTION_TIME ASC",
	}

	QueryGetAuditByArtifactID = dbmodel.DBQuery{
		ID:    "GET_AUDIT_BY_ARTIFACT_ID",
		Query: "SELECT AUDIT_ID, CONSENT_REQUEST_ID, ARTIFACT_ID, RECORD_ID, ACTION, ACTOR_ID, ACTOR_KIND, DETAIL, ORIGIN, ACTION_TIME FROM CONSENT_AUDIT_LOG WHERE ARTIFACT_ID = ? ORDER BY ACTION_TIME ASC",
	}

	QueryGetAuditByRecordID = dbmodel.DBQuery{
		ID:    "GET_AUDIT_BY_RECORD_ID",
		Query: "SELECT AUDIT_ID, CONSENT_REQUEST_ID, ARTIFACT_ID, RECORD_ID, ACTION, ACTOR_ID, ACTOR_KIND, DETAIL, ORIGIN, ACTION_TIME FROM CONSENT_AUDIT_LOG WHERE RECORD_ID = ? ORDER BY ACTION_TIME ASC",
	}

	QueryGetAuditByActorID = dbmodel.DBQuery{
		ID:    "GET_AUDIT_BY_ACTOR_ID",
		Query: "SELECT AUDIT_ID, CONSENT_REQUEST_ID, ARTIFACT_ID, RECORD_ID, ACTION, ACTOR_ID, ACTOR_KIND, DETAIL, ORIGIN, ACTION_TIME FROM CONSENT_AUDIT_LOG WHERE ACTOR_ID = ? ORDER BY ACTION_TIME ASC",
	}
)

// AuditStore defines the interface for audit data operations. The write
// path is append-only; there are no update or delete operations.
type AuditStore interface {
	Create(ctx context.Context, entry *model.AuditEntry) error
	CreateWithTx(tx dbmodel.TxInterface, entry *model.AuditEntry) error
	GetByConsentRequestID(ctx context.Context, consentRequestID string) ([]model.AuditEntry, error)
	GetByArtifactID(ctx context.Context, artifactID string) ([]model.AuditEntry, error)
	GetByRecordID(ctx context.Context, recordID string) ([]model.AuditEntry, error)
	GetByActorID(ctx context.Context, actorID string) ([]model.AuditEntry, error)
}

type store struct {
	dbClient provider.DBClientInterface
}

// NewStore creates and returns a new audit store (exported for registry)
func NewStore(dbClient provider.DBClientInterface) interface{} {
	return newAuditStore(dbClient)
}

func newAuditStore(dbClient provider.DBClientInterface) AuditStore {
	return &store{
		dbClient: dbClient,
	}
}

// Create appends an audit entry.
func (s *store) Create(ctx context.Context, entry *model.AuditEntry) error {
	_, err := s.dbClient.Execute(QueryCreateAuditEntry,
		entry.AuditID, entry.ConsentRequestID, entry.ArtifactID, entry.RecordID,
		entry.Action, entry.ActorID, entry.ActorKind, entry.Detail, entry.Origin,
		entry.ActionTime)
	return err
}

// CreateWithTx appends an audit entry within a transaction.
func (s *store) CreateWithTx(tx dbmodel.TxInterface, entry *model.AuditEntry) error {
	_, err := tx.Exec(QueryCreateAuditEntry.Query,
		entry.AuditID, entry.ConsentRequestID, entry.ArtifactID, entry.RecordID,
		entry.Action, entry.ActorID, entry.ActorKind, entry.Detail, entry.Origin,
		entry.ActionTime)
	return err
}

// GetByConsentRequestID retrieves entries for a consent request in chronological order.
func (s *store) GetByConsentRequestID(ctx context.Context, consentRequestID string) ([]model.AuditEntry, error) {
	return s.query(QueryGetAuditByConsentRequestID, consentRequestID)
}

// GetByArtifactID retrieves entries for an artifact in chronological order.
func (s *store) GetByArtifactID(ctx context.Context, artifactID string) ([]model.AuditEntry, error) {
	return s.query(QueryGetAuditByArtifactID, artifactID)
}

// GetByRecordID retrieves entries for a health record in chronological order.
func (s *store) GetByRecordID(ctx context.Context, recordID string) ([]model.AuditEntry, error) {
	return s.query(QueryGetAuditByRecordID, recordID)
}

// GetByActorID retrieves entries for an actor in chronological order.
func (s *store) GetByActorID(ctx context.Context, actorID string) ([]model.AuditEntry, error) {
	return s.query(QueryGetAuditByActorID, actorID)
}

func (s *store) query(query dbmodel.DBQuery, arg string) ([]model.AuditEntry, error) {
	rows, err := s.dbClient.Query(query, arg)
	if err != nil {
		return nil, err
	}

	entries := make([]model.AuditEntry, 0, len(rows))
	for _, row := range rows {
		entry := mapToAuditEntry(row)
		if entry != nil {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func mapToAuditEntry(row map[string]interface{}) *model.AuditEntry {
	if row == nil {
		return nil
	}

	entry := &model.AuditEntry{}

	if id, ok := row["AUDIT_ID"].(string); ok {
		entry.AuditID = id
	}
	if requestID, ok := row["CONSENT_REQUEST_ID"].(string); ok {
		entry.ConsentRequestID = &requestID
	}
	if artifactID, ok := row["ARTIFACT_ID"].(string); ok {
		entry.ArtifactID = &artifactID
	}
	if recordID, ok := row["RECORD_ID"].(string); ok {
		entry.RecordID = &recordID
	}
	if action, ok := row["ACTION"].(string); ok {
		entry.Action = action
	}
	if actorID, ok := row["ACTOR_ID"].(string); ok {
		entry.ActorID = actorID
	}
	if actorKind, ok := row["ACTOR_KIND"].(string); ok {
		entry.ActorKind = actorKind
	}
	if detail, ok := row["DETAIL"].(string); ok {
		entry.Detail = &detail
	}
	if origin, ok := row["ORIGIN"].(string); ok {
		entry.Origin = &origin
	}
	if actionTime, ok := row["ACTION_TIME"].(int64); ok {
		entry.ActionTime = actionTime
	}

	return entry
}
