// Package model defines the audit log entities.
package model

// Actor kinds recorded against audit entries.
const (
	ActorKindDoctor   = "DOCTOR"
	ActorKindPatient  = "PATIENT"
	ActorKindSystem   = "SYSTEM"
	ActorKindExchange = "EXCHANGE"
)

// Audit actions.
const (
	ActionConsentRequested = "CONSENT_REQUESTED"
	ActionConsentGranted   = "CONSENT_GRANTED"
	ActionConsentDenied    = "CONSENT_DENIED"
	ActionConsentRevoked   = "CONSENT_REVOKED"
	ActionCallbackRejected = "CALLBACK_REJECTED"
	ActionFetchRequested   = "FETCH_REQUESTED"
	ActionFetchCancelled   = "FETCH_CANCELLED"
	ActionBundleProcessed  = "BUNDLE_PROCESSED"
	ActionRecordArchived   = "RECORD_ARCHIVED"
	ActionRecordRestored   = "RECORD_RESTORED"
	ActionRecordDeleted    = "RECORD_DELETED"
)

// AuditEntry is one append-only audit row. Entries are never updated or
// deleted.
type AuditEntry struct {
	AuditID          string  `json:"auditId"`
	ConsentRequestID *string `json:"consentRequestId,omitempty"`
	ArtifactID       *string `json:"artifactId,omitempty"`
	RecordID         *string `json:"recordId,omitempty"`
	Action           string  `json:"action"`
	ActorID          string  `json:"actorId"`
	ActorKind        string  `json:"actorKind"`
	Detail           *string `json:"detail,omitempty"`
	Origin           *string `json:"origin,omitempty"`
	ActionTime       int64   `json:"actionTime"`
}

// AuditQueryResponse is the list response for audit queries.
type AuditQueryResponse struct {
	Entries []AuditEntry `json:"entries"`
	Total   int          `json:"total"`
}
