// Package model defines the consent request and artifact entities.
package model

// Consent request statuses. A request transitions exactly once out of
// REQUESTED.
const (
	StatusRequested = "REQUESTED"
	StatusGranted   = "GRANTED"
	StatusDenied    = "DENIED"
	StatusExpired   = "EXPIRED"
	StatusRevoked   = "REVOKED"
)

// Consent artifact statuses. Expiry is derived at read time from
// EXPIRY_TIME; EXPIRED is only materialized in responses.
const (
	ArtifactStatusActive  = "ACTIVE"
	ArtifactStatusRevoked = "REVOKED"
	ArtifactStatusExpired = "EXPIRED"
)

// IsTerminalStatus reports whether a consent request status permits no
// further transition.
func IsTerminalStatus(status string) bool {
	return status != StatusRequested
}

// ConsentRequest is the patient consent request owned by this service.
type ConsentRequest struct {
	ConsentRequestID  string   `json:"consentRequestId"`
	PatientID         string   `json:"patientId"`
	DoctorID          string   `json:"doctorId"`
	ExternalRequestID *string  `json:"externalRequestId,omitempty"`
	PurposeCode       string   `json:"purposeCode"`
	PurposeText       string   `json:"purposeText"`
	HiTypes           []string `json:"hiTypes"`
	DateFrom          int64    `json:"dateFrom"`
	DateTo            int64    `json:"dateTo"`
	ExpiryTime        int64    `json:"expiryTime"`
	Status            string   `json:"status"`
	CallbackURL       *string  `json:"callbackUrl,omitempty"`
	CreatedTime       int64    `json:"createdTime"`
	UpdatedTime       int64    `json:"updatedTime"`
}

// ConsentArtifact is the granted, time-boxed credential resulting from a
// GRANTED consent request.
type ConsentArtifact struct {
	ArtifactID         string  `json:"artifactId"`
	ConsentRequestID   string  `json:"consentRequestId"`
	ExternalArtifactID string  `json:"externalArtifactId"`
	ArtifactPayload    string  `json:"-"`
	Status             string  `json:"status"`
	GrantedTime        int64   `json:"grantedTime"`
	ExpiryTime         int64   `json:"expiryTime"`
	RevokedTime        *int64  `json:"revokedTime,omitempty"`
	RevokeReason       *string `json:"revokeReason,omitempty"`
}

// IsExpired reports whether the artifact has passed its expiry instant.
func (a *ConsentArtifact) IsExpired(now int64) bool {
	return now >= a.ExpiryTime
}

// EffectiveStatus derives the externally visible status at a point in time.
// A stored ACTIVE artifact past its expiry reads as EXPIRED without a
// database write.
func (a *ConsentArtifact) EffectiveStatus(now int64) string {
	if a.Status == ArtifactStatusActive && a.IsExpired(now) {
		return ArtifactStatusExpired
	}
	return a.Status
}

// IsUsable reports whether the artifact may authorize a new fetch.
func (a *ConsentArtifact) IsUsable(now int64) bool {
	return a.Status == ArtifactStatusActive && !a.IsExpired(now)
}

// EffectiveStatus derives the request status at a point in time. A request
// still waiting past its expiry instant reads as EXPIRED.
func (r *ConsentRequest) EffectiveStatus(now int64) string {
	if r.Status == StatusRequested && now >= r.ExpiryTime {
		return StatusExpired
	}
	return r.Status
}
