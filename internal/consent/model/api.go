package model

import "encoding/json"

// Purpose carries the consent purpose code and free text.
type Purpose struct {
	Code string `json:"code"`
	Text string `json:"text,omitempty"`
}

// DateRange bounds the requested clinical data, epoch millis.
type DateRange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// ConsentAPIRequest is the create-consent request body. The requesting
// doctor arrives via the actor headers.
type ConsentAPIRequest struct {
	PatientID   string    `json:"patientId"`
	Purpose     Purpose   `json:"purpose"`
	HiTypes     []string  `json:"hiTypes"`
	DateRange   DateRange `json:"dateRange"`
	Expiry      int64     `json:"expiry"`
	CallbackURL string    `json:"callbackUrl,omitempty"`
}

// ConsentResponse is the consent request API representation, including the
// artifact once granted.
type ConsentResponse struct {
	ConsentRequest
	Artifact *ArtifactResponse `json:"artifact,omitempty"`
}

// ArtifactResponse is the artifact API representation with the status
// derived at read time.
type ArtifactResponse struct {
	ArtifactID         string  `json:"artifactId"`
	ConsentRequestID   string  `json:"consentRequestId"`
	ExternalArtifactID string  `json:"externalArtifactId"`
	Status             string  `json:"status"`
	GrantedTime        int64   `json:"grantedTime"`
	ExpiryTime         int64   `json:"expiryTime"`
	RevokedTime        *int64  `json:"revokedTime,omitempty"`
	RevokeReason       *string `json:"revokeReason,omitempty"`
}

// ToAPIResponse derives the artifact view for a point in time.
func (a *ConsentArtifact) ToAPIResponse(now int64) ArtifactResponse {
	return ArtifactResponse{
		ArtifactID:         a.ArtifactID,
		ConsentRequestID:   a.ConsentRequestID,
		ExternalArtifactID: a.ExternalArtifactID,
		Status:             a.EffectiveStatus(now),
		GrantedTime:        a.GrantedTime,
		ExpiryTime:         a.ExpiryTime,
		RevokedTime:        a.RevokedTime,
		RevokeReason:       a.RevokeReason,
	}
}

// ActiveConsentsResponse lists the active, unexpired artifacts of a patient.
type ActiveConsentsResponse struct {
	Artifacts []ArtifactResponse `json:"artifacts"`
	Total     int                `json:"total"`
}

// CallbackArtifact is the artifact material delivered with a GRANTED
// callback.
type CallbackArtifact struct {
	ArtifactID string          `json:"artifactId"`
	Payload    json.RawMessage `json:"payload"`
	ExpiresAt  int64           `json:"expiresAt"`
}

// StatusCallbackRequest is the exchange-facing status callback body.
type StatusCallbackRequest struct {
	RequestID string            `json:"requestId"`
	Status    string            `json:"status"`
	Artifact  *CallbackArtifact `json:"artifact,omitempty"`
}

// CallbackAck acknowledges a status callback.
type CallbackAck struct {
	ConsentRequestID string `json:"consentRequestId"`
	Status           string `json:"status"`
	Applied          bool   `json:"applied"`
}

// RevokeRequest is the artifact revocation body.
type RevokeRequest struct {
	Reason string `json:"reason"`
}

// RevokeResponse confirms a revocation.
type RevokeResponse struct {
	ArtifactID  string `json:"artifactId"`
	Status      string `json:"status"`
	RevokedTime int64  `json:"revokedTime"`
}
