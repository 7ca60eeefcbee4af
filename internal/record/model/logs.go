package model

// Processing stages.
const (
	StageFetch    = "FETCH"
	StageDecrypt  = "DECRYPT"
	StageParse    = "PARSE"
	StageValidate = "VALIDATE"
	StageStore    = "STORE"
	StageIndex    = "INDEX"
)

// Processing outcomes.
const (
	OutcomeSuccess = "SUCCESS"
	OutcomeFailed  = "FAILED"
	OutcomeSkipped = "SKIPPED"
	OutcomeRetry   = "RETRY"
)

// ProcessingLog is one row per normalization attempt of an inbound entry.
type ProcessingLog struct {
	LogID            string  `json:"logId"`
	FetchRequestID   string  `json:"fetchRequestId"`
	ExternalRecordID string  `json:"externalRecordId"`
	Stage            string  `json:"stage"`
	Outcome          string  `json:"outcome"`
	LatencyMs        int64   `json:"latencyMs"`
	Detail           *string `json:"detail,omitempty"`
	CreatedTime      int64   `json:"createdTime"`
}

// Access types recorded in the access log.
const (
	AccessTypeView     = "VIEW"
	AccessTypeDownload = "DOWNLOAD"
	AccessTypeExport   = "EXPORT"
)

// AccessLog is the compliance trail of record reads. Append-only.
type AccessLog struct {
	AccessID   string  `json:"accessId"`
	RecordID   string  `json:"recordId"`
	ActorID    string  `json:"actorId"`
	ActorKind  string  `json:"actorKind"`
	AccessType string  `json:"accessType"`
	Origin     *string `json:"origin,omitempty"`
	AccessTime int64   `json:"accessTime"`
}
