// Package model defines the health-record fetch request entity.
package model

import (
	consentmodel "github.com/medilink/health-exchange-api/internal/consent/model"
	recordmodel "github.com/medilink/health-exchange-api/internal/record/model"
)

// Fetch request statuses. PROCESSING is the only non-terminal status.
const (
	StatusProcessing = "PROCESSING"
	StatusCompleted  = "COMPLETED"
	StatusPartial    = "PARTIAL"
	StatusFailed     = "FAILED"
	StatusCancelled  = "CANCELLED"
)

// IsTerminalStatus reports whether a fetch status permits no further
// transition.
func IsTerminalStatus(status string) bool {
	return status != StatusProcessing
}

// DeriveStatus computes the terminal status from the counters once the
// exchange has signalled that no more entries are pending.
func DeriveStatus(total, completed, failed int) string {
	switch {
	case failed == 0:
		return StatusCompleted
	case completed > 0:
		return StatusPartial
	default:
		return StatusFailed
	}
}

// FetchRequest tracks one asynchronous health-record fetch. Status is
// derived from the counters, never set directly by callers.
type FetchRequest struct {
	FetchRequestID    string   `json:"fetchRequestId"`
	ArtifactID        string   `json:"artifactId"`
	PatientID         string   `json:"patientId"`
	DoctorID          string   `json:"doctorId"`
	ExternalRequestID *string  `json:"externalRequestId,omitempty"`
	HiTypes           []string `json:"hiTypes"`
	DateFrom          int64    `json:"dateFrom"`
	DateTo            int64    `json:"dateTo"`
	Status            string   `json:"status"`
	TotalRecords      int      `json:"totalRecords"`
	CompletedRecords  int      `json:"completedRecords"`
	FailedRecords     int      `json:"failedRecords"`
	CreatedTime       int64    `json:"createdTime"`
	UpdatedTime       int64    `json:"updatedTime"`
}

// Progress is the computed progress view of a fetch request.
type Progress struct {
	Total      int     `json:"total"`
	Completed  int     `json:"completed"`
	Failed     int     `json:"failed"`
	Percentage float64 `json:"percentage"`
}

// ComputeProgress derives the progress view from the stored counters.
func (f *FetchRequest) ComputeProgress() Progress {
	progress := Progress{
		Total:     f.TotalRecords,
		Completed: f.CompletedRecords,
		Failed:    f.FailedRecords,
	}
	if f.TotalRecords > 0 {
		progress.Percentage = float64(f.CompletedRecords+f.FailedRecords) / float64(f.TotalRecords) * 100
	}
	return progress
}

// FetchAPIRequest is the create-fetch request body. Empty hiTypes or date
// bounds inherit the consent's granted scope.
type FetchAPIRequest struct {
	ArtifactID string                 `json:"artifactId"`
	HiTypes    []string               `json:"hiTypes,omitempty"`
	DateRange  *consentmodel.DateRange `json:"dateRange,omitempty"`
}

// FetchStatusResponse is the progress view returned to callers.
type FetchStatusResponse struct {
	FetchRequestID string   `json:"fetchRequestId"`
	Status         string   `json:"status"`
	Progress       Progress `json:"progress"`
	RecordIDs      []string `json:"recordIds"`
}

// NotifyRequest is the exchange-facing bundle delivery body. RequestID is
// the exchange's own fetch request identifier. Final signals that no more
// entries are pending for the fetch.
type NotifyRequest struct {
	RequestID string             `json:"requestId"`
	Final     bool               `json:"final"`
	Bundle    recordmodel.Bundle `json:"bundle"`
}

// NotifyAck acknowledges a bundle delivery.
type NotifyAck struct {
	FetchRequestID string                     `json:"fetchRequestId"`
	Status         string                     `json:"status"`
	Ingested       bool                       `json:"ingested"`
	Result         *recordmodel.ProcessResult `json:"result,omitempty"`
}
