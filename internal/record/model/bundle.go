package model

import "encoding/json"

// Bundle is a delivery unit from the exchange carrying clinical resource
// entries.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	Type         string        `json:"type,omitempty"`
	Total        *int          `json:"total,omitempty"`
	Entries      []BundleEntry `json:"entry"`
}

// BundleEntry wraps one clinical resource inside a bundle.
type BundleEntry struct {
	FullURL          string          `json:"fullUrl,omitempty"`
	EncryptionKeyRef *string         `json:"encryptionKeyRef,omitempty"`
	Resource         json.RawMessage `json:"resource,omitempty"`
}

// ProcessResult is the aggregate outcome of processing one bundle.
// Processed + Failed + Skipped always equals Total.
type ProcessResult struct {
	Processed int      `json:"processedCount"`
	Failed    int      `json:"failedCount"`
	Skipped   int      `json:"skippedCount"`
	Total     int      `json:"totalCount"`
	RecordIDs []string `json:"recordIds"`
	Errors    []string `json:"errors,omitempty"`
}
