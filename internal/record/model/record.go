// Package model defines the internal health record entities and the closed
// record-type taxonomy.
package model

// RecordType is the internal record taxonomy. The set is closed; inbound
// resource kinds that do not map land on TypeOther.
type RecordType string

const (
	TypeDiagnosticReport RecordType = "DiagnosticReport"
	TypePrescription     RecordType = "Prescription"
	TypeDischargeSummary RecordType = "DischargeSummary"
	TypeObservation      RecordType = "Observation"
	TypeCondition        RecordType = "Condition"
	TypeProcedure        RecordType = "Procedure"
	TypeImmunization     RecordType = "Immunization"
	TypeWellnessRecord   RecordType = "WellnessRecord"
	TypeAllergy          RecordType = "Allergy"
	TypeOther            RecordType = "Other"
)

// resourceKindMap maps declared clinical resource kinds to the internal
// taxonomy. Unlisted kinds fall through to TypeOther.
var resourceKindMap = map[string]RecordType{
	"DiagnosticReport":    TypeDiagnosticReport,
	"MedicationRequest":   TypePrescription,
	"MedicationStatement": TypePrescription,
	"Composition":         TypeDischargeSummary,
	"DocumentReference":   TypeDischargeSummary,
	"Observation":         TypeObservation,
	"Condition":           TypeCondition,
	"Procedure":           TypeProcedure,
	"Immunization":        TypeImmunization,
	"AllergyIntolerance":  TypeAllergy,
	"WellnessRecord":      TypeWellnessRecord,
}

// MapResourceKind returns the internal record type for a declared resource
// kind.
func MapResourceKind(kind string) RecordType {
	if mapped, ok := resourceKindMap[kind]; ok {
		return mapped
	}
	return TypeOther
}

// IsValidRecordType reports whether the value belongs to the taxonomy.
func IsValidRecordType(value string) bool {
	switch RecordType(value) {
	case TypeDiagnosticReport, TypePrescription, TypeDischargeSummary,
		TypeObservation, TypeCondition, TypeProcedure, TypeImmunization,
		TypeWellnessRecord, TypeAllergy, TypeOther:
		return true
	}
	return false
}

// Record sources.
const (
	SourceExchange = "EXCHANGE"
	SourceLocal    = "LOCAL"
	SourceImported = "IMPORTED"
)

// Record statuses.
const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"
	StatusDeleted  = "DELETED"
)

// HealthRecord is a normalized clinical record. Rows are immutable once
// stored except for status transitions.
type HealthRecord struct {
	RecordID         string     `json:"recordId"`
	FetchRequestID   *string    `json:"fetchRequestId,omitempty"`
	PatientID        string     `json:"patientId"`
	ExternalRecordID string     `json:"externalRecordId"`
	RecordType       RecordType `json:"recordType"`
	RecordDate       int64      `json:"recordDate"`
	ProviderID       *string    `json:"providerId,omitempty"`
	ProviderName     *string    `json:"providerName,omitempty"`
	ProviderKind     *string    `json:"providerKind,omitempty"`
	Payload          string     `json:"payload"`
	Source           string     `json:"source"`
	Status           string     `json:"status"`
	Checksum         string     `json:"checksum"`
	EncryptionKeyRef *string    `json:"encryptionKeyRef,omitempty"`
	CreatedTime      int64      `json:"createdTime"`
	UpdatedTime      int64      `json:"updatedTime"`
}

// RecordSummary is the list view of a record, payload omitted.
type RecordSummary struct {
	RecordID         string     `json:"recordId"`
	PatientID        string     `json:"patientId"`
	ExternalRecordID string     `json:"externalRecordId"`
	RecordType       RecordType `json:"recordType"`
	RecordDate       int64      `json:"recordDate"`
	ProviderName     *string    `json:"providerName,omitempty"`
	Source           string     `json:"source"`
	Status           string     `json:"status"`
	CreatedTime      int64      `json:"createdTime"`
}

// ToSummary converts a record to its list view.
func (r *HealthRecord) ToSummary() RecordSummary {
	return RecordSummary{
		RecordID:         r.RecordID,
		PatientID:        r.PatientID,
		ExternalRecordID: r.ExternalRecordID,
		RecordType:       r.RecordType,
		RecordDate:       r.RecordDate,
		ProviderName:     r.ProviderName,
		Source:           r.Source,
		Status:           r.Status,
		CreatedTime:      r.CreatedTime,
	}
}

// RecordListResponse is the paginated list response.
type RecordListResponse struct {
	Records []RecordSummary `json:"records"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
