package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestMapResourceKind tests the inbound kind mapping onto the closed taxonomy
func TestMapResourceKind(t *testing.T) {
	tests := []struct {
		kind string
		want RecordType
	}{
		{"DiagnosticReport", TypeDiagnosticReport},
		{"MedicationRequest", TypePrescription},
		{"MedicationStatement", TypePrescription},
		{"Composition", TypeDischargeSummary},
		{"DocumentReference", TypeDischargeSummary},
		{"AllergyIntolerance", TypeAllergy},
		{"Observation", TypeObservation},
		{"CarePlan", TypeOther},
		{"", TypeOther},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, MapResourceKind(tc.kind), tc.kind)
	}
}

// TestIsValidRecordType tests membership of the taxonomy
func TestIsValidRecordType(t *testing.T) {
	assert.True(t, IsValidRecordType("Prescription"))
	assert.True(t, IsValidRecordType("Other"))
	assert.False(t, IsValidRecordType("MedicationRequest"))
	assert.False(t, IsValidRecordType("prescription"))
	assert.False(t, IsValidRecordType(""))
}
