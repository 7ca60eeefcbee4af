package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medilink/health-exchange-api/internal/system/constants"
)

// TestComputeChecksum tests that the checksum is stable and payload-sensitive
func TestComputeChecksum(t *testing.T) {
	payload := []byte(`{"resourceType":"Observation"}`)

	first := ComputeChecksum(payload)
	second := ComputeChecksum(payload)

	assert.Equal(t, first, second)
	assert.Len(t, first, 64)
	assert.NotEqual(t, first, ComputeChecksum([]byte(`{"resourceType":"Condition"}`)))
}

// TestGenerateUUID tests UUID generation and validation round-trip
func TestGenerateUUID(t *testing.T) {
	id := GenerateUUID()
	assert.True(t, IsValidUUID(id))
	assert.NotEqual(t, id, GenerateUUID())

	assert.False(t, IsValidUUID("not-a-uuid"))
	assert.False(t, IsValidUUID(""))
}

// TestValidateActorHeaders tests the acting-party header checks
func TestValidateActorHeaders(t *testing.T) {
	r := httptest.NewRequest("GET", "/api/v1/records", nil)
	assert.Error(t, ValidateActorHeaders(r))

	r.Header.Set(constants.ActorIDHeaderName, "doctor-001")
	assert.Error(t, ValidateActorHeaders(r))

	r.Header.Set(constants.ActorKindHeaderName, "DOCTOR")
	assert.NoError(t, ValidateActorHeaders(r))
}

// TestValidatePagination tests the limit and offset bounds
func TestValidatePagination(t *testing.T) {
	assert.NoError(t, ValidatePagination(1, 0))
	assert.NoError(t, ValidatePagination(constants.MaxPageSize, 100))
	assert.Error(t, ValidatePagination(0, 0))
	assert.Error(t, ValidatePagination(constants.MaxPageSize+1, 0))
	assert.Error(t, ValidatePagination(10, -1))
}

// TestIsValidURI tests callback URL validation
func TestIsValidURI(t *testing.T) {
	assert.True(t, IsValidURI("https://app.example.com/callback"))
	assert.True(t, IsValidURI("http://localhost:8090/api/v1"))
	assert.False(t, IsValidURI("/relative/path"))
	assert.False(t, IsValidURI("example.com/no-scheme"))
	assert.False(t, IsValidURI(""))
}
