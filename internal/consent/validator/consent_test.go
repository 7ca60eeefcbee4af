package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/medilink/health-exchange-api/internal/consent/model"
)

const testNow = int64(1_700_000_000_000)

func validRequest() model.ConsentAPIRequest {
	return model.ConsentAPIRequest{
		PatientID: "patient-001",
		Purpose:   model.Purpose{Code: "CAREMGT"},
		HiTypes:   []string{"DiagnosticReport"},
		DateRange: model.DateRange{From: testNow - 1000, To: testNow},
		Expiry:    testNow + 1000,
	}
}

// TestValidateConsentCreateRequest tests create-consent validation rules
func TestValidateConsentCreateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*model.ConsentAPIRequest)
		wantErr string
	}{
		{"valid", func(r *model.ConsentAPIRequest) {}, ""},
		{"missing patient", func(r *model.ConsentAPIRequest) { r.PatientID = "" }, "patientId"},
		{"missing purpose code", func(r *model.ConsentAPIRequest) { r.Purpose.Code = "" }, "purpose.code"},
		{"empty hiTypes", func(r *model.ConsentAPIRequest) { r.HiTypes = nil }, "hiTypes"},
		{"unknown hiType", func(r *model.ConsentAPIRequest) { r.HiTypes = []string{"Telepathy"} }, "unknown hiType"},
		{"missing date range", func(r *model.ConsentAPIRequest) { r.DateRange = model.DateRange{} }, "dateRange"},
		{"inverted date range", func(r *model.ConsentAPIRequest) {
			r.DateRange = model.DateRange{From: testNow, To: testNow - 1000}
		}, "dateRange.from"},
		{"expiry in the past", func(r *model.ConsentAPIRequest) { r.Expiry = testNow - 1 }, "expiry"},
		{"bad callback URL", func(r *model.ConsentAPIRequest) { r.CallbackURL = "not a uri" }, "callbackUrl"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := validRequest()
			tc.mutate(&req)

			err := ValidateConsentCreateRequest(req, testNow)
			if tc.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
				assert.Contains(t, err.Error(), tc.wantErr)
			}
		})
	}
}

// TestValidateCallbackStatus tests the allowed callback statuses
func TestValidateCallbackStatus(t *testing.T) {
	assert.NoError(t, ValidateCallbackStatus(model.StatusGranted))
	assert.NoError(t, ValidateCallbackStatus(model.StatusDenied))
	assert.Error(t, ValidateCallbackStatus(model.StatusRevoked))
	assert.Error(t, ValidateCallbackStatus(""))
	assert.Error(t, ValidateCallbackStatus("granted"))
}
