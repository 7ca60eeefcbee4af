// Package validator validates consent API requests.
package validator

import (
	"fmt"

	"github.com/medilink/health-exchange-api/internal/consent/model"
	recordmodel "github.com/medilink/health-exchange-api/internal/record/model"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// ValidateConsentCreateRequest checks a create-consent request against the
// closed hiType taxonomy and the date/expiry constraints.
func ValidateConsentCreateRequest(req model.ConsentAPIRequest, now int64) error {
	if err := utils.ValidateRequired("patientId", req.PatientID); err != nil {
		return err
	}
	if err := utils.ValidateRequired("purpose.code", req.Purpose.Code); err != nil {
		return err
	}

	if len(req.HiTypes) == 0 {
		return fmt.Errorf("hiTypes must not be empty")
	}
	for _, hiType := range req.HiTypes {
		if !recordmodel.IsValidRecordType(hiType) {
			return fmt.Errorf("unknown hiType: %s", hiType)
		}
	}

	if req.DateRange.From <= 0 || req.DateRange.To <= 0 {
		return fmt.Errorf("dateRange.from and dateRange.to are required")
	}
	if req.DateRange.From > req.DateRange.To {
		return fmt.Errorf("dateRange.from must not be after dateRange.to")
	}

	if req.Expiry <= now {
		return fmt.Errorf("expiry must be in the future")
	}

	if req.CallbackURL != "" && !utils.IsValidURI(req.CallbackURL) {
		return fmt.Errorf("callbackUrl is not a valid URI")
	}

	return nil
}

// ValidateCallbackStatus checks the terminal status carried by a callback.
func ValidateCallbackStatus(status string) error {
	if status != model.StatusGranted && status != model.StatusDenied {
		return fmt.Errorf("callback status must be %s or %s", model.StatusGranted, model.StatusDenied)
	}
	return nil
}
