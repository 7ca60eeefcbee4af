package utils

import (
	"fmt"
	"net/http"

	"github.com/medilink/health-exchange-api/internal/system/constants"
)

// ValidateActorHeaders checks that the acting-party headers are present on the request.
func ValidateActorHeaders(r *http.Request) error {
	actorID := r.Header.Get(constants.ActorIDHeaderName)
	actorKind := r.Header.Get(constants.ActorKindHeaderName)

	if err := ValidateRequired("actor ID", actorID); err != nil {
		return err
	}
	if len(actorID) > 255 {
		return fmt.Errorf("actor ID too long (max 255 chars)")
	}
	return ValidateRequired("actor kind", actorKind)
}

// ValidateRequired validates a field is not empty.
func ValidateRequired(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}

// ValidatePagination validates limit and offset.
func ValidatePagination(limit, offset int) error {
	if limit < 1 || limit > constants.MaxPageSize {
		return fmt.Errorf("limit must be between 1 and %d", constants.MaxPageSize)
	}
	if offset < 0 {
		return fmt.Errorf("offset must be non-negative")
	}
	return nil
}

// ValidateUUID validates UUID format.
func ValidateUUID(id string) error {
	if !IsValidUUID(id) {
		return fmt.Errorf("invalid UUID format: %s", id)
	}
	return nil
}
