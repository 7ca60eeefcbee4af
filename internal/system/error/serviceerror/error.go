// Package serviceerror defines the service error taxonomy shared by all
// modules.
package serviceerror

import "github.com/medilink/health-exchange-api/internal/system/error/codes"

type ServiceErrorType string

const (
	ClientErrorType ServiceErrorType = "client_error"
	ServerErrorType ServiceErrorType = "server_error"
)

type ServiceError struct {
	Code             string           `json:"code"`
	Type             ServiceErrorType `json:"type"`
	Error            string           `json:"error"`
	ErrorDescription string           `json:"error_description,omitempty"`
}

var (
	InternalServerError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.InternalServerError,
		Error:            "internal_server_error",
		ErrorDescription: "An unexpected error occurred",
	}

	DatabaseError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.DatabaseError,
		Error:            "database_error",
		ErrorDescription: "A database error occurred",
	}

	GatewayError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.GatewayError,
		Error:            "gateway_error",
		ErrorDescription: "The health data exchange could not be reached",
	}

	IntegrityError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.IntegrityError,
		Error:            "integrity_error",
		ErrorDescription: "Stored payload failed integrity verification",
	}

	InvalidRequestError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.InvalidRequest,
		Error:            "invalid_request",
		ErrorDescription: "The request is invalid",
	}

	ValidationError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ValidationError,
		Error:            "validation_error",
		ErrorDescription: "Validation failed",
	}

	ResourceNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ResourceNotFound,
		Error:            "resource_not_found",
		ErrorDescription: "Resource not found",
	}

	ConflictError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ConflictError,
		Error:            "conflict",
		ErrorDescription: "Request conflicts with current state",
	}

	// Consent module errors

	ConsentNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ConsentNotFound,
		Error:            "consent_not_found",
		ErrorDescription: "Consent request not found",
	}

	ConsentCallbackInvalidError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ConsentCallbackInvalid,
		Error:            "consent_callback_invalid",
		ErrorDescription: "Callback does not reference a known consent request",
	}

	ArtifactNotActiveError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.ArtifactNotActive,
		Error:            "artifact_not_active",
		ErrorDescription: "Consent artifact is not active",
	}

	// Fetch module errors

	FetchNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.FetchNotFound,
		Error:            "fetch_request_not_found",
		ErrorDescription: "Fetch request not found",
	}

	FetchNotCancellableError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.FetchNotCancellable,
		Error:            "fetch_not_cancellable",
		ErrorDescription: "Fetch request is already terminal",
	}

	FetchScopeExceededError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.FetchScopeExceeded,
		Error:            "fetch_scope_exceeded",
		ErrorDescription: "Requested scope exceeds what the consent grants",
	}

	// Record module errors

	RecordNotFoundError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.RecordNotFound,
		Error:            "record_not_found",
		ErrorDescription: "Health record not found",
	}

	BundleInvalidError = ServiceError{
		Type:             ClientErrorType,
		Code:             codes.BundleInvalid,
		Error:            "bundle_invalid",
		ErrorDescription: "Bundle failed outer-shape validation",
	}

	RecordIntegrityFailedError = ServiceError{
		Type:             ServerErrorType,
		Code:             codes.RecordIntegrityFailed,
		Error:            "record_integrity_failed",
		ErrorDescription: "Stored record failed checksum verification",
	}
)

func CustomServiceError(baseError ServiceError, description string) *ServiceError {
	return &ServiceError{
		Type:             baseError.Type,
		Code:             baseError.Code,
		Error:            baseError.Error,
		ErrorDescription: description,
	}
}
