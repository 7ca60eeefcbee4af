package utils

import (
	"encoding/json"
	"net/http"

	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/error/apierror"
	"github.com/medilink/health-exchange-api/internal/system/error/codes"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
)

func DecodeJSONBody(r *http.Request, v interface{}) error {
	return json.NewDecoder(r.Body).Decode(v)
}

func JSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// SendError writes a ServiceError as an HTTP response with the appropriate status code.
func SendError(w http.ResponseWriter, err *serviceerror.ServiceError) {
	statusCode := http.StatusInternalServerError
	switch err.Type {
	case serviceerror.ClientErrorType:
		switch err.Code {
		case codes.ResourceNotFound, codes.ConsentNotFound, codes.FetchNotFound,
			codes.RecordNotFound, codes.ConsentCallbackInvalid:
			statusCode = http.StatusNotFound
		case codes.ConflictError, codes.ArtifactNotActive, codes.FetchNotCancellable:
			statusCode = http.StatusConflict
		default:
			statusCode = http.StatusBadRequest
		}
	case serviceerror.ServerErrorType:
		if err.Code == codes.GatewayError {
			statusCode = http.StatusBadGateway
		}
	}

	errorResponse := apierror.ErrorResponse{
		Code:        err.Error,
		Description: err.ErrorDescription,
	}

	w.Header().Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(errorResponse)
}
