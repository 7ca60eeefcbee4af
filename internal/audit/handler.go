package audit

import (
	"encoding/json"
	"net/http"

	"github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

type auditHandler struct {
	service AuditService
}

func newAuditHandler(service AuditService) *auditHandler {
	return &auditHandler{
		service: service,
	}
}

// queryAudit handles GET /audit
func (h *auditHandler) queryAudit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	query := r.URL.Query()

	var entries []model.AuditEntry
	var serviceErr *serviceerror.ServiceError

	switch {
	case query.Get("consentRequestId") != "":
		entries, serviceErr = h.service.GetByConsentRequestID(ctx, query.Get("consentRequestId"))
	case query.Get("artifactId") != "":
		entries, serviceErr = h.service.GetByArtifactID(ctx, query.Get("artifactId"))
	case query.Get("recordId") != "":
		entries, serviceErr = h.service.GetByRecordID(ctx, query.Get("recordId"))
	case query.Get("actorId") != "":
		entries, serviceErr = h.service.GetByActorID(ctx, query.Get("actorId"))
	default:
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError,
			"One of consentRequestId, artifactId, recordId or actorId is required"))
		return
	}

	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	response := model.AuditQueryResponse{
		Entries: entries,
		Total:   len(entries),
	}

	w.Header().Set(constants.ContentTypeHeaderName, constants.ContentTypeJSON)
	json.NewEncoder(w).Encode(response)
}
