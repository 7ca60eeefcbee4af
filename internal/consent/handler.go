package consent

import (
	"encoding/json"
	"net/http"

	auditmodel "github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/consent/model"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

type consentHandler struct {
	service ConsentService
}

func newConsentHandler(service ConsentService) *consentHandler {
	return &consentHandler{
		service: service,
	}
}

// requestConsent handles POST /consents
func (h *consentHandler) requestConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctorID := r.Header.Get(constants.ActorIDHeaderName)

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	var req model.ConsentAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	response, serviceErr := h.service.RequestConsent(ctx, req, doctorID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusCreated, response)
}

// statusCallback handles POST /consents/callback (exchange-facing)
func (h *consentHandler) statusCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.StatusCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	ack, serviceErr := h.service.HandleStatusCallback(ctx, req, r.RemoteAddr)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, ack)
}

// getConsent handles GET /consents/{consentRequestId}
func (h *consentHandler) getConsent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentRequestID := r.PathValue("consentRequestId")

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	response, serviceErr := h.service.GetConsent(ctx, consentRequestID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, response)
}

// listActive handles GET /consents/active
func (h *consentHandler) listActive(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	patientID := r.URL.Query().Get("patientId")

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	response, serviceErr := h.service.ListActive(ctx, patientID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, response)
}

// revokeArtifact handles POST /consents/artifacts/{artifactId}/revoke
func (h *consentHandler) revokeArtifact(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	artifactID := r.PathValue("artifactId")
	actorID := r.Header.Get(constants.ActorIDHeaderName)
	actorKind := r.Header.Get(constants.ActorKindHeaderName)

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}
	if actorKind == "" {
		actorKind = auditmodel.ActorKindSystem
	}

	var req model.RevokeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	response, serviceErr := h.service.RevokeArtifact(ctx, artifactID, req.Reason, actorID, actorKind)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, response)
}

// getAuditTrail handles GET /consents/{consentRequestId}/audit
func (h *consentHandler) getAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	consentRequestID := r.PathValue("consentRequestId")

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	entries, serviceErr := h.service.GetAuditTrail(ctx, consentRequestID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	response := auditmodel.AuditQueryResponse{
		Entries: entries,
		Total:   len(entries),
	}

	utils.JSONResponse(w, http.StatusOK, response)
}
