package fetch

import (
	"encoding/json"
	"net/http"

	"github.com/medilink/health-exchange-api/internal/fetch/model"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

type fetchHandler struct {
	service FetchService
}

func newFetchHandler(service FetchService) *fetchHandler {
	return &fetchHandler{
		service: service,
	}
}

// fetchHealthRecords handles POST /health-records/fetch
func (h *fetchHandler) fetchHealthRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	doctorID := r.Header.Get(constants.ActorIDHeaderName)

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	var req model.FetchAPIRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	response, serviceErr := h.service.FetchHealthRecords(ctx, req, doctorID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusAccepted, response)
}

// getFetchStatus handles GET /health-records/fetch/{fetchRequestId}
func (h *fetchHandler) getFetchStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fetchRequestID := r.PathValue("fetchRequestId")

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	response, serviceErr := h.service.GetFetchStatus(ctx, fetchRequestID)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, response)
}

// cancelFetch handles POST /health-records/fetch/{fetchRequestId}/cancel
func (h *fetchHandler) cancelFetch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	fetchRequestID := r.PathValue("fetchRequestId")
	actorID := r.Header.Get(constants.ActorIDHeaderName)
	actorKind := r.Header.Get(constants.ActorKindHeaderName)

	if err := utils.ValidateActorHeaders(r); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	response, serviceErr := h.service.CancelFetch(ctx, fetchRequestID, actorID, actorKind)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, response)
}

// notify handles POST /health-records/notify (exchange-facing)
func (h *fetchHandler) notify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req model.NotifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.SendError(w, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "Invalid request body"))
		return
	}

	ack, serviceErr := h.service.HandleBundleDelivery(ctx, req, r.RemoteAddr)
	if serviceErr != nil {
		utils.SendError(w, serviceErr)
		return
	}

	utils.JSONResponse(w, http.StatusOK, ack)
}
