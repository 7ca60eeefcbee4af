package handlers

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/medilink/health-exchange-api/internal/record"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// RecordHandler handles health-record access requests
type RecordHandler struct {
	recordService record.RecordService
}

// NewRecordHandler creates a new record handler instance
func NewRecordHandler(recordService record.RecordService) *RecordHandler {
	return &RecordHandler{
		recordService: recordService,
	}
}

// ListRecords handles GET /records
func (h *RecordHandler) ListRecords(c *gin.Context) {
	if err := utils.ValidateActorHeaders(c.Request); err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	patientID := c.Query("patientId")
	recordType := c.Query("type")

	from, err := parseInt64Query(c, "from", 0)
	if err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "from must be epoch milliseconds"))
		return
	}
	to, err := parseInt64Query(c, "to", 0)
	if err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "to must be epoch milliseconds"))
		return
	}
	limit, err := parseIntQuery(c, "limit", constants.DefaultPageSize)
	if err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "limit must be an integer"))
		return
	}
	offset, err := parseIntQuery(c, "offset", 0)
	if err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, "offset must be an integer"))
		return
	}

	response, serviceErr := h.recordService.ListRecords(c.Request.Context(), patientID, recordType, from, to, limit, offset)
	if serviceErr != nil {
		utils.SendError(c.Writer, serviceErr)
		return
	}

	c.JSON(200, response)
}

// GetRecord handles GET /records/:recordId
func (h *RecordHandler) GetRecord(c *gin.Context) {
	if err := utils.ValidateActorHeaders(c.Request); err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	recordID := c.Param("recordId")
	actorID := c.GetHeader(constants.ActorIDHeaderName)
	actorKind := c.GetHeader(constants.ActorKindHeaderName)

	response, serviceErr := h.recordService.GetRecord(c.Request.Context(), recordID, actorID, actorKind, c.ClientIP())
	if serviceErr != nil {
		utils.SendError(c.Writer, serviceErr)
		return
	}

	c.JSON(200, response)
}

// ArchiveRecord handles POST /records/:recordId/archive
func (h *RecordHandler) ArchiveRecord(c *gin.Context) {
	h.transition(c, h.recordService.ArchiveRecord)
}

// RestoreRecord handles POST /records/:recordId/restore
func (h *RecordHandler) RestoreRecord(c *gin.Context) {
	h.transition(c, h.recordService.RestoreRecord)
}

// DeleteRecord handles DELETE /records/:recordId
func (h *RecordHandler) DeleteRecord(c *gin.Context) {
	if err := utils.ValidateActorHeaders(c.Request); err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	recordID := c.Param("recordId")
	actorID := c.GetHeader(constants.ActorIDHeaderName)
	actorKind := c.GetHeader(constants.ActorKindHeaderName)

	if serviceErr := h.recordService.DeleteRecord(c.Request.Context(), recordID, actorID, actorKind); serviceErr != nil {
		utils.SendError(c.Writer, serviceErr)
		return
	}

	c.Status(204)
}

// GetAccessLog handles GET /records/:recordId/access-log
func (h *RecordHandler) GetAccessLog(c *gin.Context) {
	if err := utils.ValidateActorHeaders(c.Request); err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	recordID := c.Param("recordId")

	logs, serviceErr := h.recordService.GetAccessLog(c.Request.Context(), recordID)
	if serviceErr != nil {
		utils.SendError(c.Writer, serviceErr)
		return
	}

	c.JSON(200, gin.H{
		"entries": logs,
		"total":   len(logs),
	})
}

type transitionFunc func(ctx context.Context, recordID, actorID, actorKind string) *serviceerror.ServiceError

func (h *RecordHandler) transition(c *gin.Context, fn transitionFunc) {
	if err := utils.ValidateActorHeaders(c.Request); err != nil {
		utils.SendError(c.Writer, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error()))
		return
	}

	recordID := c.Param("recordId")
	actorID := c.GetHeader(constants.ActorIDHeaderName)
	actorKind := c.GetHeader(constants.ActorKindHeaderName)

	if serviceErr := fn(c.Request.Context(), recordID, actorID, actorKind); serviceErr != nil {
		utils.SendError(c.Writer, serviceErr)
		return
	}

	c.Status(204)
}

func parseIntQuery(c *gin.Context, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}

func parseInt64Query(c *gin.Context, name string, fallback int64) (int64, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.ParseInt(raw, 10, 64)
}
