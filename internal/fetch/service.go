package fetch

import (
	"context"
	"errors"
	"fmt"

	"github.com/medilink/health-exchange-api/internal/audit"
	auditmodel "github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/consent"
	consentmodel "github.com/medilink/health-exchange-api/internal/consent/model"
	"github.com/medilink/health-exchange-api/internal/fetch/model"
	"github.com/medilink/health-exchange-api/internal/gateway"
	"github.com/medilink/health-exchange-api/internal/record"
	recordmodel "github.com/medilink/health-exchange-api/internal/record/model"
	"github.com/medilink/health-exchange-api/internal/system/config"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/log"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// FetchService defines the exported service interface
type FetchService interface {
	FetchHealthRecords(ctx context.Context, req model.FetchAPIRequest, doctorID string) (*model.FetchRequest, *serviceerror.ServiceError)
	GetFetchStatus(ctx context.Context, fetchRequestID string) (*model.FetchStatusResponse, *serviceerror.ServiceError)
	CancelFetch(ctx context.Context, fetchRequestID, actorID, actorKind string) (*model.FetchRequest, *serviceerror.ServiceError)
	HandleBundleDelivery(ctx context.Context, req model.NotifyRequest, origin string) (*model.NotifyAck, *serviceerror.ServiceError)
}

// fetchService implements the FetchService interface
type fetchService struct {
	stores    *stores.StoreRegistry
	gateway   gateway.ClientInterface
	audit     audit.AuditService
	processor record.BundleProcessor
}

func newFetchService(registry *stores.StoreRegistry, gatewayClient gateway.ClientInterface, auditService audit.AuditService, processor record.BundleProcessor) FetchService {
	return &fetchService{
		stores:    registry,
		gateway:   gatewayClient,
		audit:     auditService,
		processor: processor,
	}
}

// FetchHealthRecords creates a PROCESSING fetch request against an ACTIVE
// artifact and submits it to the exchange. The call returns as soon as the
// exchange acknowledges the submission; bundle delivery is asynchronous.
func (fetchService *fetchService) FetchHealthRecords(ctx context.Context, req model.FetchAPIRequest, doctorID string) (*model.FetchRequest, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "FetchService"))

	if err := utils.ValidateRequired("doctor ID", doctorID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if err := utils.ValidateUUID(req.ArtifactID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	consentStore := fetchService.stores.Consent.(consent.ConsentStore)

	artifact, err := consentStore.GetArtifactByID(ctx, req.ArtifactID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load artifact")
	}
	if artifact == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			"No artifact found for ID "+req.ArtifactID)
	}

	now := utils.GetCurrentTimeMillis()
	if !artifact.IsUsable(now) {
		return nil, serviceerror.CustomServiceError(serviceerror.ArtifactNotActiveError,
			fmt.Sprintf("Artifact is %s", artifact.EffectiveStatus(now)))
	}

	grant, err := consentStore.GetByID(ctx, artifact.ConsentRequestID)
	if err != nil || grant == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load consent grant")
	}

	hiTypes, dateFrom, dateTo, serviceErr := resolveScope(req, grant)
	if serviceErr != nil {
		return nil, serviceErr
	}

	request := &model.FetchRequest{
		FetchRequestID: utils.GenerateUUID(),
		ArtifactID:     artifact.ArtifactID,
		PatientID:      grant.PatientID,
		DoctorID:       doctorID,
		HiTypes:        hiTypes,
		DateFrom:       dateFrom,
		DateTo:         dateTo,
		Status:         model.StatusProcessing,
		CreatedTime:    now,
		UpdatedTime:    now,
	}

	fetchStore := fetchService.stores.Fetch.(FetchStore)

	detail := fmt.Sprintf("artifact=%s types=%v", artifact.ArtifactID, hiTypes)
	queries := []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return fetchStore.CreateWithTx(tx, request)
		},
		func(tx dbmodel.TxInterface) error {
			return fetchService.audit.AppendWithTx(tx, auditmodel.AuditEntry{
				ConsentRequestID: &artifact.ConsentRequestID,
				ArtifactID:       &artifact.ArtifactID,
				Action:           auditmodel.ActionFetchRequested,
				ActorID:          doctorID,
				ActorKind:        auditmodel.ActorKindDoctor,
				Detail:           &detail,
			})
		},
	}
	if err := fetchService.stores.ExecuteTransaction(queries); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to create fetch request")
	}

	ack, err := fetchService.gateway.SubmitHealthInfoRequest(ctx, &gateway.HealthInfoSubmission{
		ConsentArtifactID: artifact.ExternalArtifactID,
		HiTypes:           hiTypes,
		DateFrom:          dateFrom,
		DateTo:            dateTo,
		CallbackURL:       config.Get().Exchange.CallbackURL,
	})
	if err != nil {
		// The PROCESSING row stays for reconciliation; the exchange may have
		// accepted the submission before the failure surfaced.
		logger.Warn("Fetch submission to exchange failed",
			log.String("fetch_request_id", request.FetchRequestID),
			log.Error(err),
		)
		var gwErr *gateway.Error
		if errors.As(err, &gwErr) {
			return nil, serviceerror.CustomServiceError(serviceerror.GatewayError,
				fmt.Sprintf("Exchange call failed (%s): %s", gwErr.Reason, gwErr.Message))
		}
		return nil, serviceerror.CustomServiceError(serviceerror.GatewayError, err.Error())
	}

	if setErr := fetchStore.SetExternalRequestID(ctx, request.FetchRequestID, ack.RequestID, utils.GetCurrentTimeMillis()); setErr != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to store external request ID")
	}
	request.ExternalRequestID = &ack.RequestID

	return request, nil
}

// GetFetchStatus computes the progress view and the record IDs produced so
// far.
func (fetchService *fetchService) GetFetchStatus(ctx context.Context, fetchRequestID string) (*model.FetchStatusResponse, *serviceerror.ServiceError) {
	request, serviceErr := fetchService.loadFetchRequest(ctx, fetchRequestID)
	if serviceErr != nil {
		return nil, serviceErr
	}

	recordStore := fetchService.stores.Record.(record.RecordStore)

	recordIDs, err := recordStore.GetIDsByFetchRequestID(ctx, fetchRequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load produced records")
	}

	return &model.FetchStatusResponse{
		FetchRequestID: request.FetchRequestID,
		Status:         request.Status,
		Progress:       request.ComputeProgress(),
		RecordIDs:      recordIDs,
	}, nil
}

// CancelFetch marks a PROCESSING fetch as CANCELLED. Records already stored
// are retained.
func (fetchService *fetchService) CancelFetch(ctx context.Context, fetchRequestID, actorID, actorKind string) (*model.FetchRequest, *serviceerror.ServiceError) {
	request, serviceErr := fetchService.loadFetchRequest(ctx, fetchRequestID)
	if serviceErr != nil {
		return nil, serviceErr
	}

	if model.IsTerminalStatus(request.Status) {
		return nil, serviceerror.CustomServiceError(serviceerror.FetchNotCancellableError,
			fmt.Sprintf("Fetch request is already %s", request.Status))
	}

	fetchStore := fetchService.stores.Fetch.(FetchStore)

	now := utils.GetCurrentTimeMillis()
	affected, err := fetchStore.UpdateStatusFromProcessing(ctx, fetchRequestID, model.StatusCancelled, now)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to cancel fetch request")
	}
	if affected == 0 {
		return nil, serviceerror.CustomServiceError(serviceerror.FetchNotCancellableError,
			"Fetch request became terminal concurrently")
	}

	fetchService.audit.Append(ctx, auditmodel.AuditEntry{
		ArtifactID: &request.ArtifactID,
		Action:     auditmodel.ActionFetchCancelled,
		ActorID:    actorID,
		ActorKind:  actorKind,
	})

	request.Status = model.StatusCancelled
	request.UpdatedTime = now
	return request, nil
}

// HandleBundleDelivery ingests one bundle delivery from the exchange,
// applies the counter deltas atomically, and derives the terminal status
// once the exchange signals the final delivery. Deliveries for a CANCELLED
// fetch are acknowledged without ingestion.
func (fetchService *fetchService) HandleBundleDelivery(ctx context.Context, req model.NotifyRequest, origin string) (*model.NotifyAck, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("requestId", req.RequestID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error())
	}

	fetchStore := fetchService.stores.Fetch.(FetchStore)

	request, err := fetchStore.GetByExternalRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load fetch request")
	}
	if request == nil {
		detail := fmt.Sprintf("bundle delivery for unknown external request ID %s", req.RequestID)
		fetchService.audit.Append(ctx, auditmodel.AuditEntry{
			Action:    auditmodel.ActionCallbackRejected,
			ActorID:   "exchange",
			ActorKind: auditmodel.ActorKindExchange,
			Detail:    &detail,
			Origin:    &origin,
		})
		return nil, serviceerror.CustomServiceError(serviceerror.FetchNotFoundError,
			"Unknown external request ID")
	}

	if model.IsTerminalStatus(request.Status) {
		return &model.NotifyAck{
			FetchRequestID: request.FetchRequestID,
			Status:         request.Status,
			Ingested:       false,
		}, nil
	}

	result, serviceErr := fetchService.processor.ProcessBundle(ctx, &req.Bundle, request.FetchRequestID, request.PatientID)
	if serviceErr != nil {
		return nil, serviceErr
	}

	// Skipped entries are accounted as completed work: the record exists.
	now := utils.GetCurrentTimeMillis()
	if err := fetchStore.IncrementCounters(ctx, request.FetchRequestID,
		result.Total, result.Processed+result.Skipped, result.Failed, now); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to update fetch counters")
	}

	status := model.StatusProcessing
	if req.Final {
		updated, reloadErr := fetchStore.GetByID(ctx, request.FetchRequestID)
		if reloadErr != nil || updated == nil {
			return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to reload fetch request")
		}
		status = model.DeriveStatus(updated.TotalRecords, updated.CompletedRecords, updated.FailedRecords)
		if _, err := fetchStore.UpdateStatusFromProcessing(ctx, request.FetchRequestID, status, now); err != nil {
			return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to finalize fetch request")
		}
	}

	detail := fmt.Sprintf("processed=%d failed=%d skipped=%d", result.Processed, result.Failed, result.Skipped)
	fetchService.audit.Append(ctx, auditmodel.AuditEntry{
		ArtifactID: &request.ArtifactID,
		Action:     auditmodel.ActionBundleProcessed,
		ActorID:    "exchange",
		ActorKind:  auditmodel.ActorKindExchange,
		Detail:     &detail,
		Origin:     &origin,
	})

	return &model.NotifyAck{
		FetchRequestID: request.FetchRequestID,
		Status:         status,
		Ingested:       true,
		Result:         result,
	}, nil
}

func (fetchService *fetchService) loadFetchRequest(ctx context.Context, fetchRequestID string) (*model.FetchRequest, *serviceerror.ServiceError) {
	if err := utils.ValidateUUID(fetchRequestID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	fetchStore := fetchService.stores.Fetch.(FetchStore)

	request, err := fetchStore.GetByID(ctx, fetchRequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load fetch request")
	}
	if request == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.FetchNotFoundError,
			"No fetch request found for ID "+fetchRequestID)
	}
	return request, nil
}

// resolveScope validates the requested hiTypes and date range against the
// granted consent and fills unset values from the grant.
func resolveScope(req model.FetchAPIRequest, grant *consentmodel.ConsentRequest) ([]string, int64, int64, *serviceerror.ServiceError) {
	hiTypes := req.HiTypes
	if len(hiTypes) == 0 {
		hiTypes = grant.HiTypes
	} else {
		granted := make(map[string]struct{}, len(grant.HiTypes))
		for _, hiType := range grant.HiTypes {
			granted[hiType] = struct{}{}
		}
		for _, hiType := range hiTypes {
			if !recordmodel.IsValidRecordType(hiType) {
				return nil, 0, 0, serviceerror.CustomServiceError(serviceerror.ValidationError,
					"unknown hiType: "+hiType)
			}
			if _, ok := granted[hiType]; !ok {
				return nil, 0, 0, serviceerror.CustomServiceError(serviceerror.FetchScopeExceededError,
					"hiType not granted by consent: "+hiType)
			}
		}
	}

	dateFrom, dateTo := grant.DateFrom, grant.DateTo
	if req.DateRange != nil {
		if req.DateRange.From > req.DateRange.To {
			return nil, 0, 0, serviceerror.CustomServiceError(serviceerror.ValidationError,
				"dateRange.from must not be after dateRange.to")
		}
		if req.DateRange.From < grant.DateFrom || req.DateRange.To > grant.DateTo {
			return nil, 0, 0, serviceerror.CustomServiceError(serviceerror.FetchScopeExceededError,
				"date range exceeds what the consent grants")
		}
		dateFrom, dateTo = req.DateRange.From, req.DateRange.To
	}

	return hiTypes, dateFrom, dateTo, nil
}
