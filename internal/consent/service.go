package consent

import (
	"context"
	"errors"
	"fmt"

	"github.com/medilink/health-exchange-api/internal/audit"
	auditmodel "github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/consent/model"
	"github.com/medilink/health-exchange-api/internal/consent/validator"
	"github.com/medilink/health-exchange-api/internal/gateway"
	"github.com/medilink/health-exchange-api/internal/system/config"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/log"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// errStaleTransition signals that a guarded status update matched no row,
// meaning another callback won the transition race.
var errStaleTransition = errors.New("consent request no longer in expected status")

// ConsentService defines the exported service interface
type ConsentService interface {
	RequestConsent(ctx context.Context, req model.ConsentAPIRequest, doctorID string) (*model.ConsentResponse, *serviceerror.ServiceError)
	HandleStatusCallback(ctx context.Context, req model.StatusCallbackRequest, origin string) (*model.CallbackAck, *serviceerror.ServiceError)
	GetConsent(ctx context.Context, consentRequestID string) (*model.ConsentResponse, *serviceerror.ServiceError)
	ListActive(ctx context.Context, patientID string) (*model.ActiveConsentsResponse, *serviceerror.ServiceError)
	RevokeArtifact(ctx context.Context, artifactID, reason, actorID, actorKind string) (*model.RevokeResponse, *serviceerror.ServiceError)
	GetAuditTrail(ctx context.Context, consentRequestID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError)
}

// consentService implements the ConsentService interface
type consentService struct {
	stores  *stores.StoreRegistry
	gateway gateway.ClientInterface
	audit   audit.AuditService
}

func newConsentService(registry *stores.StoreRegistry, gatewayClient gateway.ClientInterface, auditService audit.AuditService) ConsentService {
	return &consentService{
		stores:  registry,
		gateway: gatewayClient,
		audit:   auditService,
	}
}

// RequestConsent validates the request, persists it in REQUESTED together
// with its audit entry, then submits it to the exchange. A gateway failure
// is surfaced to the caller but the REQUESTED row is retained for later
// reconciliation.
func (consentService *consentService) RequestConsent(ctx context.Context, req model.ConsentAPIRequest, doctorID string) (*model.ConsentResponse, *serviceerror.ServiceError) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "ConsentService"))

	if err := utils.ValidateRequired("doctor ID", doctorID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	now := utils.GetCurrentTimeMillis()
	if err := validator.ValidateConsentCreateRequest(req, now); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	request := &model.ConsentRequest{
		ConsentRequestID: utils.GenerateUUID(),
		PatientID:        req.PatientID,
		DoctorID:         doctorID,
		PurposeCode:      req.Purpose.Code,
		PurposeText:      req.Purpose.Text,
		HiTypes:          req.HiTypes,
		DateFrom:         req.DateRange.From,
		DateTo:           req.DateRange.To,
		ExpiryTime:       req.Expiry,
		Status:           model.StatusRequested,
		CreatedTime:      now,
		UpdatedTime:      now,
	}
	if req.CallbackURL != "" {
		request.CallbackURL = &req.CallbackURL
	}

	consentStore := consentService.stores.Consent.(ConsentStore)

	detail := fmt.Sprintf("purpose=%s patient=%s", req.Purpose.Code, req.PatientID)
	queries := []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			return consentStore.CreateWithTx(tx, request)
		},
		func(tx dbmodel.TxInterface) error {
			return consentService.audit.AppendWithTx(tx, auditmodel.AuditEntry{
				ConsentRequestID: &request.ConsentRequestID,
				Action:           auditmodel.ActionConsentRequested,
				ActorID:          doctorID,
				ActorKind:        auditmodel.ActorKindDoctor,
				Detail:           &detail,
			})
		},
	}
	if err := consentService.stores.ExecuteTransaction(queries); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to create consent request")
	}

	callbackURL := config.Get().Exchange.CallbackURL
	ack, err := consentService.gateway.SubmitConsentRequest(ctx, &gateway.ConsentSubmission{
		PatientRef:  req.PatientID,
		PurposeCode: req.Purpose.Code,
		PurposeText: req.Purpose.Text,
		HiTypes:     req.HiTypes,
		DateFrom:    req.DateRange.From,
		DateTo:      req.DateRange.To,
		Expiry:      req.Expiry,
		CallbackURL: callbackURL,
	})
	if err != nil {
		// The REQUESTED row stays in place; reconciliation happens through
		// the callback/poll path once the exchange is reachable again.
		logger.Warn("Consent submission to exchange failed",
			log.String("consent_request_id", request.ConsentRequestID),
			log.Error(err),
		)
		return nil, gatewayServiceError(err)
	}

	if setErr := consentStore.SetExternalRequestID(ctx, request.ConsentRequestID, ack.RequestID, utils.GetCurrentTimeMillis()); setErr != nil {
		logger.Error("Failed to store external request ID",
			log.String("consent_request_id", request.ConsentRequestID),
			log.Error(setErr),
		)
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to store external request ID")
	}
	request.ExternalRequestID = &ack.RequestID

	return &model.ConsentResponse{ConsentRequest: *request}, nil
}

// HandleStatusCallback applies an exchange status callback idempotently.
// A duplicate callback with the same terminal status is acknowledged
// without a state change; a contradictory terminal status is a conflict.
func (consentService *consentService) HandleStatusCallback(ctx context.Context, req model.StatusCallbackRequest, origin string) (*model.CallbackAck, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("requestId", req.RequestID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error())
	}
	if err := validator.ValidateCallbackStatus(req.Status); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.InvalidRequestError, err.Error())
	}

	consentStore := consentService.stores.Consent.(ConsentStore)

	request, err := consentStore.GetByExternalRequestID(ctx, req.RequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load consent request")
	}
	if request == nil {
		// Possible replay or probe. Recorded for compliance review.
		detail := fmt.Sprintf("callback for unknown external request ID %s", req.RequestID)
		consentService.audit.Append(ctx, auditmodel.AuditEntry{
			Action:    auditmodel.ActionCallbackRejected,
			ActorID:   "exchange",
			ActorKind: auditmodel.ActorKindExchange,
			Detail:    &detail,
			Origin:    originPtr(origin),
		})
		return nil, serviceerror.CustomServiceError(serviceerror.ConsentCallbackInvalidError,
			"Unknown external request ID")
	}

	if ack, serviceErr := resolveTerminal(request, req.Status); ack != nil || serviceErr != nil {
		return ack, serviceErr
	}

	now := utils.GetCurrentTimeMillis()
	if request.EffectiveStatus(now) == model.StatusExpired {
		return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
			"Consent request expired before the callback arrived")
	}

	if serviceErr := consentService.applyTransition(request, req, origin, now); serviceErr != nil {
		return nil, serviceErr
	}

	return &model.CallbackAck{
		ConsentRequestID: request.ConsentRequestID,
		Status:           req.Status,
		Applied:          true,
	}, nil
}

// resolveTerminal handles callbacks against an already-terminal request:
// same status is a no-op acknowledgement, a different terminal status is a
// conflict. Returns (nil, nil) when the request is still REQUESTED.
func resolveTerminal(request *model.ConsentRequest, callbackStatus string) (*model.CallbackAck, *serviceerror.ServiceError) {
	if !model.IsTerminalStatus(request.Status) {
		return nil, nil
	}
	if request.Status == callbackStatus {
		return &model.CallbackAck{
			ConsentRequestID: request.ConsentRequestID,
			Status:           request.Status,
			Applied:          false,
		}, nil
	}
	return nil, serviceerror.CustomServiceError(serviceerror.ConflictError,
		fmt.Sprintf("Consent request already %s", request.Status))
}

// applyTransition performs the single REQUESTED -> terminal transition, the
// artifact insert on GRANTED, and the audit entry, all in one transaction.
func (consentService *consentService) applyTransition(request *model.ConsentRequest, req model.StatusCallbackRequest, origin string, now int64) *serviceerror.ServiceError {
	consentStore := consentService.stores.Consent.(ConsentStore)

	var artifact *model.ConsentArtifact
	if req.Status == model.StatusGranted {
		if req.Artifact == nil || len(req.Artifact.Payload) == 0 {
			return serviceerror.CustomServiceError(serviceerror.InvalidRequestError,
				"GRANTED callback carries no artifact")
		}
		expiry := req.Artifact.ExpiresAt
		if expiry <= now {
			return serviceerror.CustomServiceError(serviceerror.InvalidRequestError,
				"Artifact is already expired")
		}
		artifact = &model.ConsentArtifact{
			ArtifactID:         utils.GenerateUUID(),
			ConsentRequestID:   request.ConsentRequestID,
			ExternalArtifactID: req.Artifact.ArtifactID,
			ArtifactPayload:    string(req.Artifact.Payload),
			Status:             model.ArtifactStatusActive,
			GrantedTime:        now,
			ExpiryTime:         expiry,
		}
	}

	auditAction := auditmodel.ActionConsentDenied
	if req.Status == model.StatusGranted {
		auditAction = auditmodel.ActionConsentGranted
	}

	queries := []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			affected, err := consentStore.UpdateStatusWithTx(tx,
				request.ConsentRequestID, model.StatusRequested, req.Status, now)
			if err != nil {
				return err
			}
			if affected == 0 {
				return errStaleTransition
			}
			return nil
		},
	}
	if artifact != nil {
		queries = append(queries, func(tx dbmodel.TxInterface) error {
			return consentStore.CreateArtifactWithTx(tx, artifact)
		})
		queries = append(queries, func(tx dbmodel.TxInterface) error {
			return consentService.audit.AppendWithTx(tx, auditmodel.AuditEntry{
				ConsentRequestID: &request.ConsentRequestID,
				ArtifactID:       &artifact.ArtifactID,
				Action:           auditAction,
				ActorID:          "exchange",
				ActorKind:        auditmodel.ActorKindExchange,
				Origin:           originPtr(origin),
			})
		})
	} else {
		queries = append(queries, func(tx dbmodel.TxInterface) error {
			return consentService.audit.AppendWithTx(tx, auditmodel.AuditEntry{
				ConsentRequestID: &request.ConsentRequestID,
				Action:           auditAction,
				ActorID:          "exchange",
				ActorKind:        auditmodel.ActorKindExchange,
				Origin:           originPtr(origin),
			})
		})
	}

	if err := consentService.stores.ExecuteTransaction(queries); err != nil {
		if errors.Is(err, errStaleTransition) {
			// Lost the race against a concurrent callback.
			return serviceerror.CustomServiceError(serviceerror.ConflictError,
				"Consent request transitioned concurrently")
		}
		return serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to apply status callback")
	}

	request.Status = req.Status
	request.UpdatedTime = now
	return nil
}

// GetConsent returns a consent request with its artifact, statuses derived
// at read time.
func (consentService *consentService) GetConsent(ctx context.Context, consentRequestID string) (*model.ConsentResponse, *serviceerror.ServiceError) {
	if err := utils.ValidateUUID(consentRequestID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	consentStore := consentService.stores.Consent.(ConsentStore)

	request, err := consentStore.GetByID(ctx, consentRequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load consent request")
	}
	if request == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ConsentNotFoundError,
			"No consent request found for ID "+consentRequestID)
	}

	now := utils.GetCurrentTimeMillis()
	request.Status = request.EffectiveStatus(now)
	response := &model.ConsentResponse{ConsentRequest: *request}

	artifact, err := consentStore.GetArtifactByConsentRequestID(ctx, consentRequestID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load consent artifact")
	}
	if artifact != nil {
		artifactResponse := artifact.ToAPIResponse(now)
		response.Artifact = &artifactResponse
	}

	return response, nil
}

// ListActive returns the patient's ACTIVE, unexpired artifacts. Expiry is
// evaluated against the current instant in the query itself.
func (consentService *consentService) ListActive(ctx context.Context, patientID string) (*model.ActiveConsentsResponse, *serviceerror.ServiceError) {
	if err := utils.ValidateRequired("patientId", patientID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	consentStore := consentService.stores.Consent.(ConsentStore)

	now := utils.GetCurrentTimeMillis()
	artifacts, err := consentStore.GetActiveArtifactsByPatient(ctx, patientID, now)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to list active consents")
	}

	responses := make([]model.ArtifactResponse, 0, len(artifacts))
	for _, artifact := range artifacts {
		responses = append(responses, artifact.ToAPIResponse(now))
	}

	return &model.ActiveConsentsResponse{
		Artifacts: responses,
		Total:     len(responses),
	}, nil
}

// RevokeArtifact revokes an ACTIVE, unexpired artifact and cascades the
// REVOKED status to its consent request, all in one transaction.
func (consentService *consentService) RevokeArtifact(ctx context.Context, artifactID, reason, actorID, actorKind string) (*model.RevokeResponse, *serviceerror.ServiceError) {
	if err := utils.ValidateUUID(artifactID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	if err := utils.ValidateRequired("reason", reason); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}

	consentStore := consentService.stores.Consent.(ConsentStore)

	artifact, err := consentStore.GetArtifactByID(ctx, artifactID)
	if err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to load artifact")
	}
	if artifact == nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ResourceNotFoundError,
			"No artifact found for ID "+artifactID)
	}

	now := utils.GetCurrentTimeMillis()
	if !artifact.IsUsable(now) {
		return nil, serviceerror.CustomServiceError(serviceerror.ArtifactNotActiveError,
			fmt.Sprintf("Artifact is %s", artifact.EffectiveStatus(now)))
	}

	queries := []func(tx dbmodel.TxInterface) error{
		func(tx dbmodel.TxInterface) error {
			affected, err := consentStore.RevokeArtifactWithTx(tx, artifactID, now, reason)
			if err != nil {
				return err
			}
			if affected == 0 {
				return errStaleTransition
			}
			return nil
		},
		func(tx dbmodel.TxInterface) error {
			// Cascade to the consent request; it may already be terminal for
			// another reason, so the affected count is not checked here.
			_, err := consentStore.UpdateStatusWithTx(tx,
				artifact.ConsentRequestID, model.StatusGranted, model.StatusRevoked, now)
			return err
		},
		func(tx dbmodel.TxInterface) error {
			return consentService.audit.AppendWithTx(tx, auditmodel.AuditEntry{
				ConsentRequestID: &artifact.ConsentRequestID,
				ArtifactID:       &artifact.ArtifactID,
				Action:           auditmodel.ActionConsentRevoked,
				ActorID:          actorID,
				ActorKind:        actorKind,
				Detail:           &reason,
			})
		},
	}
	if err := consentService.stores.ExecuteTransaction(queries); err != nil {
		if errors.Is(err, errStaleTransition) {
			return nil, serviceerror.CustomServiceError(serviceerror.ArtifactNotActiveError,
				"Artifact was revoked concurrently")
		}
		return nil, serviceerror.CustomServiceError(serviceerror.DatabaseError, "Failed to revoke artifact")
	}

	return &model.RevokeResponse{
		ArtifactID:  artifactID,
		Status:      model.ArtifactStatusRevoked,
		RevokedTime: now,
	}, nil
}

// GetAuditTrail returns the chronological audit trail of a consent request.
func (consentService *consentService) GetAuditTrail(ctx context.Context, consentRequestID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	if err := utils.ValidateUUID(consentRequestID); err != nil {
		return nil, serviceerror.CustomServiceError(serviceerror.ValidationError, err.Error())
	}
	return consentService.audit.GetByConsentRequestID(ctx, consentRequestID)
}

// gatewayServiceError maps a gateway failure to the service error taxonomy.
func gatewayServiceError(err error) *serviceerror.ServiceError {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) {
		return serviceerror.CustomServiceError(serviceerror.GatewayError,
			fmt.Sprintf("Exchange call failed (%s): %s", gwErr.Reason, gwErr.Message))
	}
	return serviceerror.CustomServiceError(serviceerror.GatewayError, err.Error())
}

func originPtr(origin string) *string {
	if origin == "" {
		return nil
	}
	return &origin
}
