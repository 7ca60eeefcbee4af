package consent

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/medilink/health-exchange-api/internal/audit"
	auditmodel "github.com/medilink/health-exchange-api/internal/audit/model"
	"github.com/medilink/health-exchange-api/internal/consent/model"
	"github.com/medilink/health-exchange-api/internal/gateway"
	"github.com/medilink/health-exchange-api/internal/system/config"
	dbmodel "github.com/medilink/health-exchange-api/internal/system/database/model"
	"github.com/medilink/health-exchange-api/internal/system/error/codes"
	"github.com/medilink/health-exchange-api/internal/system/error/serviceerror"
	"github.com/medilink/health-exchange-api/internal/system/stores"
	"github.com/medilink/health-exchange-api/internal/system/utils"
)

// --- test doubles ---

type fakeResult struct{}

func (fakeResult) LastInsertId() (int64, error) { return 0, nil }
func (fakeResult) RowsAffected() (int64, error) { return 1, nil }

type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Exec(query string, args ...interface{}) (sql.Result, error) {
	return fakeResult{}, nil
}
func (t *fakeTx) Query(query string, args ...interface{}) (*sql.Rows, error) { return nil, nil }
func (t *fakeTx) Commit() error { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

type fakeDBClient struct {
	tx *fakeTx
}

func (c *fakeDBClient) Query(query dbmodel.DBQueryInterface, args ...interface{}) ([]map[string]interface{}, error) {
	return nil, nil
}
func (c *fakeDBClient) Execute(query dbmodel.DBQueryInterface, args ...interface{}) (int64, error) {
	return 1, nil
}
func (c *fakeDBClient) BeginTx() (dbmodel.TxInterface, error) {
	c.tx = &fakeTx{}
	return c.tx, nil
}

type fakeConsentStore struct {
	request  *model.ConsentRequest
	artifact *model.ConsentArtifact

	created            *model.ConsentRequest
	createdArtifact    *model.ConsentArtifact
	externalID         string
	updateAffected     int64
	updateFromStatus   string
	updateToStatus     string
	revokeAffected     int64
	revokedArtifactID  string
	activeArtifacts    []model.ConsentArtifact
}

func (s *fakeConsentStore) Create(ctx context.Context, request *model.ConsentRequest) error {
	s.created = request
	return nil
}
func (s *fakeConsentStore) GetByID(ctx context.Context, consentRequestID string) (*model.ConsentRequest, error) {
	return s.request, nil
}
func (s *fakeConsentStore) GetByExternalRequestID(ctx context.Context, externalRequestID string) (*model.ConsentRequest, error) {
	return s.request, nil
}
func (s *fakeConsentStore) SetExternalRequestID(ctx context.Context, consentRequestID, externalRequestID string, updatedTime int64) error {
	s.externalID = externalRequestID
	return nil
}
func (s *fakeConsentStore) GetArtifactByID(ctx context.Context, artifactID string) (*model.ConsentArtifact, error) {
	return s.artifact, nil
}
func (s *fakeConsentStore) GetArtifactByConsentRequestID(ctx context.Context, consentRequestID string) (*model.ConsentArtifact, error) {
	return s.artifact, nil
}
func (s *fakeConsentStore) GetActiveArtifactsByPatient(ctx context.Context, patientID string, now int64) ([]model.ConsentArtifact, error) {
	return s.activeArtifacts, nil
}
func (s *fakeConsentStore) CreateWithTx(tx dbmodel.TxInterface, request *model.ConsentRequest) error {
	s.created = request
	return nil
}
func (s *fakeConsentStore) UpdateStatusWithTx(tx dbmodel.TxInterface, consentRequestID, fromStatus, toStatus string, updatedTime int64) (int64, error) {
	s.updateFromStatus = fromStatus
	s.updateToStatus = toStatus
	return s.updateAffected, nil
}
func (s *fakeConsentStore) CreateArtifactWithTx(tx dbmodel.TxInterface, artifact *model.ConsentArtifact) error {
	s.createdArtifact = artifact
	return nil
}
func (s *fakeConsentStore) RevokeArtifactWithTx(tx dbmodel.TxInterface, artifactID string, revokedTime int64, reason string) (int64, error) {
	s.revokedArtifactID = artifactID
	return s.revokeAffected, nil
}

type fakeAuditService struct {
	appended []auditmodel.AuditEntry
}

func (a *fakeAuditService) Append(ctx context.Context, entry auditmodel.AuditEntry) {
	a.appended = append(a.appended, entry)
}
func (a *fakeAuditService) AppendWithTx(tx dbmodel.TxInterface, entry auditmodel.AuditEntry) error {
	a.appended = append(a.appended, entry)
	return nil
}
func (a *fakeAuditService) GetByConsentRequestID(ctx context.Context, consentRequestID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.appended, nil
}
func (a *fakeAuditService) GetByArtifactID(ctx context.Context, artifactID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.appended, nil
}
func (a *fakeAuditService) GetByRecordID(ctx context.Context, recordID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.appended, nil
}
func (a *fakeAuditService) GetByActorID(ctx context.Context, actorID string) ([]auditmodel.AuditEntry, *serviceerror.ServiceError) {
	return a.appended, nil
}

type fakeGatewayClient struct {
	consentAck  *gateway.SubmissionAck
	consentErr  error
	submissions []*gateway.ConsentSubmission
}

func (g *fakeGatewayClient) SubmitConsentRequest(ctx context.Context, submission *gateway.ConsentSubmission) (*gateway.SubmissionAck, error) {
	g.submissions = append(g.submissions, submission)
	if g.consentErr != nil {
		return nil, g.consentErr
	}
	return g.consentAck, nil
}
func (g *fakeGatewayClient) SubmitHealthInfoRequest(ctx context.Context, submission *gateway.HealthInfoSubmission) (*gateway.SubmissionAck, error) {
	return nil, nil
}

func newTestService(store *fakeConsentStore, gatewayClient gateway.ClientInterface, auditSvc audit.AuditService) ConsentService {
	registry := stores.NewStoreRegistry(&fakeDBClient{})
	registry.Consent = store
	return newConsentService(registry, gatewayClient, auditSvc)
}

func validCreateRequest(now int64) model.ConsentAPIRequest {
	return model.ConsentAPIRequest{
		PatientID: "patient-001",
		Purpose:   model.Purpose{Code: "CAREMGT", Text: "Care management"},
		HiTypes:   []string{"DiagnosticReport", "Prescription"},
		DateRange: model.DateRange{From: now - 90*24*3600*1000, To: now},
		Expiry:    now + 24*3600*1000,
	}
}

func init() {
	config.SetGlobal(&config.Config{
		Exchange: config.ExchangeConfig{
			CallbackURL: "https://app.example.com/api/v1",
		},
	})
}

// --- tests ---

// TestRequestConsent_Success tests the happy path: the request is persisted,
// submitted, and the exchange request ID stored
func TestRequestConsent_Success(t *testing.T) {
	store := &fakeConsentStore{}
	gatewayClient := &fakeGatewayClient{consentAck: &gateway.SubmissionAck{RequestID: "ext-req-1"}}
	auditSvc := &fakeAuditService{}
	service := newTestService(store, gatewayClient, auditSvc)

	now := utils.GetCurrentTimeMillis()
	response, serviceErr := service.RequestConsent(context.Background(), validCreateRequest(now), "doctor-001")

	require.Nil(t, serviceErr)
	require.NotNil(t, store.created)
	assert.Equal(t, model.StatusRequested, store.created.Status)
	assert.Equal(t, "ext-req-1", store.externalID)
	assert.Equal(t, "ext-req-1", *response.ExternalRequestID)
	require.Len(t, auditSvc.appended, 1)
	assert.Equal(t, auditmodel.ActionConsentRequested, auditSvc.appended[0].Action)
	require.Len(t, gatewayClient.submissions, 1)
	assert.Equal(t, "https://app.example.com/api/v1", gatewayClient.submissions[0].CallbackURL)
}

// TestRequestConsent_GatewayFailureKeepsRequest tests that a gateway failure
// surfaces as an error while the REQUESTED row is retained
func TestRequestConsent_GatewayFailureKeepsRequest(t *testing.T) {
	store := &fakeConsentStore{}
	gatewayClient := &fakeGatewayClient{consentErr: &gateway.Error{Reason: gateway.ReasonTimeout, Message: "timed out"}}
	service := newTestService(store, gatewayClient, &fakeAuditService{})

	now := utils.GetCurrentTimeMillis()
	response, serviceErr := service.RequestConsent(context.Background(), validCreateRequest(now), "doctor-001")

	require.NotNil(t, serviceErr)
	assert.Nil(t, response)
	assert.Equal(t, codes.GatewayError, serviceErr.Code)
	require.NotNil(t, store.created)
	assert.Equal(t, model.StatusRequested, store.created.Status)
	assert.Empty(t, store.externalID)
}

// TestRequestConsent_RejectsUnknownHiType tests validation of the closed
// record type taxonomy
func TestRequestConsent_RejectsUnknownHiType(t *testing.T) {
	service := newTestService(&fakeConsentStore{}, &fakeGatewayClient{}, &fakeAuditService{})

	now := utils.GetCurrentTimeMillis()
	req := validCreateRequest(now)
	req.HiTypes = []string{"Telepathy"}

	_, serviceErr := service.RequestConsent(context.Background(), req, "doctor-001")

	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ValidationError, serviceErr.Code)
}

// TestHandleStatusCallback_GrantCreatesArtifact tests that a GRANTED callback
// transitions the request and stores an ACTIVE artifact
func TestHandleStatusCallback_GrantCreatesArtifact(t *testing.T) {
	now := utils.GetCurrentTimeMillis()
	externalID := "ext-req-1"
	store := &fakeConsentStore{
		request: &model.ConsentRequest{
			ConsentRequestID:  utils.GenerateUUID(),
			ExternalRequestID: &externalID,
			Status:            model.StatusRequested,
			ExpiryTime:        now + 3600_000,
		},
		updateAffected: 1,
	}
	auditSvc := &fakeAuditService{}
	service := newTestService(store, &fakeGatewayClient{}, auditSvc)

	ack, serviceErr := service.HandleStatusCallback(context.Background(), model.StatusCallbackRequest{
		RequestID: externalID,
		Status:    model.StatusGranted,
		Artifact: &model.CallbackArtifact{
			ArtifactID: "ext-artifact-1",
			Payload:    []byte(`{"scope":"full"}`),
			ExpiresAt:  now + 7200_000,
		},
	}, "203.0.113.9")

	require.Nil(t, serviceErr)
	assert.True(t, ack.Applied)
	assert.Equal(t, model.StatusGranted, ack.Status)
	require.NotNil(t, store.createdArtifact)
	assert.Equal(t, model.ArtifactStatusActive, store.createdArtifact.Status)
	assert.Equal(t, "ext-artifact-1", store.createdArtifact.ExternalArtifactID)
	require.Len(t, auditSvc.appended, 1)
	assert.Equal(t, auditmodel.ActionConsentGranted, auditSvc.appended[0].Action)
	assert.Equal(t, auditmodel.ActorKindExchange, auditSvc.appended[0].ActorKind)
}

// TestHandleStatusCallback_DuplicateTerminalIsNoOp tests that a replayed
// callback with the same terminal status acknowledges without applying
func TestHandleStatusCallback_DuplicateTerminalIsNoOp(t *testing.T) {
	externalID := "ext-req-1"
	store := &fakeConsentStore{
		request: &model.ConsentRequest{
			ConsentRequestID:  utils.GenerateUUID(),
			ExternalRequestID: &externalID,
			Status:            model.StatusGranted,
		},
	}
	service := newTestService(store, &fakeGatewayClient{}, &fakeAuditService{})

	ack, serviceErr := service.HandleStatusCallback(context.Background(), model.StatusCallbackRequest{
		RequestID: externalID,
		Status:    model.StatusGranted,
	}, "")

	require.Nil(t, serviceErr)
	assert.False(t, ack.Applied)
	assert.Equal(t, model.StatusGranted, ack.Status)
	assert.Nil(t, store.createdArtifact)
}

// TestHandleStatusCallback_ConflictingTerminal tests that a contradictory
// terminal status is rejected as a conflict
func TestHandleStatusCallback_ConflictingTerminal(t *testing.T) {
	externalID := "ext-req-1"
	store := &fakeConsentStore{
		request: &model.ConsentRequest{
			ConsentRequestID:  utils.GenerateUUID(),
			ExternalRequestID: &externalID,
			Status:            model.StatusDenied,
		},
	}
	service := newTestService(store, &fakeGatewayClient{}, &fakeAuditService{})

	ack, serviceErr := service.HandleStatusCallback(context.Background(), model.StatusCallbackRequest{
		RequestID: externalID,
		Status:    model.StatusGranted,
		Artifact: &model.CallbackArtifact{
			ArtifactID: "ext-artifact-1",
			Payload:    []byte(`{}`),
			ExpiresAt:  utils.GetCurrentTimeMillis() + 3600_000,
		},
	}, "")

	require.NotNil(t, serviceErr)
	assert.Nil(t, ack)
	assert.Equal(t, codes.ConflictError, serviceErr.Code)
}

// TestHandleStatusCallback_UnknownExternalID tests that a callback for an
// unknown request is rejected and recorded in the audit trail
func TestHandleStatusCallback_UnknownExternalID(t *testing.T) {
	store := &fakeConsentStore{request: nil}
	auditSvc := &fakeAuditService{}
	service := newTestService(store, &fakeGatewayClient{}, auditSvc)

	ack, serviceErr := service.HandleStatusCallback(context.Background(), model.StatusCallbackRequest{
		RequestID: "ext-unknown",
		Status:    model.StatusDenied,
	}, "203.0.113.9")

	require.NotNil(t, serviceErr)
	assert.Nil(t, ack)
	assert.Equal(t, codes.ConsentCallbackInvalid, serviceErr.Code)
	require.Len(t, auditSvc.appended, 1)
	assert.Equal(t, auditmodel.ActionCallbackRejected, auditSvc.appended[0].Action)
}

// TestHandleStatusCallback_ExpiredRequest tests that a callback arriving
// after the request expiry is a conflict
func TestHandleStatusCallback_ExpiredRequest(t *testing.T) {
	externalID := "ext-req-1"
	store := &fakeConsentStore{
		request: &model.ConsentRequest{
			ConsentRequestID:  utils.GenerateUUID(),
			ExternalRequestID: &externalID,
			Status:            model.StatusRequested,
			ExpiryTime:        utils.GetCurrentTimeMillis() - 1000,
		},
	}
	service := newTestService(store, &fakeGatewayClient{}, &fakeAuditService{})

	_, serviceErr := service.HandleStatusCallback(context.Background(), model.StatusCallbackRequest{
		RequestID: externalID,
		Status:    model.StatusDenied,
	}, "")

	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ConflictError, serviceErr.Code)
}

// TestHandleStatusCallback_LostTransitionRace tests that a guarded update
// matching no row surfaces as a conflict
func TestHandleStatusCallback_LostTransitionRace(t *testing.T) {
	externalID := "ext-req-1"
	store := &fakeConsentStore{
		request: &model.ConsentRequest{
			ConsentRequestID:  utils.GenerateUUID(),
			ExternalRequestID: &externalID,
			Status:            model.StatusRequested,
			ExpiryTime:        utils.GetCurrentTimeMillis() + 3600_000,
		},
		updateAffected: 0,
	}
	service := newTestService(store, &fakeGatewayClient{}, &fakeAuditService{})

	_, serviceErr := service.HandleStatusCallback(context.Background(), model.StatusCallbackRequest{
		RequestID: externalID,
		Status:    model.StatusDenied,
	}, "")

	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ConflictError, serviceErr.Code)
}

// TestRevokeArtifact_CascadesToRequest tests revocation of an active
// artifact and the cascade to its consent request
func TestRevokeArtifact_CascadesToRequest(t *testing.T) {
	now := utils.GetCurrentTimeMillis()
	artifactID := utils.GenerateUUID()
	store := &fakeConsentStore{
		artifact: &model.ConsentArtifact{
			ArtifactID:       artifactID,
			ConsentRequestID: utils.GenerateUUID(),
			Status:           model.ArtifactStatusActive,
			ExpiryTime:       now + 3600_000,
		},
		updateAffected: 1,
		revokeAffected: 1,
	}
	auditSvc := &fakeAuditService{}
	service := newTestService(store, &fakeGatewayClient{}, auditSvc)

	response, serviceErr := service.RevokeArtifact(context.Background(), artifactID, "patient request", "patient-001", auditmodel.ActorKindPatient)

	require.Nil(t, serviceErr)
	assert.Equal(t, model.ArtifactStatusRevoked, response.Status)
	assert.Equal(t, artifactID, store.revokedArtifactID)
	assert.Equal(t, model.StatusGranted, store.updateFromStatus)
	assert.Equal(t, model.StatusRevoked, store.updateToStatus)
	require.Len(t, auditSvc.appended, 1)
	assert.Equal(t, auditmodel.ActionConsentRevoked, auditSvc.appended[0].Action)
}

// TestRevokeArtifact_RejectsExpired tests that an expired artifact cannot
// be revoked
func TestRevokeArtifact_RejectsExpired(t *testing.T) {
	artifactID := utils.GenerateUUID()
	store := &fakeConsentStore{
		artifact: &model.ConsentArtifact{
			ArtifactID: artifactID,
			Status:     model.ArtifactStatusActive,
			ExpiryTime: utils.GetCurrentTimeMillis() - 1000,
		},
	}
	service := newTestService(store, &fakeGatewayClient{}, &fakeAuditService{})

	_, serviceErr := service.RevokeArtifact(context.Background(), artifactID, "too late", "patient-001", auditmodel.ActorKindPatient)

	require.NotNil(t, serviceErr)
	assert.Equal(t, codes.ArtifactNotActive, serviceErr.Code)
}

// TestListActive_DerivesStatuses tests the active-consents listing
func TestListActive_DerivesStatuses(t *testing.T) {
	now := utils.GetCurrentTimeMillis()
	store := &fakeConsentStore{
		activeArtifacts: []model.ConsentArtifact{
			{ArtifactID: utils.GenerateUUID(), Status: model.ArtifactStatusActive, ExpiryTime: now + 3600_000},
		},
	}
	service := newTestService(store, &fakeGatewayClient{}, &fakeAuditService{})

	response, serviceErr := service.ListActive(context.Background(), "patient-001")

	require.Nil(t, serviceErr)
	assert.Equal(t, 1, response.Total)
	assert.Equal(t, model.ArtifactStatusActive, response.Artifacts[0].Status)
}
