package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/medilink/health-exchange-api/internal/system/config"
	"github.com/medilink/health-exchange-api/internal/system/constants"
	"github.com/medilink/health-exchange-api/internal/system/log"
)

// ConsentSubmission is the outbound consent request payload.
type ConsentSubmission struct {
	PatientRef  string   `json:"patientRef"`
	PurposeCode string   `json:"purpose_code"`
	PurposeText string   `json:"purpose_text"`
	HiTypes     []string `json:"hiTypes"`
	DateFrom    int64    `json:"dateFrom"`
	DateTo      int64    `json:"dateTo"`
	Expiry      int64    `json:"expiry"`
	CallbackURL string   `json:"callbackUrl"`
}

// HealthInfoSubmission is the outbound health-record fetch payload.
type HealthInfoSubmission struct {
	ConsentArtifactID string   `json:"consentArtifactId"`
	HiTypes           []string `json:"hiTypes,omitempty"`
	DateFrom          int64    `json:"dateFrom,omitempty"`
	DateTo            int64    `json:"dateTo,omitempty"`
	CallbackURL       string   `json:"callbackUrl"`
}

// SubmissionAck is the exchange's acknowledgement of an async submission.
type SubmissionAck struct {
	RequestID string `json:"requestId"`
}

// ClientInterface defines the outbound operations against the exchange.
type ClientInterface interface {
	SubmitConsentRequest(ctx context.Context, submission *ConsentSubmission) (*SubmissionAck, error)
	SubmitHealthInfoRequest(ctx context.Context, submission *HealthInfoSubmission) (*SubmissionAck, error)
}

type client struct {
	cfg        *config.ExchangeConfig
	httpClient *http.Client
	tokens     *TokenManager
}

// NewClient creates the exchange client with its own bounded-timeout
// transport and token manager.
func NewClient(cfg *config.ExchangeConfig) ClientInterface {
	httpClient := &http.Client{Timeout: cfg.Timeout}
	return &client{
		cfg:        cfg,
		httpClient: httpClient,
		tokens:     NewTokenManager(cfg, httpClient),
	}
}

// SubmitConsentRequest submits a consent request to the exchange and returns
// the exchange-assigned request identifier.
func (c *client) SubmitConsentRequest(ctx context.Context, submission *ConsentSubmission) (*SubmissionAck, error) {
	return c.post(ctx, c.cfg.Endpoints.ConsentRequest, submission)
}

// SubmitHealthInfoRequest submits a health-record fetch request to the
// exchange and returns the exchange-assigned request identifier.
func (c *client) SubmitHealthInfoRequest(ctx context.Context, submission *HealthInfoSubmission) (*SubmissionAck, error) {
	return c.post(ctx, c.cfg.Endpoints.HealthInfoRequest, submission)
}

// post sends an authenticated JSON request with bounded retries. Retries are
// limited to transient failures (timeouts, 5xx); the exchange deduplicates
// submissions by request identifier, so a transport-level retry never
// repeats a remote side effect. A 401/403 invalidates the cached token and
// is retried once after re-authentication.
func (c *client) post(ctx context.Context, endpoint string, payload interface{}) (*SubmissionAck, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "GatewayClient"))

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Reason: ReasonUpstream, Message: "failed to marshal request payload", Err: err}
	}

	var lastErr *Error
	reauthed := false
	backoff := c.cfg.RetryBackoff

	for attempt := 1; attempt <= c.cfg.RetryAttempts; attempt++ {
		ack, gwErr := c.doPost(ctx, endpoint, body)
		if gwErr == nil {
			return ack, nil
		}
		lastErr = gwErr

		if gwErr.Reason == ReasonAuth && !reauthed {
			// Cached token may be stale. Re-authenticate once.
			c.tokens.Invalidate()
			reauthed = true
			continue
		}
		if !gwErr.Retryable() {
			break
		}

		logger.Warn("Exchange call failed, retrying",
			log.String("endpoint", endpoint),
			log.Int("attempt", attempt),
			log.Error(gwErr),
		)

		select {
		case <-ctx.Done():
			return nil, &Error{Reason: ReasonTimeout, Message: "request cancelled", Err: ctx.Err()}
		case <-time.After(backoff):
		}
		backoff *= 2
	}

	return nil, lastErr
}

func (c *client) doPost(ctx context.Context, endpoint string, body []byte) (*SubmissionAck, *Error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		if gwErr, ok := err.(*Error); ok {
			return nil, gwErr
		}
		return nil, &Error{Reason: ReasonAuth, Message: "failed to acquire access token", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.cfg.GetEndpointURL(endpoint), bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Reason: ReasonUpstream, Message: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(constants.AuthorizationHeaderName, constants.TokenTypeBearer+" "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return nil, &Error{Reason: ReasonTimeout, Message: "exchange call timed out", Err: err}
		}
		return nil, &Error{Reason: ReasonUpstream, Message: "exchange unreachable", Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated ||
		resp.StatusCode == http.StatusAccepted:
		var ack SubmissionAck
		if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
			return nil, &Error{Reason: ReasonUpstream, Message: "failed to decode exchange response", Err: err}
		}
		return &ack, nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &Error{
			Reason:     ReasonAuth,
			StatusCode: resp.StatusCode,
			Message:    "exchange rejected credentials",
		}
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &Error{
			Reason:     ReasonRateLimit,
			StatusCode: resp.StatusCode,
			Message:    "exchange rate limit exceeded",
		}
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &Error{
			Reason:     ReasonUpstream,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("exchange returned %d: %s", resp.StatusCode, string(detail)),
		}
	}
}
