package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/medilink/health-exchange-api/internal/system/config"
	"github.com/medilink/health-exchange-api/internal/system/log"
)

// tokenExpirySkew is subtracted from the reported lifetime so a token is
// refreshed before the exchange actually rejects it.
const tokenExpirySkew = 30 * time.Second

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// TokenManager caches the exchange access token and refreshes it under a
// single-flight guard. Concurrent callers during a refresh block on the
// write lock and reuse the refreshed value.
type TokenManager struct {
	mu         sync.RWMutex
	token      string
	expiry     time.Time
	cfg        *config.ExchangeConfig
	httpClient *http.Client
}

// NewTokenManager creates a token manager for the configured exchange.
func NewTokenManager(cfg *config.ExchangeConfig, httpClient *http.Client) *TokenManager {
	return &TokenManager{
		cfg:        cfg,
		httpClient: httpClient,
	}
}

// Token returns a valid access token, refreshing it if the cached one is
// missing or about to expire.
func (t *TokenManager) Token(ctx context.Context) (string, error) {
	t.mu.RLock()
	if t.token != "" && time.Now().Before(t.expiry) {
		token := t.token
		t.mu.RUnlock()
		return token, nil
	}
	t.mu.RUnlock()

	t.mu.Lock()
	defer t.mu.Unlock()

	// Another caller may have refreshed while we waited for the lock.
	if t.token != "" && time.Now().Before(t.expiry) {
		return t.token, nil
	}

	return t.refresh(ctx)
}

// Invalidate drops the cached token so the next caller re-authenticates.
func (t *TokenManager) Invalidate() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.token = ""
	t.expiry = time.Time{}
}

// refresh fetches a new token. Caller must hold the write lock.
func (t *TokenManager) refresh(ctx context.Context) (string, error) {
	logger := log.GetLogger().With(log.String(log.LoggerKeyComponentName, "TokenManager"))

	form := url.Values{}
	form.Set("grant_type", "client_credentials")
	form.Set("client_id", t.cfg.ClientID)
	form.Set("client_secret", t.cfg.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		t.cfg.GetEndpointURL(t.cfg.Endpoints.Token), strings.NewReader(form.Encode()))
	if err != nil {
		return "", &Error{Reason: ReasonAuth, Message: "failed to build token request", Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		if isTimeout(err) {
			return "", &Error{Reason: ReasonTimeout, Message: "token request timed out", Err: err}
		}
		return "", &Error{Reason: ReasonAuth, Message: "token request failed", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			Reason:     ReasonAuth,
			StatusCode: resp.StatusCode,
			Message:    fmt.Sprintf("token endpoint returned %d", resp.StatusCode),
		}
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return "", &Error{Reason: ReasonAuth, Message: "failed to decode token response", Err: err}
	}
	if tokenResp.AccessToken == "" {
		return "", &Error{Reason: ReasonAuth, Message: "token response missing access_token"}
	}

	lifetime := time.Duration(tokenResp.ExpiresIn) * time.Second
	if lifetime > tokenExpirySkew {
		lifetime -= tokenExpirySkew
	}

	t.token = tokenResp.AccessToken
	t.expiry = time.Now().Add(lifetime)

	logger.Debug("Access token refreshed", log.Int64("expires_in", tokenResp.ExpiresIn))
	return t.token, nil
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	if errors.As(err, &netErr) {
		return netErr.Timeout()
	}
	return false
}
