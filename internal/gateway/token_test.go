package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestToken_CachesUntilExpiry tests that repeated Token calls reuse the
// cached value instead of hitting the token endpoint again
func TestToken_CachesUntilExpiry(t *testing.T) {
	var tokenCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&tokenCalls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "token-abc",
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	manager := NewTokenManager(cfg, &http.Client{Timeout: cfg.Timeout})

	first, err := manager.Token(context.Background())
	require.NoError(t, err)
	second, err := manager.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-abc", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&tokenCalls))
}

// TestToken_RefreshAfterInvalidate tests that Invalidate forces a new
// token request
func TestToken_RefreshAfterInvalidate(t *testing.T) {
	var tokenCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&tokenCalls, 1)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": map[int32]string{1: "token-one", 2: "token-two"}[n],
			"expires_in":   3600,
		})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	manager := NewTokenManager(cfg, &http.Client{Timeout: cfg.Timeout})

	first, err := manager.Token(context.Background())
	require.NoError(t, err)
	manager.Invalidate()
	second, err := manager.Token(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "token-one", first)
	assert.Equal(t, "token-two", second)
	assert.Equal(t, int32(2), atomic.LoadInt32(&tokenCalls))
}

// TestToken_AuthFailure tests that a rejected credential exchange surfaces
// as an AUTH gateway error
func TestToken_AuthFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	manager := NewTokenManager(cfg, &http.Client{Timeout: cfg.Timeout})

	token, err := manager.Token(context.Background())

	require.Error(t, err)
	assert.Empty(t, token)
	gwErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ReasonAuth, gwErr.Reason)
	assert.Equal(t, http.StatusUnauthorized, gwErr.StatusCode)
}

// TestToken_MissingAccessToken tests that an empty token payload is rejected
func TestToken_MissingAccessToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"expires_in": 3600})
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	manager := NewTokenManager(cfg, &http.Client{Timeout: cfg.Timeout})

	_, err := manager.Token(context.Background())

	require.Error(t, err)
	gwErr, ok := err.(*Error)
	require.True(t, ok)
	assert.Equal(t, ReasonAuth, gwErr.Reason)
}
