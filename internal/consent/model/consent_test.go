package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

const testNow = int64(1_700_000_000_000)

// TestConsentRequestEffectiveStatus tests derived request statuses
func TestConsentRequestEffectiveStatus(t *testing.T) {
	pending := &ConsentRequest{Status: StatusRequested, ExpiryTime: testNow + 1000}
	assert.Equal(t, StatusRequested, pending.EffectiveStatus(testNow))

	lapsed := &ConsentRequest{Status: StatusRequested, ExpiryTime: testNow}
	assert.Equal(t, StatusExpired, lapsed.EffectiveStatus(testNow))

	// Terminal statuses are never rewritten by expiry.
	granted := &ConsentRequest{Status: StatusGranted, ExpiryTime: testNow - 1000}
	assert.Equal(t, StatusGranted, granted.EffectiveStatus(testNow))
}

// TestArtifactEffectiveStatus tests derived artifact statuses
func TestArtifactEffectiveStatus(t *testing.T) {
	active := &ConsentArtifact{Status: ArtifactStatusActive, ExpiryTime: testNow + 1000}
	assert.Equal(t, ArtifactStatusActive, active.EffectiveStatus(testNow))
	assert.True(t, active.IsUsable(testNow))

	expired := &ConsentArtifact{Status: ArtifactStatusActive, ExpiryTime: testNow}
	assert.Equal(t, ArtifactStatusExpired, expired.EffectiveStatus(testNow))
	assert.False(t, expired.IsUsable(testNow))

	revoked := &ConsentArtifact{Status: ArtifactStatusRevoked, ExpiryTime: testNow + 1000}
	assert.Equal(t, ArtifactStatusRevoked, revoked.EffectiveStatus(testNow))
	assert.False(t, revoked.IsUsable(testNow))
}

// TestIsTerminalStatus tests that only REQUESTED permits a transition
func TestIsTerminalStatus(t *testing.T) {
	assert.False(t, IsTerminalStatus(StatusRequested))
	for _, status := range []string{StatusGranted, StatusDenied, StatusExpired, StatusRevoked} {
		assert.True(t, IsTerminalStatus(status), status)
	}
}
