package utils

import (
	"testing"
	"time"

	"github.com/repurpost/oauth-service/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testJWTSecret = "jwt-test-secret-key-at-least-32-characters"

func TestGenerateAndValidateToken(t *testing.T) {
	manager := NewJWTManager(testJWTSecret, 15*time.Minute)

	token, err := manager.GenerateToken("profile-123", domain.TierCreator)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "profile-123", claims.ProfileID)
	assert.Equal(t, domain.TierCreator, claims.Tier)
	assert.Greater(t, claims.Exp, claims.Iat)
}

func TestValidateTokenMissingTierDefaultsToFree(t *testing.T) {
	manager := NewJWTManager(testJWTSecret, 15*time.Minute)

	token, err := manager.GenerateToken("profile-123", domain.Tier(""))
	require.NoError(t, err)

	claims, err := manager.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, domain.TierFree, claims.Tier)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	manager := NewJWTManager(testJWTSecret, 15*time.Minute)
	other := NewJWTManager("another-secret-key-with-32-characters!!", 15*time.Minute)

	token, err := manager.GenerateToken("profile-123", domain.TierFree)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateExpiredToken(t *testing.T) {
	manager := NewJWTManager(testJWTSecret, -time.Minute)

	token, err := manager.GenerateToken("profile-123", domain.TierFree)
	require.NoError(t, err)

	_, err = manager.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	manager := NewJWTManager(testJWTSecret, 15*time.Minute)

	_, err := manager.ValidateToken("not.a.token")
	assert.Error(t, err)
}
