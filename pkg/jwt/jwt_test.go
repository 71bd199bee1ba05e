package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	token, err := GenerateToken("admin", AccessToken, "test-secret", time.Hour)
	require.NoError(t, err)

	claims, err := ValidateToken(token, "test-secret")
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Subject)
	assert.Equal(t, AccessToken, claims.TokenType)

	assert.True(t, IsTokenValid(token, "test-secret", AccessToken))
}

func TestValidateTokenWrongSecret(t *testing.T) {
	token, err := GenerateToken("admin", AccessToken, "test-secret", time.Hour)
	require.NoError(t, err)

	_, err = ValidateToken(token, "other-secret")
	assert.Error(t, err)
	assert.False(t, IsTokenValid(token, "other-secret", AccessToken))
}

func TestValidateExpiredToken(t *testing.T) {
	token, err := GenerateToken("admin", AccessToken, "test-secret", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "test-secret")
	assert.Error(t, err)
}

func TestValidateGarbageToken(t *testing.T) {
	_, err := ValidateToken("not.a.token", "test-secret")
	assert.Error(t, err)
}
