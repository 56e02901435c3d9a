package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateJWT(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)

	token, err := GenerateJWT("64f1c0ffee0000000000abcd", "child")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "64f1c0ffee0000000000abcd", claims.UserID)
	assert.Equal(t, "child", claims.Role)
}

func TestValidateJWTExpired(t *testing.T) {
	ConfigureJWT("test-secret", -time.Minute)
	token, err := GenerateJWT("someid", "therapist")
	require.NoError(t, err)

	ConfigureJWT("test-secret", time.Hour)
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTWrongSecret(t *testing.T) {
	ConfigureJWT("secret-one", time.Hour)
	token, err := GenerateJWT("someid", "child")
	require.NoError(t, err)

	ConfigureJWT("secret-two", time.Hour)
	_, err = ValidateJWT(token)
	assert.Error(t, err)
}

func TestValidateJWTGarbage(t *testing.T) {
	ConfigureJWT("test-secret", time.Hour)
	_, err := ValidateJWT("not-a-token")
	assert.Error(t, err)
}
