package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndCheckPassword(t *testing.T) {
	ConfigureBcrypt(bcrypt.MinCost) // keep the test fast

	hash, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, "pw123456", hash)

	assert.True(t, CheckPasswordHash("pw123456", hash))
	assert.False(t, CheckPasswordHash("pw123457", hash))
	assert.False(t, CheckPasswordHash("", hash))
}

func TestHashPasswordDiffersPerCall(t *testing.T) {
	ConfigureBcrypt(bcrypt.MinCost)

	h1, err := HashPassword("pw123456")
	require.NoError(t, err)
	h2, err := HashPassword("pw123456")
	require.NoError(t, err)
	assert.NotEqual(t, h1, h2) // salted
}
