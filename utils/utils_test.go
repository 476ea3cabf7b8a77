package utils

import (
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTRoundTrip(t *testing.T) {
	tokenStr, err := GenerateJWT("asha@example.com")
	require.NoError(t, err)

	token, err := ValidateJWT(tokenStr)
	require.NoError(t, err)

	claims, ok := token.Claims.(jwt.MapClaims)
	require.True(t, ok)
	assert.Equal(t, "asha@example.com", claims["email"])
	assert.Equal(t, "access", claims["type"])
}

func TestRefreshTokenCarriesSession(t *testing.T) {
	tokenStr, err := GenerateRefreshToken("asha@example.com", "session-123")
	require.NoError(t, err)

	token, err := ValidateJWT(tokenStr)
	require.NoError(t, err)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "refresh", claims["type"])
	assert.Equal(t, "session-123", claims["sessionId"])
}

func TestValidateJWTRejectsTampering(t *testing.T) {
	tokenStr, err := GenerateJWT("asha@example.com")
	require.NoError(t, err)

	_, err = ValidateJWT(tokenStr + "x")
	assert.Error(t, err)

	_, err = ValidateJWT("not.a.token")
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cret-pass")
	require.NoError(t, err)
	require.NotEqual(t, "s3cret-pass", hash)

	assert.True(t, ValidatePassword(hash, "s3cret-pass"))
	assert.False(t, ValidatePassword(hash, "wrong-pass"))
	assert.False(t, ValidatePassword("not-a-hash", "s3cret-pass"))
}
