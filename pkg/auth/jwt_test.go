package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	token, err := svc.GenerateToken(42, "educator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "educator", claims.Role)
}

func TestJWTService_WrongSecret(t *testing.T) {
	signer, err := NewJWTService("secret-a", 1)
	require.NoError(t, err)
	verifier, err := NewJWTService("secret-b", 1)
	require.NoError(t, err)

	token, err := signer.GenerateToken(42, "student")
	require.NoError(t, err)

	_, err = verifier.ParseToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTService_EmptySecret(t *testing.T) {
	_, err := NewJWTService("", 1)
	assert.Error(t, err)
}

func TestJWTService_Garbage(t *testing.T) {
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	_, err = svc.ParseToken("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
