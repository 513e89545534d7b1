package service

import (
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "crm-system/pkg/errors"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewJWTService("secret", time.Hour, 24*time.Hour)

	access, refresh, err := svc.GenerateTokens(7, 1, "agent")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(access)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), claims.UserID)
	assert.Equal(t, uint64(1), claims.ClientID)
	assert.Equal(t, "agent", claims.Role)
	assert.False(t, claims.IsRefreshToken)

	claims, err = svc.ValidateToken(refresh)
	require.NoError(t, err)
	assert.True(t, claims.IsRefreshToken)
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewJWTService("secret", time.Minute, time.Hour).(*jwtService)
	svc.now = func() time.Time { return time.Now().Add(-2 * time.Minute) }
	access, _, err := svc.GenerateTokens(7, 1, "agent")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	access, _, err := NewJWTService("a", time.Hour, time.Hour).GenerateTokens(7, 1, "agent")
	require.NoError(t, err)

	_, err = NewJWTService("b", time.Hour, time.Hour).ValidateToken(access)
	assert.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodNone, &JwtCustomClaim{UserID: 7})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewJWTService("secret", time.Hour, time.Hour).ValidateToken(signed)
	assert.ErrorIs(t, err, apperrors.ErrInvalidSigningMethod)
}
