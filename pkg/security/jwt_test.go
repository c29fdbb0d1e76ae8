package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestManager(t *testing.T) *JWTManager {
	t.Helper()
	m, err := NewJWTManager(&JWTConfig{SecretKey: "test-secret", Issuer: "gacha"})
	require.NoError(t, err)
	return m
}

func TestJWTManager_UserTokenRoundTrip(t *testing.T) {
	m := newTestManager(t)

	token, err := m.GenerateUserToken(42)
	require.NoError(t, err)

	claims, err := m.ValidateToken("Bearer " + token)
	require.NoError(t, err)
	assert.Equal(t, "gacha", claims.Issuer)

	uid, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(42), uid)
}

func TestJWTManager_Rejects(t *testing.T) {
	m := newTestManager(t)

	expired, err := m.GenerateToken(&Claims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute))},
	})
	require.NoError(t, err)
	_, err = m.ValidateToken(expired)
	assert.ErrorIs(t, err, ErrTokenExpired)

	_, err = m.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrTokenMalformed)

	other, err := NewJWTManager(&JWTConfig{SecretKey: "other-secret"})
	require.NoError(t, err)
	token, err := other.GenerateUserToken(1)
	require.NoError(t, err)
	_, err = m.ValidateToken(token)
	assert.ErrorIs(t, err, ErrSignatureInvalid)
}

func TestNewJWTManager_Config(t *testing.T) {
	_, err := NewJWTManager(&JWTConfig{})
	assert.ErrorIs(t, err, ErrSecretKeyEmpty)

	_, err = NewJWTManager(&JWTConfig{SecretKey: "x", Algorithm: "XX999"})
	assert.ErrorIs(t, err, ErrAlgorithmInvalid)
}

func TestClaims_UserID(t *testing.T) {
	c := &Claims{Payload: map[string]any{"uid": float64(7)}}
	uid, err := c.UserID()
	require.NoError(t, err)
	assert.Equal(t, int64(7), uid)

	_, err = (&Claims{}).UserID()
	assert.ErrorIs(t, err, ErrSubjectMissing)

	_, err = (&Claims{Payload: map[string]any{"uid": "0"}}).UserID()
	assert.ErrorIs(t, err, ErrSubjectMissing)
}
