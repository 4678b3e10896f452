package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewJWTManager(JWTConfig{Secret: "test-secret", Expiry: time.Hour, Issuer: "tutor"})
	token, jti, err := m.GenerateAccessToken(42, "kim")
	require.NoError(t, err)
	assert.NotEmpty(t, jti)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "kim", claims.LoginID)
	assert.Equal(t, jti, claims.ID)
}

func TestValidateTokenRejectsWrongSecretAndExpiry(t *testing.T) {
	issuer := NewJWTManager(JWTConfig{Secret: "a", Expiry: time.Hour})
	token, _, err := issuer.GenerateAccessToken(1, "x")
	require.NoError(t, err)

	_, err = NewJWTManager(JWTConfig{Secret: "b"}).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := NewJWTManager(JWTConfig{Secret: "a", Expiry: -time.Minute})
	expired.config.Expiry = -time.Minute
	old, _, err := expired.GenerateAccessToken(1, "x")
	require.NoError(t, err)
	_, err = expired.ValidateToken(old)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPasswordWithCost("Secret12!", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NoError(t, VerifyPassword(hash, "Secret12!"))
	assert.ErrorIs(t, VerifyPassword(hash, "secret12!"), ErrPasswordMismatch)
}
