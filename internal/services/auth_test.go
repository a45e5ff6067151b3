package services

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"card-service/internal/models"
)

func TestPasswordHashAndVerify(t *testing.T) {
	ps := NewPasswordService()

	hash, err := ps.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)

	assert.NoError(t, ps.VerifyPassword("correct horse battery staple", hash))
	assert.Error(t, ps.VerifyPassword("wrong password", hash))
}

func TestPasswordTooShort(t *testing.T) {
	ps := NewPasswordService()

	_, err := ps.HashPassword("short")
	assert.Error(t, err)
}

func TestJWTRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 24)
	user := &models.User{ID: uuid.New(), Email: "elena@example.com"}

	token, err := svc.GenerateToken(user)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, user.Email, claims.Email)
	assert.Equal(t, "card-service", claims.Issuer)
}

func TestJWTRejectsWrongSecret(t *testing.T) {
	issuer := NewJWTService("test-secret", 24)
	verifier := NewJWTService("other-secret", 24)

	token, err := issuer.GenerateToken(&models.User{ID: uuid.New(), Email: "elena@example.com"})
	require.NoError(t, err)

	_, err = verifier.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", 0)
	svc.expiryTime = -time.Minute

	token, err := svc.GenerateToken(&models.User{ID: uuid.New(), Email: "elena@example.com"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJWTRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 24)

	_, err := svc.ValidateToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
