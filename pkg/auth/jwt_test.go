package auth

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	svc := NewJWTService("test-secret", time.Hour)
	userID := uuid.New()

	token, err := svc.GenerateToken(userID, "admin@example.com")
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "admin@example.com", claims.Email)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTService("secret-a", time.Hour).GenerateToken(uuid.New(), "a@example.com")
	require.NoError(t, err)

	_, err = NewJWTService("secret-b", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	svc := NewJWTService("test-secret", -time.Minute)
	token, err := svc.GenerateToken(uuid.New(), "a@example.com")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := NewJWTService("test-secret", time.Hour).ValidateToken("not.a.token")
	assert.Error(t, err)
}
