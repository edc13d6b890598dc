package utils

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/respiralivre/api/config"
)

func TestTokenRoundTrip(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	id := uuid.New()

	token, err := GenerateToken(id, "a@b.c", "authenticated", time.Hour)
	require.NoError(t, err)

	claims, err := ParseToken(token)
	require.NoError(t, err)
	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "a@b.c", claims.Email)
}

func TestParseTokenRejectsExpiredAndForeign(t *testing.T) {
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	expired, err := GenerateToken(uuid.New(), "", "", -time.Minute)
	require.NoError(t, err)
	_, err = ParseToken(expired)
	assert.Error(t, err)

	config.Set(config.AppConfig{JWTSecret: "other"})
	foreign, err := GenerateToken(uuid.New(), "", "", time.Hour)
	require.NoError(t, err)
	config.Set(config.AppConfig{JWTSecret: "test-secret"})
	_, err = ParseToken(foreign)
	assert.Error(t, err)
}
