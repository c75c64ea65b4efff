package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"teamfinder/config"
	"teamfinder/models"
)

func TestJWTRoundTrip(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	user := &models.User{ID: "user-1", TokenVersion: 3}
	access, refresh, err := GenerateJWTToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, access)
	require.NotEmpty(t, refresh)
	assert.NotEqual(t, access, refresh)

	claims, err := ParseJWTToken(access)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, 3, claims.TokenVersion)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), claims.ExpiresAt.Time, time.Minute)

	refreshClaims, err := ParseJWTToken(refresh)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), refreshClaims.ExpiresAt.Time, time.Minute)
}

func TestParseJWTTokenRejectsBadInput(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"

	t.Run("garbage", func(t *testing.T) {
		_, err := ParseJWTToken("not-a-token")
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		user := &models.User{ID: "user-1"}
		access, _, err := GenerateJWTToken(user)
		require.NoError(t, err)

		config.AppConfig.JWTSecret = "different-secret"
		defer func() { config.AppConfig.JWTSecret = "test-secret" }()

		_, err = ParseJWTToken(access)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		claims := &Claims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
			},
		}
		token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
		signed, err := token.SignedString([]byte(config.AppConfig.JWTSecret))
		require.NoError(t, err)

		_, err = ParseJWTToken(signed)
		assert.Error(t, err)
	})
}

func TestRefreshTokens(t *testing.T) {
	config.AppConfig.JWTSecret = "test-secret"
	db := newTestDB(t)
	config.DB = db

	user := seedUser(t, db, "owner@example.com", "Anna")
	_, refresh, err := GenerateJWTToken(user)
	require.NoError(t, err)

	t.Run("valid refresh issues a new pair", func(t *testing.T) {
		access, newRefresh, err := RefreshTokens(refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, newRefresh)
	})

	t.Run("bumped token version revokes", func(t *testing.T) {
		require.NoError(t, db.Model(user).Update("token_version", user.TokenVersion+1).Error)
		_, _, err := RefreshTokens(refresh)
		assert.EqualError(t, err, "token revoked")
	})
}
