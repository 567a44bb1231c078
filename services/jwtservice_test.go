package services

import (
	"testing"
	"time"

	"teamdash/backend"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDevTokenRoundTrip(t *testing.T) {
	secret := []byte("test-secret")
	p := backend.Principal{UID: "alice", Email: "alice@example.com", Name: "Alice"}

	token, err := CreateDevToken(secret, p, time.Hour)
	require.NoError(t, err)

	got, err := ParseDevToken(secret, token)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.UID)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Alice", got.Name)
	assert.WithinDuration(t, time.Now(), got.AuthTime, 2*time.Second)
}

func TestDevTokenRejected(t *testing.T) {
	secret := []byte("test-secret")
	p := backend.Principal{UID: "alice"}

	t.Run("wrong secret", func(t *testing.T) {
		token, err := CreateDevToken([]byte("other"), p, time.Hour)
		require.NoError(t, err)
		_, err = ParseDevToken(secret, token)
		assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		token, err := CreateDevToken(secret, p, -time.Minute)
		require.NoError(t, err)
		_, err = ParseDevToken(secret, token)
		assert.ErrorIs(t, err, jwt.ErrTokenExpired)
	})

	t.Run("foreign issuer", func(t *testing.T) {
		claims := jwt.RegisteredClaims{Issuer: "someone-else", Subject: "alice"}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		require.NoError(t, err)
		_, err = ParseDevToken(secret, token)
		assert.ErrorIs(t, err, jwt.ErrTokenInvalidIssuer)
	})
}
