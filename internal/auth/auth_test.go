package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWT_RoundTripCarriesIdentity(t *testing.T) {
	tok, err := SignJWT(42, "Ada Lovelace", "ada@example.com", "secret", time.Hour)
	require.NoError(t, err)

	uid, claims, err := ParseJWT(tok, "secret")
	require.NoError(t, err)
	assert.Equal(t, uint64(42), uid)
	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestJWT_Rejects(t *testing.T) {
	t.Run("wrong secret", func(t *testing.T) {
		tok, err := SignJWT(1, "", "", "secret", time.Hour)
		require.NoError(t, err)
		_, _, err = ParseJWT(tok, "other")
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tok, err := SignJWT(1, "", "", "secret", -time.Minute)
		require.NoError(t, err)
		_, _, err = ParseJWT(tok, "secret")
		assert.Error(t, err)
	})
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
