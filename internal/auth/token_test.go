package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tulisbareng/pkg/apperr"
)

func TestIssueAndVerify(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	token, err := tm.Issue("user-123")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := tm.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-123", claims.UserID)
}

func TestVerifyFailures(t *testing.T) {
	tm := NewTokenManager("test-secret", time.Hour)

	t.Run("missing token", func(t *testing.T) {
		_, err := tm.Verify("")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := tm.Verify("not.a.jwt")
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := NewTokenManager("different-secret", time.Hour)
		token, err := other.Issue("user-123")
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := NewTokenManager("test-secret", -time.Minute)
		token, err := expired.Issue("user-123")
		require.NoError(t, err)

		_, err = tm.Verify(token)
		assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
	})
}

func TestHashAndComparePassword(t *testing.T) {
	hash, err := HashPassword("s3cret-password")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret-password", hash)

	assert.True(t, ComparePassword(hash, "s3cret-password"))
	assert.False(t, ComparePassword(hash, "wrong-password"))
}
