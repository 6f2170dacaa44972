package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/propledger/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestVerifier() *TokenVerifier {
	return NewTokenVerifier(config.JWTConfig{
		Enabled: true,
		Secret:  "test-secret-key-at-least-32-chars",
		Issuer:  "test-issuer",
	})
}

func claimsFor(subject string, ttl time.Duration) *Claims {
	now := time.Now()
	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Roles:       []string{"accountant"},
		PropertyIDs: []string{"p-1"},
	}
}

func TestTokenVerifier_RoundTrip(t *testing.T) {
	v := newTestVerifier()
	token, err := v.Sign(claimsFor("user-1", time.Hour))
	require.NoError(t, err)

	claims, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.True(t, claims.HasRole("accountant"))
	assert.False(t, claims.HasRole("admin"))
	assert.True(t, claims.CanAccessProperty("p-1"))
	assert.False(t, claims.CanAccessProperty("p-2"))
}

func TestTokenVerifier_Rejects(t *testing.T) {
	v := newTestVerifier()

	t.Run("expired", func(t *testing.T) {
		token, err := v.Sign(claimsFor("user-1", -time.Hour))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenVerifier(config.JWTConfig{Secret: "another-secret-key-of-32-chars!!", Issuer: "test-issuer"})
		token, err := other.Sign(claimsFor("user-1", time.Hour))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		c := claimsFor("user-1", time.Hour)
		c.Issuer = "somebody-else"
		token, err := v.Sign(c)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing subject", func(t *testing.T) {
		token, err := v.Sign(claimsFor("", time.Hour))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrMissingSubject)
	})

	t.Run("no expiry", func(t *testing.T) {
		c := claimsFor("user-1", time.Hour)
		c.ExpiresAt = nil
		token, err := v.Sign(c)
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("other algorithm", func(t *testing.T) {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claimsFor("user-1", time.Hour)).
			SignedString([]byte("test-secret-key-at-least-32-chars"))
		require.NoError(t, err)
		_, err = v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := v.Verify("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
