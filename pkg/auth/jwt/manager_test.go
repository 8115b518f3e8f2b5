package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nodeflow-go/pkg/config"
)

func TestJWTManager(t *testing.T) {
	cfg := config.AuthConfig{
		SecretKey:                "test-secret-key",
		Issuer:                   "test-issuer",
		AccessTokenExpireMinutes: 30,
	}

	manager, err := NewManager(cfg)
	require.NoError(t, err)

	t.Run("GenerateAndValidateToken", func(t *testing.T) {
		token, err := manager.GenerateToken("test@example.com")
		require.NoError(t, err)
		assert.NotEmpty(t, token)

		claims, err := manager.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "test@example.com", claims.Subject)
		assert.Equal(t, "test-issuer", claims.Issuer)
		assert.NotEmpty(t, claims.ID)
		assert.InDelta(t, (30 * time.Minute).Seconds(), claims.TTL().Seconds(), 5)
	})

	t.Run("RejectsForeignSecret", func(t *testing.T) {
		other, err := NewManager(config.AuthConfig{SecretKey: "other", Issuer: "test-issuer", AccessTokenExpireMinutes: 30})
		require.NoError(t, err)

		token, err := other.GenerateToken("test@example.com")
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("RejectsExpiredToken", func(t *testing.T) {
		claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Subject:   "test@example.com",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		}}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret-key"))
		require.NoError(t, err)

		_, err = manager.ValidateToken(token)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("RejectsGarbage", func(t *testing.T) {
		_, err := manager.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}

func TestNewManagerRequiresSecret(t *testing.T) {
	_, err := NewManager(config.AuthConfig{})
	assert.Error(t, err)
}
