package jwt

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-testing-purposes"

func TestNewService(t *testing.T) {
	service := NewService(testSecret, time.Hour)

	assert.NotNil(t, service)
	assert.Equal(t, testSecret, service.secret)
	assert.Equal(t, time.Hour, service.tokenExpiry)
}

func TestGenerateToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	operatorID := uuid.New()

	token, err := service.GenerateToken(operatorID, "ops", []string{RoleAdmin})
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := service.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.OperatorID)
	assert.Equal(t, "ops", claims.Name)
	assert.Equal(t, []string{RoleAdmin}, claims.Roles)
	assert.Equal(t, Issuer, claims.Issuer)
	assert.Equal(t, operatorID.String(), claims.Subject)
	assert.True(t, claims.HasRole(RoleAdmin))
	assert.False(t, claims.HasRole("viewer"))
}

func TestValidateToken(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	operatorID := uuid.New()

	t.Run("Wrong secret", func(t *testing.T) {
		other := NewService("another-secret", time.Hour)
		token, err := other.GenerateToken(operatorID, "ops", []string{RoleAdmin})
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("Expired", func(t *testing.T) {
		expired := NewService(testSecret, -time.Minute)
		token, err := expired.GenerateToken(operatorID, "ops", nil)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.Error(t, err)
		assert.True(t, service.IsTokenExpired(token))
	})

	t.Run("Wrong issuer", func(t *testing.T) {
		claims := Claims{
			OperatorID: operatorID,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "someone-else",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("Unsigned algorithm rejected", func(t *testing.T) {
		claims := Claims{
			OperatorID: operatorID,
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    Issuer,
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = service.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := service.ValidateToken("not.a.token")
		assert.Error(t, err)
		assert.True(t, service.IsTokenExpired("not.a.token"))
	})
}

func TestExtractClaims(t *testing.T) {
	service := NewService(testSecret, time.Hour)
	operatorID := uuid.New()

	token, err := service.GenerateToken(operatorID, "ops", []string{RoleAdmin})
	require.NoError(t, err)

	claims, err := NewService("different", time.Hour).ExtractClaims(token)
	require.NoError(t, err)
	assert.Equal(t, operatorID, claims.OperatorID)
	assert.False(t, service.IsTokenExpired(token))
}
