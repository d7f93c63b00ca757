package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const JWTSecret = "test-secret"

// AccessToken signs an access token the way the auth service issues them.
func AccessToken(t *testing.T, userID uuid.UUID, superAdmin bool) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   userID.String(),
		"email": "user-" + userID.String() + "@example.com",
		"exp":   time.Now().Add(15 * time.Minute).Unix(),
		"iat":   time.Now().Unix(),
	}
	if superAdmin {
		claims["role"] = "super_admin"
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(JWTSecret))
	require.NoError(t, err)
	return signed
}
