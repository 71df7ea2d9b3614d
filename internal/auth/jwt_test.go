package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("test-secret", 15*time.Minute)

	token, err := m.GenerateAccessToken("c-1", "mario@example.it", "customer")
	require.NoError(t, err)

	claims, err := m.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "c-1", claims.ClientID)
	assert.Equal(t, "c-1", claims.Subject)
	assert.Equal(t, "customer", claims.Role)
	assert.Equal(t, issuer, claims.Issuer)
}

func TestJWTManager_RejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("one", time.Minute).GenerateAccessToken("c-1", "a@b.it", "customer")
	require.NoError(t, err)

	_, err = NewJWTManager("two", time.Minute).ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_RejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	m.now = func() time.Time { return time.Now().Add(-time.Hour) }

	token, err := m.GenerateAccessToken("c-1", "a@b.it", "customer")
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestJWTManager_RejectsNoneAlgorithm(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{ClientID: "c-1"})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.ValidateAccessToken(token)
	assert.Error(t, err)
}

func TestJWTManager_Validator(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	token, err := m.GenerateAccessToken("c-9", "admin@example.it", "admin")
	require.NoError(t, err)

	claims, err := m.Validator()(token)
	require.NoError(t, err)
	assert.Equal(t, "c-9", claims.ClientID)
	assert.Equal(t, "admin", claims.Role)

	_, err = m.Validator()("garbage")
	assert.Error(t, err)
}
