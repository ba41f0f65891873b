package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-that-is-long-enough-123"

func TestJWTRoundTrip(t *testing.T) {
	company := uuid.New()
	in := Claims{
		UserID:    uuid.New(),
		Role:      rbac.RoleClient,
		CompanyID: &company,
		SessionID: uuid.New(),
	}

	token, expiresAt, err := GenerateJWT(testSecret, "poster-campaigns", in, time.Hour)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, 5*time.Second)

	out, err := ParseJWT(testSecret, "poster-campaigns", token)
	require.NoError(t, err)
	assert.Equal(t, in.UserID, out.UserID)
	assert.Equal(t, in.SessionID, out.SessionID)
	assert.Equal(t, rbac.RoleClient, out.Role)
	require.NotNil(t, out.CompanyID)
	assert.Equal(t, company, *out.CompanyID)
	assert.NotEmpty(t, out.ID)
}

func TestJWTTokensAreUnique(t *testing.T) {
	c := Claims{UserID: uuid.New(), Role: rbac.RoleCompanyEmployee, SessionID: uuid.New()}
	a, _, err := GenerateJWT(testSecret, "", c, time.Hour)
	require.NoError(t, err)
	b, _, err := GenerateJWT(testSecret, "", c, time.Hour)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestParseJWTRejects(t *testing.T) {
	c := Claims{UserID: uuid.New(), Role: rbac.RoleContractor, SessionID: uuid.New()}

	token, _, err := GenerateJWT(testSecret, "poster-campaigns", c, time.Hour)
	require.NoError(t, err)

	_, err = ParseJWT("other-secret", "poster-campaigns", token)
	assert.Error(t, err, "wrong secret")

	_, err = ParseJWT(testSecret, "someone-else", token)
	assert.Error(t, err, "wrong issuer")

	_, err = ParseJWT(testSecret, "", strings.TrimSuffix(token, token[len(token)-4:])+"abcd")
	assert.Error(t, err, "tampered signature")

	noSession := Claims{UserID: uuid.New(), Role: rbac.RoleContractor}
	token, _, err = GenerateJWT(testSecret, "", noSession, time.Hour)
	require.NoError(t, err)
	_, err = ParseJWT(testSecret, "", token)
	assert.Error(t, err, "missing session id")
}

func TestParseJWTRejectsExpired(t *testing.T) {
	c := Claims{
		UserID:    uuid.New(),
		Role:      rbac.RoleContractor,
		SessionID: uuid.New(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, "", token)
	assert.Error(t, err)
}

func TestParseJWTRejectsNoneAlgorithm(t *testing.T) {
	c := Claims{UserID: uuid.New(), Role: rbac.RoleCompanyEmployee, SessionID: uuid.New()}
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, c).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = ParseJWT(testSecret, "", token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("s3cretpass", bcrypt.MinCost)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cretpass", hash)
	assert.True(t, CheckPassword(hash, "s3cretpass"))
	assert.False(t, CheckPassword(hash, "wrong-pass1"))
	assert.False(t, CheckPassword("not-a-hash", "s3cretpass"))
}

func TestValidatePasswordStrength(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"short1", false},
		{"longenoughbutnodigits", false},
		{"1234567890", false},
		{"letters4ndDigits", true},
		{"пароль123", true},
	}
	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePasswordStrength(tt.password)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, ErrWeakPassword)
			}
		})
	}
}

func TestOpaqueTokens(t *testing.T) {
	a, err := NewOpaqueToken()
	require.NoError(t, err)
	b, err := NewOpaqueToken()
	require.NoError(t, err)

	assert.Len(t, a, 43)
	assert.NotEqual(t, a, b)
	assert.Len(t, HashToken(a), 64)
	assert.Equal(t, HashToken(a), HashToken(a))
	assert.NotEqual(t, HashToken(a), HashToken(b))
}
