package services

import (
	"context"
	"testing"
	"time"

	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogin(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.auth.Login(ctx, " BOSS@example.com ", "s3cretpass", "10.0.0.1", "curl")
	require.NoError(t, err)
	assert.NotEmpty(t, res.Session.Token)
	assert.Equal(t, h.employee.UserID, res.User.ID)
	assert.NotNil(t, res.User.LastLoginAt)
	assert.Contains(t, h.db.Actions(), models.AuditLogin)

	actor, err := h.sessions.Validate(ctx, res.Session.Token, "10.0.0.1", "curl")
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, actor.UserID)
	assert.Equal(t, res.Session.SessionID, actor.SessionID)
	assert.Equal(t, rbac.RoleCompanyEmployee, actor.Role)
}

func TestLoginFailuresLookAlike(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, _ := h.newUser(t, rbac.RoleClient)
	_, err := h.users.Deactivate(ctx, h.employee, u.ID)
	require.NoError(t, err)

	tests := []struct {
		name, email, password string
	}{
		{"unknown email", "nobody@example.com", "passw0rdX"},
		{"wrong password", "boss@example.com", "wrong-passw0rd"},
		{"deactivated", u.Email, "passw0rdX"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.auth.Login(ctx, tt.email, tt.password, "", "")
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.auth.Login(ctx, "boss@example.com", "s3cretpass", "", "")
	require.NoError(t, err)
	actor, err := h.sessions.Validate(ctx, res.Session.Token, "", "")
	require.NoError(t, err)
	require.Equal(t, 1, h.cache.Len())

	require.NoError(t, h.auth.Logout(ctx, actor))
	assert.Zero(t, h.cache.Len(), "logout evicts the cached session")

	_, err = h.sessions.Validate(ctx, res.Session.Token, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestLogoutAll(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	var tokens []string
	for range 3 {
		res, err := h.auth.Login(ctx, "boss@example.com", "s3cretpass", "", "")
		require.NoError(t, err)
		tokens = append(tokens, res.Session.Token)
	}
	actor, err := h.sessions.Validate(ctx, tokens[0], "", "")
	require.NoError(t, err)

	n, err := h.auth.LogoutAll(ctx, actor)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	for _, tok := range tokens {
		_, err := h.sessions.Validate(ctx, tok, "", "")
		assert.ErrorIs(t, err, ErrSessionRevoked)
	}
}

func TestChangePassword(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	keep, err := h.auth.Login(ctx, "boss@example.com", "s3cretpass", "", "")
	require.NoError(t, err)
	other, err := h.auth.Login(ctx, "boss@example.com", "s3cretpass", "", "")
	require.NoError(t, err)
	actor, err := h.sessions.Validate(ctx, keep.Session.Token, "", "")
	require.NoError(t, err)

	err = h.auth.ChangePassword(ctx, actor, "wrong", "n3wpassword")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.FieldsOf(err), "current_password")

	err = h.auth.ChangePassword(ctx, actor, "s3cretpass", "short")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.FieldsOf(err), "new_password")

	require.NoError(t, h.auth.ChangePassword(ctx, actor, "s3cretpass", "n3wpassword"))

	_, err = h.sessions.Validate(ctx, keep.Session.Token, "", "")
	assert.NoError(t, err, "current session survives")
	_, err = h.sessions.Validate(ctx, other.Session.Token, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked)

	_, err = h.auth.Login(ctx, "boss@example.com", "s3cretpass", "", "")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = h.auth.Login(ctx, "boss@example.com", "n3wpassword", "", "")
	assert.NoError(t, err)
}

func requestReset(t *testing.T, h *harness, email string) string {
	t.Helper()
	require.NoError(t, h.auth.RequestPasswordReset(context.Background(), email, "", ""))
	last := h.publisher.Last()
	require.Equal(t, events.StreamAuth, last.Stream)
	require.Equal(t, events.EventPasswordResetRequested, last.Event.Type)
	token, ok := last.Event.Payload["token"].(string)
	require.True(t, ok)
	return token
}

func TestPasswordReset(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	session, err := h.auth.Login(ctx, "boss@example.com", "s3cretpass", "", "")
	require.NoError(t, err)
	token := requestReset(t, h, "boss@example.com")

	require.NoError(t, h.auth.ConfirmPasswordReset(ctx, token, "r3setpassword", "", ""))

	_, err = h.sessions.Validate(ctx, session.Session.Token, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked, "reset ends every session")
	_, err = h.auth.Login(ctx, "boss@example.com", "r3setpassword", "", "")
	assert.NoError(t, err)

	err = h.auth.ConfirmPasswordReset(ctx, token, "an0therpassword", "", "")
	assert.ErrorIs(t, err, ErrTokenInvalid, "tokens are single use")

	assert.Contains(t, h.db.Actions(), models.AuditPasswordResetComplete)
}

func TestPasswordResetNewTokenReplacesOld(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := requestReset(t, h, "boss@example.com")
	second := requestReset(t, h, "boss@example.com")

	assert.ErrorIs(t, h.auth.ConfirmPasswordReset(ctx, first, "r3setpassword", "", ""), ErrTokenInvalid)
	assert.NoError(t, h.auth.ConfirmPasswordReset(ctx, second, "r3setpassword", "", ""))
}

func TestPasswordResetExpiry(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	token := requestReset(t, h, "boss@example.com")

	h.auth.now = func() time.Time { return time.Now().Add(h.cfg.PasswordResetTTL + time.Minute) }
	err := h.auth.ConfirmPasswordReset(ctx, token, "r3setpassword", "", "")
	assert.ErrorIs(t, err, ErrTokenInvalid)
}

func TestPasswordResetUnknownEmailIsSilent(t *testing.T) {
	h := newHarness(t)
	before := h.publisher.Len()

	require.NoError(t, h.auth.RequestPasswordReset(context.Background(), "ghost@example.com", "", ""))
	assert.Equal(t, before, h.publisher.Len())
}

func TestPasswordResetRejectsBadInput(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	assert.ErrorIs(t, h.auth.ConfirmPasswordReset(ctx, "", "r3setpassword", "", ""), ErrTokenInvalid)
	assert.ErrorIs(t, h.auth.ConfirmPasswordReset(ctx, "not-a-token", "r3setpassword", "", ""), ErrTokenInvalid)

	token := requestReset(t, h, "boss@example.com")
	err := h.auth.ConfirmPasswordReset(ctx, token, "weak", "", "")
	require.True(t, apperr.Is(err, apperr.KindValidation))
	assert.Contains(t, apperr.FieldsOf(err), "new_password")
}
