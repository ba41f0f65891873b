package services

import (
	"context"
	"testing"
	"time"

	"github.com/postertrack/backend/internal/auth"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/testutils/memstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateRejectsGarbage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.sessions.Validate(ctx, "not.a.jwt", "", "")
	assert.ErrorIs(t, err, ErrSessionInvalid)

	other := *h.cfg
	other.JWTSecret = "some-other-secret-that-is-long-enough"
	forged := NewSessionService(h.db.Sessions(), h.db.Users(), memstore.NewCache(), &other, h.sessions.log)
	u, err := h.users.Get(ctx, h.employee, h.employee.UserID)
	require.NoError(t, err)
	issued, err := forged.Create(ctx, u, "", "")
	require.NoError(t, err)

	_, err = h.sessions.Validate(ctx, issued.Token, "", "")
	assert.ErrorIs(t, err, ErrSessionInvalid, "wrong signing key")
}

func TestValidateUnknownSession(t *testing.T) {
	h := newHarness(t)
	token, _, err := auth.GenerateJWT(h.cfg.JWTSecret, h.cfg.JWTIssuer, auth.Claims{
		UserID:    h.employee.UserID,
		Role:      rbac.RoleCompanyEmployee,
		SessionID: h.employee.SessionID,
	}, time.Hour)
	require.NoError(t, err)

	_, err = h.sessions.Validate(context.Background(), token, "", "")
	assert.ErrorIs(t, err, ErrSessionInvalid, "signed token without a session row")
}

func TestValidateUsesCacheAndRevocationEvicts(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.users.Get(ctx, h.employee, h.employee.UserID)
	require.NoError(t, err)

	issued, err := h.sessions.Create(ctx, u, "1.2.3.4", "test")
	require.NoError(t, err)

	actor, err := h.sessions.Validate(ctx, issued.Token, "1.2.3.4", "test")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", actor.IP)
	assert.Equal(t, 1, h.cache.Len())

	cached, err := h.cache.Get(ctx, auth.HashToken(issued.Token))
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Empty(t, cached.IP, "request metadata is not cached")

	n, err := h.sessions.RevokeAll(ctx, u.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Zero(t, h.cache.Len())

	_, err = h.sessions.Validate(ctx, issued.Token, "", "")
	assert.ErrorIs(t, err, ErrSessionRevoked)
}

func TestValidateDeactivatedUser(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, _ := h.newUser(t, rbac.RoleContractor)

	issued, err := h.sessions.Create(ctx, u, "", "")
	require.NoError(t, err)

	// Flip the flag directly so the session itself stays active.
	h.db.SetUserActive(u.ID, false)

	_, err = h.sessions.Validate(ctx, issued.Token, "", "")
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestValidateExpiredSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.users.Get(ctx, h.employee, h.employee.UserID)
	require.NoError(t, err)

	issued, err := h.sessions.Create(ctx, u, "", "")
	require.NoError(t, err)
	h.sessions.now = func() time.Time { return issued.ExpiresAt.Add(time.Second) }

	_, err = h.sessions.Validate(ctx, issued.Token, "", "")
	assert.ErrorIs(t, err, ErrSessionInvalid)
}

func TestRevokeOnlyOwnSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, actor := h.newUser(t, rbac.RoleClient)

	issued, err := h.sessions.Create(ctx, u, "", "")
	require.NoError(t, err)

	err = h.sessions.Revoke(ctx, h.employee, issued.SessionID)
	assert.Error(t, err, "another user's session")

	require.NoError(t, h.sessions.Revoke(ctx, actor, issued.SessionID))
	active, err := h.sessions.ListActive(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestCleanupExpired(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	u, err := h.users.Get(ctx, h.employee, h.employee.UserID)
	require.NoError(t, err)

	_, err = h.sessions.Create(ctx, u, "", "")
	require.NoError(t, err)

	n, err := h.sessions.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	h.sessions.now = func() time.Time { return time.Now().Add(h.cfg.JWTExpiration + 2*sessionRetention) }
	n, err = h.sessions.CleanupExpired(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestNopSessionCache(t *testing.T) {
	var c SessionCache = NopSessionCache{}
	got, err := c.Get(context.Background(), "x")
	assert.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, c.Set(context.Background(), "x", rbac.Actor{}, time.Minute))
	assert.NoError(t, c.Delete(context.Background(), "x"))
}

