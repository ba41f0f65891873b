package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/auth"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"go.uber.org/zap"
)

type AuthService struct {
	userRepo  UserStore
	resetRepo PasswordResetStore
	sessions  *SessionService
	audit     *AuditService
	publisher events.Publisher
	cfg       *config.Config
	log       *zap.Logger
	now       func() time.Time
}

func NewAuthService(
	userRepo UserStore,
	resetRepo PasswordResetStore,
	sessions *SessionService,
	audit *AuditService,
	publisher events.Publisher,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		userRepo:  userRepo,
		resetRepo: resetRepo,
		sessions:  sessions,
		audit:     audit,
		publisher: publisher,
		cfg:       cfg,
		log:       log,
		now:       time.Now,
	}
}

type LoginResult struct {
	Session *IssuedSession `json:"session"`
	User    *models.User   `json:"user"`
}

// Login checks credentials and opens a session. Unknown emails, wrong passwords and
// deactivated accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, email, password, ip, userAgent string) (*LoginResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(user.PasswordHash, password) || !user.IsActive {
		s.log.Info("login failed", zap.String("user_id", user.ID.String()), zap.Bool("active", user.IsActive))
		return nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(ctx, user, ip, userAgent)
	if err != nil {
		return nil, err
	}
	if err := s.userRepo.UpdateLastLogin(ctx, user.ID); err != nil {
		s.log.Warn("failed to update last login", zap.String("user_id", user.ID.String()), zap.Error(err))
	}
	now := s.now()
	user.LastLoginAt = &now

	actor := user.Actor(sess.SessionID)
	actor.IP, actor.UserAgent = ip, userAgent
	s.audit.Record(ctx, entryFor(actor, models.AuditLogin, models.EntitySession, sess.SessionID))

	return &LoginResult{Session: sess, User: user}, nil
}

func (s *AuthService) Logout(ctx context.Context, actor rbac.Actor) error {
	if err := s.sessions.Revoke(ctx, actor, actor.SessionID); err != nil {
		return err
	}
	s.audit.Record(ctx, entryFor(actor, models.AuditLogout, models.EntitySession, actor.SessionID))
	return nil
}

// LogoutAll revokes every session of the caller, including the current one.
func (s *AuthService) LogoutAll(ctx context.Context, actor rbac.Actor) (int, error) {
	n, err := s.sessions.RevokeAll(ctx, actor.UserID, nil)
	if err != nil {
		return 0, err
	}
	e := entryFor(actor, models.AuditLogout, models.EntitySession, actor.SessionID)
	e.NewValues = map[string]any{"revoked_sessions": n}
	s.audit.Record(ctx, e)
	return n, nil
}

func (s *AuthService) Me(ctx context.Context, actor rbac.Actor) (*models.User, error) {
	return s.userRepo.GetByID(ctx, actor.UserID)
}

// ChangePassword replaces the caller's password and ends their other sessions.
func (s *AuthService) ChangePassword(ctx context.Context, actor rbac.Actor, current, next string) error {
	user, err := s.userRepo.GetByID(ctx, actor.UserID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(user.PasswordHash, current) {
		return apperr.ValidationFields("current password is incorrect", map[string]string{"current_password": "is incorrect"})
	}
	if err := checkStrength("new_password", next); err != nil {
		return err
	}

	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return err
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return err
	}

	except := actor.SessionID
	if _, err := s.sessions.RevokeAll(ctx, user.ID, &except); err != nil {
		return err
	}
	s.audit.Record(ctx, entryFor(actor, models.AuditPasswordChanged, models.EntityUser, user.ID))
	return nil
}

// RequestPasswordReset issues a reset token and hands it to the mailer through the auth
// stream. It reports success for unknown or deactivated emails too.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email, ip, userAgent string) error {
	user, err := s.userRepo.GetByEmail(ctx, strings.TrimSpace(email))
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if !user.IsActive {
		s.log.Info("password reset requested for inactive user", zap.String("user_id", user.ID.String()))
		return nil
	}

	token, err := auth.NewOpaqueToken()
	if err != nil {
		return err
	}
	expiresAt := s.now().Add(s.cfg.PasswordResetTTL)
	if err := s.resetRepo.Create(ctx, &models.PasswordResetToken{
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		ExpiresAt: expiresAt,
	}); err != nil {
		return err
	}

	err = s.publisher.Publish(ctx, events.StreamAuth, events.Event{
		Type: events.EventPasswordResetRequested,
		Payload: map[string]any{
			"user_id":    user.ID.String(),
			"email":      user.Email,
			"first_name": user.FirstName,
			"token":      token,
			"expires_at": expiresAt,
		},
	})
	if err != nil {
		s.log.Error("failed to publish password reset event", zap.String("user_id", user.ID.String()), zap.Error(err))
	}

	uid := user.ID
	s.audit.Record(ctx, AuditEntry{
		UserID:     &uid,
		Action:     models.AuditPasswordResetRequest,
		EntityType: models.EntityUser,
		EntityID:   &uid,
		IP:         ip,
		UserAgent:  userAgent,
	})
	return nil
}

// ConfirmPasswordReset consumes a reset token, sets the new password and revokes every
// session of the user.
func (s *AuthService) ConfirmPasswordReset(ctx context.Context, token, newPassword, ip, userAgent string) error {
	if strings.TrimSpace(token) == "" {
		return ErrTokenInvalid
	}
	if err := checkStrength("new_password", newPassword); err != nil {
		return err
	}
	hash, err := auth.HashPassword(newPassword, s.cfg.BcryptCost)
	if err != nil {
		return err
	}

	res, err := s.resetRepo.Consume(ctx, auth.HashToken(token), hash, s.now())
	if errors.Is(err, repositories.ErrResetTokenUnusable) {
		return ErrTokenInvalid
	}
	if err != nil {
		return err
	}
	s.sessions.evict(ctx, res.RevokedHashes...)

	uid := res.UserID
	s.audit.Record(ctx, AuditEntry{
		UserID:     &uid,
		Action:     models.AuditPasswordResetComplete,
		EntityType: models.EntityUser,
		EntityID:   &uid,
		NewValues:  map[string]any{"revoked_sessions": len(res.RevokedHashes)},
		IP:         ip,
		UserAgent:  userAgent,
	})
	return nil
}

// CleanupResetTokens deletes reset tokens that expired or were used more than a day ago.
func (s *AuthService) CleanupResetTokens(ctx context.Context) (int64, error) {
	return s.resetRepo.DeleteExpired(ctx, s.now().Add(-sessionRetention))
}

func checkStrength(field, password string) error {
	if err := auth.ValidatePasswordStrength(password); err != nil {
		return apperr.ValidationFields("password is too weak", map[string]string{field: err.Error()})
	}
	return nil
}
