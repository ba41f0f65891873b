package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/auth"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"go.uber.org/zap"
)

const (
	sessionTouchInterval = time.Minute
	sessionRetention     = 24 * time.Hour
)

type SessionService struct {
	sessionRepo SessionStore
	userRepo    UserStore
	cache       SessionCache
	cfg         *config.Config
	log         *zap.Logger
	now         func() time.Time
}

func NewSessionService(sessionRepo SessionStore, userRepo UserStore, cache SessionCache, cfg *config.Config, log *zap.Logger) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		userRepo:    userRepo,
		cache:       cache,
		cfg:         cfg,
		log:         log,
		now:         time.Now,
	}
}

type IssuedSession struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	SessionID uuid.UUID `json:"session_id"`
}

// Create signs a token for the user and records its session.
func (s *SessionService) Create(ctx context.Context, user *models.User, ip, userAgent string) (*IssuedSession, error) {
	sid := uuid.New()
	token, expiresAt, err := auth.GenerateJWT(s.cfg.JWTSecret, s.cfg.JWTIssuer, auth.Claims{
		UserID:    user.ID,
		Role:      user.Role,
		CompanyID: user.CompanyID,
		SessionID: sid,
	}, s.cfg.JWTExpiration)
	if err != nil {
		return nil, err
	}

	err = s.sessionRepo.Create(ctx, &models.UserSession{
		ID:        sid,
		UserID:    user.ID,
		TokenHash: auth.HashToken(token),
		IPAddress: optional(ip),
		UserAgent: optional(userAgent),
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return nil, err
	}
	return &IssuedSession{Token: token, ExpiresAt: expiresAt, SessionID: sid}, nil
}

// Validate resolves a bearer token to the calling actor.
func (s *SessionService) Validate(ctx context.Context, token, ip, userAgent string) (rbac.Actor, error) {
	claims, err := auth.ParseJWT(s.cfg.JWTSecret, s.cfg.JWTIssuer, token)
	if err != nil {
		return rbac.Actor{}, ErrSessionInvalid
	}
	hash := auth.HashToken(token)

	cached, err := s.cache.Get(ctx, hash)
	if err != nil {
		s.log.Warn("session cache read failed", zap.Error(err))
	}
	if cached != nil && cached.SessionID == claims.SessionID {
		cached.IP, cached.UserAgent = ip, userAgent
		return *cached, nil
	}

	sess, err := s.sessionRepo.GetByTokenHash(ctx, hash)
	if apperr.Is(err, apperr.KindNotFound) {
		return rbac.Actor{}, ErrSessionInvalid
	}
	if err != nil {
		return rbac.Actor{}, err
	}
	now := s.now()
	if sess.ID != claims.SessionID || sess.UserID != claims.UserID {
		return rbac.Actor{}, ErrSessionInvalid
	}
	if sess.RevokedAt != nil {
		return rbac.Actor{}, ErrSessionRevoked
	}
	if !sess.IsActive(now) {
		return rbac.Actor{}, ErrSessionInvalid
	}

	user, err := s.userRepo.GetByID(ctx, sess.UserID)
	if apperr.Is(err, apperr.KindNotFound) {
		return rbac.Actor{}, ErrSessionInvalid
	}
	if err != nil {
		return rbac.Actor{}, err
	}
	if !user.IsActive {
		return rbac.Actor{}, ErrUserInactive
	}

	if err := s.sessionRepo.Touch(ctx, sess.ID, sessionTouchInterval); err != nil {
		s.log.Warn("failed to touch session", zap.String("session_id", sess.ID.String()), zap.Error(err))
	}

	actor := user.Actor(sess.ID)
	if ttl := min(s.cfg.SessionCacheTTL, sess.ExpiresAt.Sub(now)); ttl > 0 {
		if err := s.cache.Set(ctx, hash, actor, ttl); err != nil {
			s.log.Warn("session cache write failed", zap.Error(err))
		}
	}

	actor.IP, actor.UserAgent = ip, userAgent
	return actor, nil
}

// Revoke ends one of the actor's own sessions.
func (s *SessionService) Revoke(ctx context.Context, actor rbac.Actor, sessionID uuid.UUID) error {
	hash, err := s.sessionRepo.Revoke(ctx, sessionID, actor.UserID)
	if err != nil {
		return err
	}
	s.evict(ctx, hash)
	return nil
}

// RevokeAll ends every session of the user except the given one and returns how many
// were revoked.
func (s *SessionService) RevokeAll(ctx context.Context, userID uuid.UUID, except *uuid.UUID) (int, error) {
	hashes, err := s.sessionRepo.RevokeAllForUser(ctx, userID, except)
	if err != nil {
		return 0, err
	}
	s.evict(ctx, hashes...)
	if len(hashes) > 0 {
		s.log.Info("sessions revoked", zap.String("user_id", userID.String()), zap.Int("count", len(hashes)))
	}
	return len(hashes), nil
}

func (s *SessionService) ListActive(ctx context.Context, userID uuid.UUID) ([]models.UserSession, error) {
	return s.sessionRepo.ListActiveByUser(ctx, userID)
}

// CleanupExpired deletes sessions that expired or were revoked more than a day ago.
func (s *SessionService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.sessionRepo.DeleteExpired(ctx, s.now().Add(-sessionRetention))
}

func (s *SessionService) evict(ctx context.Context, hashes ...string) {
	if len(hashes) == 0 {
		return
	}
	if err := s.cache.Delete(ctx, hashes...); err != nil {
		s.log.Warn("session cache eviction failed", zap.Int("count", len(hashes)), zap.Error(err))
	}
}
