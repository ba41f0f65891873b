package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"go.uber.org/zap"
)

type AuditEntry struct {
	UserID     *uuid.UUID
	Action     string
	EntityType string
	EntityID   *uuid.UUID
	OldValues  any
	NewValues  any
	IP         string
	UserAgent  string
}

// entryFor starts an audit entry attributed to the actor.
func entryFor(a rbac.Actor, action, entityType string, entityID uuid.UUID) AuditEntry {
	uid := a.UserID
	id := entityID
	return AuditEntry{
		UserID:     &uid,
		Action:     action,
		EntityType: entityType,
		EntityID:   &id,
		IP:         a.IP,
		UserAgent:  a.UserAgent,
	}
}

type AuditService struct {
	auditRepo AuditStore
	log       *zap.Logger
}

func NewAuditService(auditRepo AuditStore, log *zap.Logger) *AuditService {
	return &AuditService{auditRepo: auditRepo, log: log}
}

// Record writes an audit entry. Failures are logged and never surface to the
// operation being audited.
func (s *AuditService) Record(ctx context.Context, e AuditEntry) {
	err := s.auditRepo.Log(ctx, models.AuditLog{
		UserID:     e.UserID,
		Action:     e.Action,
		EntityType: e.EntityType,
		EntityID:   e.EntityID,
		OldValues:  e.OldValues,
		NewValues:  e.NewValues,
		IPAddress:  optional(e.IP),
		UserAgent:  optional(e.UserAgent),
	})
	if err != nil {
		s.log.Error("failed to write audit log", zap.String("action", e.Action), zap.String("entity_type", e.EntityType), zap.Error(err))
	}
}

func (s *AuditService) List(ctx context.Context, actor rbac.Actor, f repositories.AuditFilter) ([]models.AuditLog, int, error) {
	if !actor.Can(rbac.PermViewAuditLogs) {
		return nil, 0, ErrEmployeeOnly
	}
	return s.auditRepo.List(ctx, f)
}

// PurgeOlderThan deletes entries older than the given number of days. Zero or negative
// retention keeps everything.
func (s *AuditService) PurgeOlderThan(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	return s.auditRepo.PurgeOlderThan(ctx, time.Now().AddDate(0, 0, -days))
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
