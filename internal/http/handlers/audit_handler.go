package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"go.uber.org/zap"
)

type AuditHandler struct {
	auditService *services.AuditService
	log          *zap.Logger
}

func NewAuditHandler(auditService *services.AuditService, log *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, log: log}
}

func (h *AuditHandler) List(c *fiber.Ctx) error {
	userID, err := queryID(c, "user_id")
	if err != nil {
		return err
	}
	entityID, err := queryID(c, "entity_id")
	if err != nil {
		return err
	}
	from, err := queryTime(c, "from")
	if err != nil {
		return err
	}
	to, err := queryTime(c, "to")
	if err != nil {
		return err
	}
	limit, offset := page(c)

	logs, total, err := h.auditService.List(c.UserContext(), middleware.GetActor(c), repositories.AuditFilter{
		UserID:     userID,
		EntityType: c.Query("entity_type"),
		EntityID:   entityID,
		Action:     c.Query("action"),
		From:       from,
		To:         to,
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.List(logs, total, limit, offset))
}

func queryTime(c *fiber.Ctx, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil, apperr.ValidationFields("invalid filter", map[string]string{key: "must be an RFC 3339 timestamp"})
	}
	return &t, nil
}
