package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/http/dto"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

func parseID(c *fiber.Ctx, param string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params(param))
	if err != nil {
		return uuid.Nil, apperr.ValidationFields("invalid id", map[string]string{param: "must be a valid id"})
	}
	return id, nil
}

func parseOptionalID(raw *string, field string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, apperr.ValidationFields("invalid id", map[string]string{field: "must be a valid id"})
	}
	return &id, nil
}

func queryID(c *fiber.Ctx, key string) (*uuid.UUID, error) {
	v := c.Query(key)
	return parseOptionalID(&v, key)
}

// page reads limit and offset query parameters, clamped to sane bounds.
func page(c *fiber.Ctx) (limit, offset int) {
	limit, offset = defaultLimit, 0
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}

func queryBool(c *fiber.Ctx, key string) (*bool, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil, apperr.ValidationFields("invalid filter", map[string]string{key: "must be true or false"})
	}
	return &b, nil
}

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperr.Validation("invalid request body")
	}
	return dto.Validate(req)
}

func created(c *fiber.Ctx, data any) error {
	return c.Status(fiber.StatusCreated).JSON(dto.OK(data))
}

func ok(c *fiber.Ctx, data any) error {
	return c.JSON(dto.OK(data))
}
