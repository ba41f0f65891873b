package middleware

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/rbac"
	"go.uber.org/zap"
)

const CtxActor = "actor"

// SessionValidator resolves a bearer token to the calling actor.
type SessionValidator interface {
	Validate(ctx context.Context, token, ip, userAgent string) (rbac.Actor, error)
}

func AuthMiddleware(sessions SessionValidator, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return apperr.Unauthorized("missing authorization header")
		}

		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenStr == authHeader || tokenStr == "" {
			return apperr.Unauthorized("invalid authorization format")
		}

		actor, err := sessions.Validate(c.UserContext(), tokenStr, c.IP(), c.Get(fiber.HeaderUserAgent))
		if err != nil {
			if apperr.Is(err, apperr.KindUnauthorized) {
				log.Debug("token rejected", zap.String("ip", c.IP()), zap.Error(err))
			}
			return err
		}

		c.Locals(CtxActor, actor)
		return c.Next()
	}
}

// GetActor returns the authenticated caller. It is the zero actor on public routes.
func GetActor(c *fiber.Ctx) rbac.Actor {
	a, _ := c.Locals(CtxActor).(rbac.Actor)
	return a
}

// RequireRoles allows the request through only for the given roles.
func RequireRoles(roles ...rbac.Role) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := GetActor(c)
		for _, r := range roles {
			if actor.Role == r {
				return c.Next()
			}
		}
		return apperr.Forbidden("this action requires role %s", joinRoles(roles))
	}
}

func joinRoles(roles []rbac.Role) string {
	s := make([]string, len(roles))
	for i, r := range roles {
		s[i] = string(r)
	}
	return strings.Join(s, " or ")
}
