package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/services"
	"go.uber.org/zap"
)

type AuthHandler struct {
	authService *services.AuthService
	sessions    *services.SessionService
	log         *zap.Logger
}

func NewAuthHandler(authService *services.AuthService, sessions *services.SessionService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, log: log}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.authService.Login(c.UserContext(), req.Email, req.Password, c.IP(), c.Get(fiber.HeaderUserAgent))
	if err != nil {
		return err
	}
	return ok(c, res)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	user, err := h.authService.Me(c.UserContext(), middleware.GetActor(c))
	if err != nil {
		return err
	}
	return ok(c, user)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.GetActor(c)); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(c *fiber.Ctx) error {
	n, err := h.authService.LogoutAll(c.UserContext(), middleware.GetActor(c))
	if err != nil {
		return err
	}
	return ok(c, dto.RevokedResponse{Revoked: n})
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), middleware.GetActor(c), req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "password changed"})
}

// RequestPasswordReset always answers the same way so callers cannot probe for accounts.
func (h *AuthHandler) RequestPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.RequestPasswordReset(c.UserContext(), req.Email, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "if the account exists, reset instructions have been sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *fiber.Ctx) error {
	var req dto.PasswordResetConfirmRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ConfirmPasswordReset(c.UserContext(), req.Token, req.NewPassword, c.IP(), c.Get(fiber.HeaderUserAgent)); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "password has been reset"})
}

func (h *AuthHandler) ListSessions(c *fiber.Ctx) error {
	list, err := h.sessions.ListActive(c.UserContext(), middleware.GetActor(c).UserID)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *AuthHandler) RevokeSession(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.sessions.Revoke(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "session revoked"})
}
