package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"go.uber.org/zap"
)

type UserHandler struct {
	userService *services.UserService
	log         *zap.Logger
}

func NewUserHandler(userService *services.UserService, log *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, log: log}
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := parseOptionalID(req.CompanyID, "company_id")
	if err != nil {
		return err
	}
	user, err := h.userService.Create(c.UserContext(), middleware.GetActor(c), services.CreateUserInput{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		Role:      rbac.Role(req.Role),
		CompanyID: companyID,
	})
	if err != nil {
		return err
	}
	return created(c, user)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.Get(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, user)
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	f, err := userFilter(c)
	if err != nil {
		return err
	}
	if v := c.Query("role"); v != "" {
		role := rbac.Role(v)
		if !rbac.IsValidRole(role) {
			return apperr.ValidationFields("invalid filter", map[string]string{"role": "unknown role"})
		}
		f.Role = &role
	}
	list, total, err := h.userService.List(c.UserContext(), middleware.GetActor(c), f)
	if err != nil {
		return err
	}
	return c.JSON(dto.List(list, total, f.Limit, f.Offset))
}

func (h *UserHandler) ListContractors(c *fiber.Ctx) error {
	f, err := userFilter(c)
	if err != nil {
		return err
	}
	list, total, err := h.userService.ListContractors(c.UserContext(), middleware.GetActor(c), f.CompanyID, f.Search, f.Limit, f.Offset)
	if err != nil {
		return err
	}
	return c.JSON(dto.List(list, total, f.Limit, f.Offset))
}

func userFilter(c *fiber.Ctx) (repositories.UserFilter, error) {
	companyID, err := queryID(c, "company_id")
	if err != nil {
		return repositories.UserFilter{}, err
	}
	active, err := queryBool(c, "is_active")
	if err != nil {
		return repositories.UserFilter{}, err
	}
	limit, offset := page(c)
	return repositories.UserFilter{
		CompanyID: companyID,
		IsActive:  active,
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
	}, nil
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := parseOptionalID(req.CompanyID, "company_id")
	if err != nil {
		return err
	}
	in := services.UpdateUserInput{
		Email:        req.Email,
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Phone:        req.Phone,
		CompanyID:    companyID,
		ClearCompany: req.ClearCompany,
		IsActive:     req.IsActive,
	}
	if req.Role != nil {
		role := rbac.Role(*req.Role)
		in.Role = &role
	}
	user, err := h.userService.Update(c.UserContext(), middleware.GetActor(c), id, in)
	if err != nil {
		return err
	}
	return ok(c, user)
}

func (h *UserHandler) Activate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.Activate(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, user)
}

func (h *UserHandler) Deactivate(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	user, err := h.userService.Deactivate(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, user)
}
