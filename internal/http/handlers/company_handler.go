package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"go.uber.org/zap"
)

type CompanyHandler struct {
	companyService *services.CompanyService
	log            *zap.Logger
}

func NewCompanyHandler(companyService *services.CompanyService, log *zap.Logger) *CompanyHandler {
	return &CompanyHandler{companyService: companyService, log: log}
}

func (h *CompanyHandler) Create(c *fiber.Ctx) error {
	var req dto.CompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.companyService.Create(c.UserContext(), middleware.GetActor(c), services.CompanyInput{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return err
	}
	return created(c, company)
}

func (h *CompanyHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	company, err := h.companyService.Get(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, company)
}

func (h *CompanyHandler) List(c *fiber.Ctx) error {
	active, err := queryBool(c, "is_active")
	if err != nil {
		return err
	}
	limit, offset := page(c)
	list, total, err := h.companyService.List(c.UserContext(), middleware.GetActor(c), repositories.CompanyFilter{
		Search:   c.Query("search"),
		IsActive: active,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		return err
	}
	return c.JSON(dto.List(list, total, limit, offset))
}

func (h *CompanyHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateCompanyRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	company, err := h.companyService.Update(c.UserContext(), middleware.GetActor(c), id, services.CompanyInput{
		Name:         req.Name,
		ContactEmail: req.ContactEmail,
		ContactPhone: req.ContactPhone,
		Address:      req.Address,
		IsActive:     req.IsActive,
	})
	if err != nil {
		return err
	}
	return ok(c, company)
}

func (h *CompanyHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.companyService.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "company deleted"})
}
