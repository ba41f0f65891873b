package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/http/dto"
	"github.com/postertrack/backend/internal/middleware"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/services"
	"go.uber.org/zap"
)

type CampaignHandler struct {
	campaignService *services.CampaignService
	log             *zap.Logger
}

func NewCampaignHandler(campaignService *services.CampaignService, log *zap.Logger) *CampaignHandler {
	return &CampaignHandler{campaignService: campaignService, log: log}
}

func (h *CampaignHandler) CreateCampaign(c *fiber.Ctx) error {
	var req dto.CreateCampaignRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	companyID, err := uuid.Parse(req.CompanyID)
	if err != nil {
		return apperr.ValidationFields("invalid request", map[string]string{"company_id": "must be a valid id"})
	}

	campaign, err := h.campaignService.Create(c.UserContext(), middleware.GetActor(c), services.CampaignInput{
		Name:        req.Name,
		Description: req.Description,
		CompanyID:   companyID,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return err
	}
	return created(c, campaign)
}

func (h *CampaignHandler) GetCampaign(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	campaign, err := h.campaignService.Get(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, campaign)
}

func (h *CampaignHandler) ListCampaigns(c *fiber.Ctx) error {
	companyID, err := queryID(c, "company_id")
	if err != nil {
		return err
	}
	limit, offset := page(c)
	filter := repositories.CampaignFilter{
		CompanyID: companyID,
		Search:    c.Query("search"),
		Limit:     limit,
		Offset:    offset,
	}
	if v := c.Query("status"); v != "" {
		status := models.CampaignStatus(v)
		filter.Status = &status
	}

	campaigns, total, err := h.campaignService.List(c.UserContext(), middleware.GetActor(c), filter)
	if err != nil {
		return err
	}
	return c.JSON(dto.List(campaigns, total, limit, offset))
}

func (h *CampaignHandler) UpdateCampaign(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.UpdateCampaignRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	campaign, err := h.campaignService.Update(c.UserContext(), middleware.GetActor(c), id, services.CampaignInput{
		Name:        req.Name,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
	})
	if err != nil {
		return err
	}
	return ok(c, campaign)
}

func (h *CampaignHandler) ChangeStatus(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.ChangeStatusRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	campaign, err := h.campaignService.ChangeStatus(c.UserContext(), middleware.GetActor(c), id, models.CampaignStatus(req.Status))
	if err != nil {
		return err
	}
	return ok(c, campaign)
}

func (h *CampaignHandler) DeleteCampaign(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	if err := h.campaignService.Delete(c.UserContext(), middleware.GetActor(c), id); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "campaign deleted"})
}

func (h *CampaignHandler) Stats(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	stats, err := h.campaignService.Stats(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, stats)
}

func (h *CampaignHandler) ListContractors(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	list, err := h.campaignService.ListAssignments(c.UserContext(), middleware.GetActor(c), id)
	if err != nil {
		return err
	}
	return ok(c, list)
}

func (h *CampaignHandler) AssignContractor(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	var req dto.AssignContractorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	contractorID, err := uuid.Parse(req.ContractorID)
	if err != nil {
		return apperr.ValidationFields("invalid request", map[string]string{"contractor_id": "must be a valid id"})
	}
	a, err := h.campaignService.AssignContractor(c.UserContext(), middleware.GetActor(c), id, contractorID)
	if err != nil {
		return err
	}
	return created(c, a)
}

func (h *CampaignHandler) UnassignContractor(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return err
	}
	contractorID, err := parseID(c, "contractorId")
	if err != nil {
		return err
	}
	if err := h.campaignService.UnassignContractor(c.UserContext(), middleware.GetActor(c), id, contractorID); err != nil {
		return err
	}
	return ok(c, dto.MessageResponse{Message: "contractor unassigned"})
}
