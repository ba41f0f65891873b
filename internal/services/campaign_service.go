package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/events"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/storage"
	"go.uber.org/zap"
)

type CampaignService struct {
	campaignRepo   CampaignStore
	assignmentRepo AssignmentStore
	companyRepo    CompanyStore
	userRepo       UserStore
	imageRepo      ImageStore
	files          FileStore
	mirror         storage.Mirror
	audit          *AuditService
	publisher      events.Publisher
	log            *zap.Logger
	now            func() time.Time
}

func NewCampaignService(
	campaignRepo CampaignStore,
	assignmentRepo AssignmentStore,
	companyRepo CompanyStore,
	userRepo UserStore,
	imageRepo ImageStore,
	files FileStore,
	mirror storage.Mirror,
	audit *AuditService,
	publisher events.Publisher,
	log *zap.Logger,
) *CampaignService {
	return &CampaignService{
		campaignRepo:   campaignRepo,
		assignmentRepo: assignmentRepo,
		companyRepo:    companyRepo,
		userRepo:       userRepo,
		imageRepo:      imageRepo,
		files:          files,
		mirror:         mirror,
		audit:          audit,
		publisher:      publisher,
		log:            log,
		now:            time.Now,
	}
}

type CampaignInput struct {
	Name        string
	Description *string
	CompanyID   uuid.UUID
	StartDate   *time.Time
	EndDate     *time.Time
}

func validateCampaign(name string, start, end *time.Time) error {
	fields := map[string]string{}
	if strings.TrimSpace(name) == "" {
		fields["name"] = "is required"
	}
	if start != nil && end != nil && end.Before(*start) {
		fields["end_date"] = "must not be before start_date"
	}
	if len(fields) > 0 {
		return apperr.ValidationFields("invalid campaign data", fields)
	}
	return nil
}

func (s *CampaignService) Create(ctx context.Context, actor rbac.Actor, in CampaignInput) (*models.Campaign, error) {
	if !actor.Can(rbac.PermManageCampaigns) {
		return nil, ErrEmployeeOnly
	}
	if err := validateCampaign(in.Name, in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	company, err := s.companyRepo.GetByID(ctx, in.CompanyID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.ValidationFields("invalid campaign data", map[string]string{"company_id": "company does not exist"})
	}
	if err != nil {
		return nil, err
	}
	if !company.IsActive {
		return nil, apperr.ValidationFields("invalid campaign data", map[string]string{"company_id": "company is not active"})
	}

	c := &models.Campaign{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CompanyID:   in.CompanyID,
		Status:      models.CampaignStatusNew,
		StartDate:   in.StartDate,
		EndDate:     in.EndDate,
		CreatedBy:   actor.UserID,
	}
	if err := s.campaignRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	e := entryFor(actor, models.AuditCampaignCreated, models.EntityCampaign, c.ID)
	e.NewValues = c
	s.audit.Record(ctx, e)
	s.publish(ctx, c, events.EventCampaignCreated, nil, map[string]any{"name": c.Name})
	return c, nil
}

// Get returns a campaign the actor may see. Invisible campaigns are reported as missing.
func (s *CampaignService) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.CampaignWithCompany, error) {
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	ok, err := s.canSee(ctx, actor, &c.Campaign)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.NotFound("campaign")
	}
	return c, nil
}

func (s *CampaignService) canSee(ctx context.Context, actor rbac.Actor, c *models.Campaign) (bool, error) {
	switch actor.Role {
	case rbac.RoleCompanyEmployee:
		return true, nil
	case rbac.RoleClient:
		return actor.CompanyID != nil && *actor.CompanyID == c.CompanyID, nil
	case rbac.RoleContractor:
		return s.campaignRepo.IsVisible(ctx, c.ID, rbac.ScopeFor(actor))
	}
	return false, nil
}

func (s *CampaignService) List(ctx context.Context, actor rbac.Actor, f repositories.CampaignFilter) ([]models.CampaignWithCompany, int, error) {
	if f.Status != nil && !models.IsValidCampaignStatus(*f.Status) {
		return nil, 0, apperr.ValidationFields("invalid filter", map[string]string{"status": "unknown campaign status"})
	}
	f.Scope = rbac.ScopeFor(actor)
	return s.campaignRepo.List(ctx, f)
}

// Update edits campaign details. Completed and cancelled campaigns are read-only.
func (s *CampaignService) Update(ctx context.Context, actor rbac.Actor, id uuid.UUID, in CampaignInput) (*models.CampaignWithCompany, error) {
	if !actor.Can(rbac.PermManageCampaigns) {
		return nil, ErrEmployeeOnly
	}
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, apperr.Conflict("campaign is %s and can no longer be edited", c.Status)
	}
	old := c.Campaign

	if name := strings.TrimSpace(in.Name); name != "" {
		c.Name = name
	}
	if in.Description != nil {
		c.Description = in.Description
	}
	if in.StartDate != nil {
		c.StartDate = in.StartDate
	}
	if in.EndDate != nil {
		c.EndDate = in.EndDate
	}
	if err := validateCampaign(c.Name, c.StartDate, c.EndDate); err != nil {
		return nil, err
	}

	if err := s.campaignRepo.Update(ctx, &c.Campaign); err != nil {
		return nil, err
	}

	e := entryFor(actor, models.AuditCampaignUpdated, models.EntityCampaign, id)
	e.OldValues, e.NewValues = old, c.Campaign
	s.audit.Record(ctx, e)
	return c, nil
}

// ChangeStatus moves a campaign through its lifecycle.
func (s *CampaignService) ChangeStatus(ctx context.Context, actor rbac.Actor, id uuid.UUID, to models.CampaignStatus) (*models.CampaignWithCompany, error) {
	if !actor.Can(rbac.PermManageCampaigns) {
		return nil, ErrEmployeeOnly
	}
	if !models.IsValidCampaignStatus(to) {
		return nil, apperr.ValidationFields("invalid status", map[string]string{"status": "unknown campaign status"})
	}
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.transition(ctx, actor, &c.Campaign, to); err != nil {
		return nil, err
	}
	return c, nil
}

// transition validates and performs a status transition with audit logging.
func (s *CampaignService) transition(ctx context.Context, actor rbac.Actor, c *models.Campaign, to models.CampaignStatus) error {
	from := c.Status
	if !models.CanTransitionCampaign(from, to) {
		return apperr.Validation("cannot change campaign status from %s to %s", from, to)
	}

	var completedAt *time.Time
	if to == models.CampaignStatusCompleted {
		now := s.now()
		completedAt = &now
	}
	updatedAt, err := s.campaignRepo.UpdateStatus(ctx, c.ID, from, to, completedAt)
	if err != nil {
		return err
	}
	c.Status = to
	c.UpdatedAt = updatedAt
	if completedAt != nil {
		c.CompletedAt = completedAt
	}

	e := entryFor(actor, models.AuditCampaignStatusChanged, models.EntityCampaign, c.ID)
	e.OldValues = map[string]any{"status": from}
	e.NewValues = map[string]any{"status": to}
	s.audit.Record(ctx, e)

	s.publish(ctx, c, events.EventCampaignStatusChanged, nil, map[string]any{
		"old_status": from,
		"new_status": to,
	})
	return nil
}

// Delete removes a campaign that never started or was cancelled, together with its
// images and their files.
func (s *CampaignService) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	if !actor.Can(rbac.PermManageCampaigns) {
		return ErrEmployeeOnly
	}
	c, err := s.campaignRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if c.Status != models.CampaignStatusNew && c.Status != models.CampaignStatusCancelled {
		return apperr.Conflict("only new or cancelled campaigns can be deleted, campaign is %s", c.Status)
	}

	paths, err := s.imageRepo.StoredPaths(ctx, id)
	if err != nil {
		return err
	}
	if err := s.campaignRepo.Delete(ctx, id); err != nil {
		return err
	}
	removeStored(ctx, s.files, s.mirror, s.log, paths...)

	e := entryFor(actor, models.AuditCampaignDeleted, models.EntityCampaign, id)
	e.OldValues = c.Campaign
	s.audit.Record(ctx, e)
	return nil
}

// AssignContractor gives a contractor access to a campaign that is still open.
func (s *CampaignService) AssignContractor(ctx context.Context, actor rbac.Actor, campaignID, contractorID uuid.UUID) (*models.CampaignAssignment, error) {
	if !actor.Can(rbac.PermManageAssignments) {
		return nil, ErrEmployeeOnly
	}
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return nil, err
	}
	if c.Status.IsTerminal() {
		return nil, apperr.Conflict("cannot assign contractors to a %s campaign", c.Status)
	}

	u, err := s.userRepo.GetByID(ctx, contractorID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil, apperr.ValidationFields("invalid assignment", map[string]string{"contractor_id": "user does not exist"})
	}
	if err != nil {
		return nil, err
	}
	if u.Role != rbac.RoleContractor {
		return nil, apperr.ValidationFields("invalid assignment", map[string]string{"contractor_id": "user is not a contractor"})
	}
	if !u.IsActive {
		return nil, apperr.ValidationFields("invalid assignment", map[string]string{"contractor_id": "contractor is deactivated"})
	}

	assignedBy := actor.UserID
	a := &models.CampaignAssignment{CampaignID: campaignID, ContractorID: contractorID, AssignedBy: &assignedBy}
	if err := s.assignmentRepo.Create(ctx, a); err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return nil, apperr.Conflict("contractor is already assigned to this campaign")
		}
		return nil, err
	}

	e := entryFor(actor, models.AuditContractorAssigned, models.EntityCampaign, campaignID)
	e.NewValues = map[string]any{"contractor_id": contractorID}
	s.audit.Record(ctx, e)
	s.publish(ctx, &c.Campaign, events.EventContractorAssigned, nil, map[string]any{"contractor_id": contractorID.String()})
	return a, nil
}

func (s *CampaignService) UnassignContractor(ctx context.Context, actor rbac.Actor, campaignID, contractorID uuid.UUID) error {
	if !actor.Can(rbac.PermManageAssignments) {
		return ErrEmployeeOnly
	}
	c, err := s.campaignRepo.GetByID(ctx, campaignID)
	if err != nil {
		return err
	}
	if err := s.assignmentRepo.Delete(ctx, campaignID, contractorID); err != nil {
		return err
	}

	e := entryFor(actor, models.AuditContractorUnassigned, models.EntityCampaign, campaignID)
	e.OldValues = map[string]any{"contractor_id": contractorID}
	s.audit.Record(ctx, e)
	// The removed contractor still gets this one event.
	s.publish(ctx, &c.Campaign, events.EventContractorUnassigned, []uuid.UUID{contractorID}, map[string]any{"contractor_id": contractorID.String()})
	return nil
}

func (s *CampaignService) ListAssignments(ctx context.Context, actor rbac.Actor, campaignID uuid.UUID) ([]models.AssignmentWithContractor, error) {
	if _, err := s.Get(ctx, actor, campaignID); err != nil {
		return nil, err
	}
	return s.assignmentRepo.ListByCampaign(ctx, campaignID)
}

func (s *CampaignService) Stats(ctx context.Context, actor rbac.Actor, campaignID uuid.UUID) (*models.CampaignStats, error) {
	if _, err := s.Get(ctx, actor, campaignID); err != nil {
		return nil, err
	}
	return s.campaignRepo.Stats(ctx, campaignID)
}

// publish sends a campaign event addressed to the owning company and the assigned
// contractors plus any extra recipients.
func (s *CampaignService) publish(ctx context.Context, c *models.Campaign, eventType string, extra []uuid.UUID, payload map[string]any) {
	contractors, err := s.assignmentRepo.ContractorIDs(ctx, c.ID)
	if err != nil {
		s.log.Warn("failed to load event recipients", zap.String("campaign_id", c.ID.String()), zap.Error(err))
	}
	payload["campaign_id"] = c.ID.String()
	payload["status"] = c.Status

	companyID := c.CompanyID
	err = s.publisher.Publish(ctx, events.StreamCampaign, events.Event{
		Type:          eventType,
		CompanyID:     &companyID,
		ContractorIDs: append(contractors, extra...),
		Payload:       payload,
	})
	if err != nil {
		s.log.Error("failed to publish campaign event", zap.String("type", eventType), zap.Error(err))
	}
}
