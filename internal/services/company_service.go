package services

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"go.uber.org/zap"
)

type CompanyService struct {
	companyRepo CompanyStore
	audit       *AuditService
	log         *zap.Logger
}

func NewCompanyService(companyRepo CompanyStore, audit *AuditService, log *zap.Logger) *CompanyService {
	return &CompanyService{companyRepo: companyRepo, audit: audit, log: log}
}

type CompanyInput struct {
	Name         string
	ContactEmail *string
	ContactPhone *string
	Address      *string
	IsActive     *bool
}

func (s *CompanyService) Create(ctx context.Context, actor rbac.Actor, in CompanyInput) (*models.Company, error) {
	if !actor.Can(rbac.PermManageCompanies) {
		return nil, ErrEmployeeOnly
	}
	c := &models.Company{
		Name:         strings.TrimSpace(in.Name),
		ContactEmail: in.ContactEmail,
		ContactPhone: in.ContactPhone,
		Address:      in.Address,
		IsActive:     true,
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	if c.Name == "" {
		return nil, apperr.ValidationFields("company name is required", map[string]string{"name": "is required"})
	}

	if err := s.companyRepo.Create(ctx, c); err != nil {
		return nil, err
	}

	e := entryFor(actor, models.AuditCompanyCreated, models.EntityCompany, c.ID)
	e.NewValues = c
	s.audit.Record(ctx, e)
	return c, nil
}

// Get returns a company. Clients and contractors may only read their own.
func (s *CompanyService) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.Company, error) {
	if !actor.IsEmployee() && (actor.CompanyID == nil || *actor.CompanyID != id) {
		return nil, apperr.NotFound("company")
	}
	return s.companyRepo.GetByID(ctx, id)
}

func (s *CompanyService) List(ctx context.Context, actor rbac.Actor, f repositories.CompanyFilter) ([]models.Company, int, error) {
	if !actor.IsEmployee() {
		if actor.CompanyID == nil {
			return []models.Company{}, 0, nil
		}
		f.IDs = []uuid.UUID{*actor.CompanyID}
	}
	return s.companyRepo.List(ctx, f)
}

func (s *CompanyService) Update(ctx context.Context, actor rbac.Actor, id uuid.UUID, in CompanyInput) (*models.Company, error) {
	if !actor.Can(rbac.PermManageCompanies) {
		return nil, ErrEmployeeOnly
	}
	existing, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *existing

	if name := strings.TrimSpace(in.Name); name != "" {
		existing.Name = name
	}
	if in.ContactEmail != nil {
		existing.ContactEmail = in.ContactEmail
	}
	if in.ContactPhone != nil {
		existing.ContactPhone = in.ContactPhone
	}
	if in.Address != nil {
		existing.Address = in.Address
	}
	if in.IsActive != nil {
		existing.IsActive = *in.IsActive
	}

	if err := s.companyRepo.Update(ctx, existing); err != nil {
		return nil, err
	}

	e := entryFor(actor, models.AuditCompanyUpdated, models.EntityCompany, id)
	e.OldValues, e.NewValues = old, existing
	s.audit.Record(ctx, e)
	return existing, nil
}

// Delete removes a company. Companies still referenced by users or campaigns are kept
// and a conflict is returned.
func (s *CompanyService) Delete(ctx context.Context, actor rbac.Actor, id uuid.UUID) error {
	if !actor.Can(rbac.PermManageCompanies) {
		return ErrEmployeeOnly
	}
	existing, err := s.companyRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.companyRepo.Delete(ctx, id); err != nil {
		return err
	}

	e := entryFor(actor, models.AuditCompanyDeleted, models.EntityCompany, id)
	e.OldValues = existing
	s.audit.Record(ctx, e)
	return nil
}
