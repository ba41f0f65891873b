package services

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/auth"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"go.uber.org/zap"
)

type UserService struct {
	userRepo       UserStore
	companyRepo    CompanyStore
	assignmentRepo AssignmentStore
	sessions       *SessionService
	audit          *AuditService
	cfg            *config.Config
	log            *zap.Logger
}

func NewUserService(
	userRepo UserStore,
	companyRepo CompanyStore,
	assignmentRepo AssignmentStore,
	sessions *SessionService,
	audit *AuditService,
	cfg *config.Config,
	log *zap.Logger,
) *UserService {
	return &UserService{
		userRepo:       userRepo,
		companyRepo:    companyRepo,
		assignmentRepo: assignmentRepo,
		sessions:       sessions,
		audit:          audit,
		cfg:            cfg,
		log:            log,
	}
}

type CreateUserInput struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     *string
	Role      rbac.Role
	CompanyID *uuid.UUID
}

func (s *UserService) Create(ctx context.Context, actor rbac.Actor, in CreateUserInput) (*models.User, error) {
	if !actor.Can(rbac.PermManageUsers) {
		return nil, ErrEmployeeOnly
	}
	return s.create(ctx, in, &actor)
}

// Bootstrap creates a company employee without an acting user. It is used by the
// operator CLI to seed the first account.
func (s *UserService) Bootstrap(ctx context.Context, in CreateUserInput) (*models.User, error) {
	in.Role = rbac.RoleCompanyEmployee
	in.CompanyID = nil
	return s.create(ctx, in, nil)
}

func (s *UserService) create(ctx context.Context, in CreateUserInput, actor *rbac.Actor) (*models.User, error) {
	fields := map[string]string{}
	email, ok := normalizeEmail(in.Email)
	if !ok {
		fields["email"] = "must be a valid email address"
	}
	if strings.TrimSpace(in.FirstName) == "" {
		fields["first_name"] = "is required"
	}
	if !rbac.IsValidRole(in.Role) {
		fields["role"] = "must be one of company_employee, client, contractor"
	} else if err := rbac.ValidateCompanyForRole(in.Role, in.CompanyID); err != nil {
		fields["company_id"] = err.Error()
	}
	if err := auth.ValidatePasswordStrength(in.Password); err != nil {
		fields["password"] = err.Error()
	}
	if len(fields) > 0 {
		return nil, apperr.ValidationFields("invalid user data", fields)
	}

	if err := s.requireActiveCompany(ctx, in.CompanyID); err != nil {
		return nil, err
	}

	hash, err := auth.HashPassword(in.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, err
	}
	u := &models.User{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        in.Phone,
		Role:         in.Role,
		CompanyID:    in.CompanyID,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, err
	}

	var e AuditEntry
	if actor != nil {
		e = entryFor(*actor, models.AuditUserCreated, models.EntityUser, u.ID)
	} else {
		id := u.ID
		e = AuditEntry{Action: models.AuditUserCreated, EntityType: models.EntityUser, EntityID: &id}
	}
	e.NewValues = map[string]any{"email": u.Email, "role": u.Role, "company_id": u.CompanyID}
	s.audit.Record(ctx, e)
	return u, nil
}

// Get returns a user. Non-employees may only read themselves.
func (s *UserService) Get(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.User, error) {
	if !actor.IsEmployee() && actor.UserID != id {
		return nil, apperr.Forbidden("you can only view your own profile")
	}
	return s.userRepo.GetByID(ctx, id)
}

func (s *UserService) List(ctx context.Context, actor rbac.Actor, f repositories.UserFilter) ([]models.User, int, error) {
	if !actor.Can(rbac.PermManageUsers) {
		return nil, 0, ErrEmployeeOnly
	}
	return s.userRepo.List(ctx, f)
}

// ListContractors returns active contractors, optionally of one company.
func (s *UserService) ListContractors(ctx context.Context, actor rbac.Actor, companyID *uuid.UUID, search string, limit, offset int) ([]models.User, int, error) {
	role := rbac.RoleContractor
	active := true
	return s.List(ctx, actor, repositories.UserFilter{
		Role:      &role,
		CompanyID: companyID,
		IsActive:  &active,
		Search:    search,
		Limit:     limit,
		Offset:    offset,
	})
}

type UpdateUserInput struct {
	Email     *string
	FirstName *string
	LastName  *string
	Phone     *string
	Role      *rbac.Role
	CompanyID *uuid.UUID
	// ClearCompany unlinks the user from its company, used when promoting to employee.
	ClearCompany bool
	IsActive     *bool
}

// Update changes a user. Employees may change any field; other users may only edit
// their own name and phone. Role, company or activation changes end the user's sessions.
func (s *UserService) Update(ctx context.Context, actor rbac.Actor, id uuid.UUID, in UpdateUserInput) (*models.User, error) {
	self := actor.UserID == id
	if !actor.IsEmployee() {
		if !self {
			return nil, apperr.Forbidden("you can only edit your own profile")
		}
		if in.Email != nil || in.Role != nil || in.CompanyID != nil || in.ClearCompany || in.IsActive != nil {
			return nil, apperr.Forbidden("only company employees can change email, role, company or activation")
		}
	}

	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	old := *u

	if in.Email != nil {
		email, ok := normalizeEmail(*in.Email)
		if !ok {
			return nil, apperr.ValidationFields("invalid user data", map[string]string{"email": "must be a valid email address"})
		}
		u.Email = email
	}
	if in.FirstName != nil {
		if strings.TrimSpace(*in.FirstName) == "" {
			return nil, apperr.ValidationFields("invalid user data", map[string]string{"first_name": "is required"})
		}
		u.FirstName = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		u.LastName = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		u.Phone = in.Phone
	}
	if in.Role != nil {
		if !rbac.IsValidRole(*in.Role) {
			return nil, apperr.ValidationFields("invalid user data", map[string]string{"role": "must be one of company_employee, client, contractor"})
		}
		u.Role = *in.Role
	}
	if in.ClearCompany {
		u.CompanyID = nil
	} else if in.CompanyID != nil {
		u.CompanyID = in.CompanyID
	}
	if in.IsActive != nil {
		if self && !*in.IsActive {
			return nil, apperr.Validation("you cannot deactivate your own account")
		}
		u.IsActive = *in.IsActive
	}

	if err := rbac.ValidateCompanyForRole(u.Role, u.CompanyID); err != nil {
		return nil, apperr.ValidationFields("invalid user data", map[string]string{"company_id": err.Error()})
	}
	if !sameUUID(old.CompanyID, u.CompanyID) {
		if err := s.requireActiveCompany(ctx, u.CompanyID); err != nil {
			return nil, err
		}
	}
	if old.Role == rbac.RoleContractor && u.Role != rbac.RoleContractor {
		n, err := s.assignmentRepo.CountByContractor(ctx, u.ID)
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, apperr.Conflict("user is assigned to %d campaign(s), unassign them before changing the role", n)
		}
	}

	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, err
	}

	if old.Role != u.Role || !sameUUID(old.CompanyID, u.CompanyID) || (old.IsActive && !u.IsActive) {
		if _, err := s.sessions.RevokeAll(ctx, u.ID, nil); err != nil {
			s.log.Error("failed to revoke sessions after user update", zap.String("user_id", u.ID.String()), zap.Error(err))
		}
	}

	action := models.AuditUserUpdated
	switch {
	case old.IsActive && !u.IsActive:
		action = models.AuditUserDeactivated
	case !old.IsActive && u.IsActive:
		action = models.AuditUserActivated
	}
	e := entryFor(actor, action, models.EntityUser, u.ID)
	e.OldValues, e.NewValues = userAuditView(&old), userAuditView(u)
	s.audit.Record(ctx, e)
	return u, nil
}

func (s *UserService) Activate(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.User, error) {
	if !actor.Can(rbac.PermManageUsers) {
		return nil, ErrEmployeeOnly
	}
	active := true
	return s.Update(ctx, actor, id, UpdateUserInput{IsActive: &active})
}

func (s *UserService) Deactivate(ctx context.Context, actor rbac.Actor, id uuid.UUID) (*models.User, error) {
	if !actor.Can(rbac.PermManageUsers) {
		return nil, ErrEmployeeOnly
	}
	if actor.UserID == id {
		return nil, apperr.Validation("you cannot deactivate your own account")
	}
	active := false
	return s.Update(ctx, actor, id, UpdateUserInput{IsActive: &active})
}

func (s *UserService) requireActiveCompany(ctx context.Context, companyID *uuid.UUID) error {
	if companyID == nil {
		return nil
	}
	c, err := s.companyRepo.GetByID(ctx, *companyID)
	if apperr.Is(err, apperr.KindNotFound) {
		return apperr.ValidationFields("invalid user data", map[string]string{"company_id": "company does not exist"})
	}
	if err != nil {
		return err
	}
	if !c.IsActive {
		return apperr.ValidationFields("invalid user data", map[string]string{"company_id": "company is not active"})
	}
	return nil
}

// normalizeEmail lower-cases a bare address. Display-name and angle-bracket forms
// are rejected.
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", false
	}
	return email, true
}

func userAuditView(u *models.User) map[string]any {
	return map[string]any{
		"email":      u.Email,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
		"role":       u.Role,
		"company_id": u.CompanyID,
		"is_active":  u.IsActive,
	}
}

func sameUUID(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
