package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/config"
	"github.com/postertrack/backend/internal/filesecurity"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/storage"
	"github.com/postertrack/backend/internal/testutils/memstore"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	db        *memstore.DB
	cfg       *config.Config
	cache     *memstore.Cache
	publisher *memstore.Publisher
	mirror    *memstore.Mirror
	files     *storage.LocalStore

	audit     *AuditService
	sessions  *SessionService
	auth      *AuthService
	companies *CompanyService
	users     *UserService
	campaigns *CampaignService
	images    *ImageService

	employee rbac.Actor
	company  *models.Company
}

func testConfig(uploadRoot string) *config.Config {
	return &config.Config{
		JWTSecret:        "test-secret-that-is-long-enough-123",
		JWTIssuer:        "poster-campaigns-test",
		JWTExpiration:    time.Hour,
		SessionCacheTTL:  time.Minute,
		PasswordResetTTL: 30 * time.Minute,
		BcryptCost:       4,
		UploadRoot:       uploadRoot,
		MaxUploadBytes:   1 << 20,
		AllowedMIMETypes: []string{"image/jpeg", "image/png", "image/gif", "image/webp"},
		ThumbnailMaxPx:   64,
		TempFileMaxAge:   time.Hour,
	}
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	log := zap.NewNop()
	db := memstore.NewDB()
	cfg := testConfig(t.TempDir())

	files, err := storage.NewLocalStore(cfg.UploadRoot, log)
	require.NoError(t, err)

	h := &harness{
		db:        db,
		cfg:       cfg,
		cache:     memstore.NewCache(),
		publisher: &memstore.Publisher{},
		mirror:    &memstore.Mirror{},
		files:     files,
	}

	users, companies := db.Users(), db.Companies()
	campaigns, assignments, images := db.Campaigns(), db.Assignments(), db.Images()

	h.audit = NewAuditService(db.Audit(), log)
	h.sessions = NewSessionService(db.Sessions(), users, h.cache, cfg, log)
	h.auth = NewAuthService(users, db.Resets(), h.sessions, h.audit, h.publisher, cfg, log)
	h.companies = NewCompanyService(companies, h.audit, log)
	h.users = NewUserService(users, companies, assignments, h.sessions, h.audit, cfg, log)
	h.campaigns = NewCampaignService(campaigns, assignments, companies, users, images, files, h.mirror, h.audit, h.publisher, log)
	scanner := filesecurity.NewScanner(cfg.MaxUploadBytes, cfg.AllowedMIMETypes, log)
	h.images = NewImageService(images, campaigns, assignments, scanner, files, h.mirror, h.audit, h.publisher, cfg, log)

	emp, err := h.users.Bootstrap(context.Background(), CreateUserInput{
		Email: "boss@example.com", Password: "s3cretpass", FirstName: "Boss",
	})
	require.NoError(t, err)
	h.employee = emp.Actor(uuid.New())

	h.company, err = h.companies.Create(context.Background(), h.employee, CompanyInput{Name: "Acme Outdoor"})
	require.NoError(t, err)
	return h
}

// newUser creates an active user of the given role in the harness company.
func (h *harness) newUser(t *testing.T, role rbac.Role) (*models.User, rbac.Actor) {
	t.Helper()
	in := CreateUserInput{
		Email:     uuid.NewString()[:8] + "@example.com",
		Password:  "passw0rdX",
		FirstName: string(role),
		Role:      role,
	}
	if role != rbac.RoleCompanyEmployee {
		in.CompanyID = &h.company.ID
	}
	u, err := h.users.Create(context.Background(), h.employee, in)
	require.NoError(t, err)
	return u, u.Actor(uuid.New())
}

func (h *harness) newCampaign(t *testing.T, status models.CampaignStatus) *models.Campaign {
	t.Helper()
	ctx := context.Background()
	c, err := h.campaigns.Create(ctx, h.employee, CampaignInput{Name: "Campaign " + uuid.NewString()[:6], CompanyID: h.company.ID})
	require.NoError(t, err)

	path := map[models.CampaignStatus][]models.CampaignStatus{
		models.CampaignStatusNew:        nil,
		models.CampaignStatusInProgress: {models.CampaignStatusInProgress},
		models.CampaignStatusCompleted:  {models.CampaignStatusInProgress, models.CampaignStatusCompleted},
		models.CampaignStatusCancelled:  {models.CampaignStatusCancelled},
	}[status]
	for _, to := range path {
		_, err := h.campaigns.ChangeStatus(ctx, h.employee, c.ID, to)
		require.NoError(t, err)
	}
	c.Status = status
	return c
}
