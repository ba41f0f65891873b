//go:build integration

package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	pool, cleanup, err := testutils.SetupPostgres(context.Background(), "../../migrations")
	if err != nil {
		panic(err)
	}
	testPool = pool
	code := m.Run()
	cleanup()
	os.Exit(code)
}

type fixture struct {
	company    *models.Company
	employee   *models.User
	contractor *models.User
	campaign   *models.Campaign
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	ctx := context.Background()
	suffix := uuid.NewString()[:8]

	company := &models.Company{Name: "Acme " + suffix, IsActive: true}
	require.NoError(t, NewCompanyRepo(testPool).Create(ctx, company))

	users := NewUserRepo(testPool)
	employee := &models.User{Email: "emp-" + suffix + "@example.com", PasswordHash: "x", FirstName: "Eve",
		Role: rbac.RoleCompanyEmployee, IsActive: true}
	require.NoError(t, users.Create(ctx, employee))
	contractor := &models.User{Email: "con-" + suffix + "@example.com", PasswordHash: "x", FirstName: "Carl",
		Role: rbac.RoleContractor, CompanyID: &company.ID, IsActive: true}
	require.NoError(t, users.Create(ctx, contractor))

	campaign := &models.Campaign{Name: "Spring", CompanyID: company.ID, Status: models.CampaignStatusNew, CreatedBy: employee.ID}
	require.NoError(t, NewCampaignRepo(testPool).Create(ctx, campaign))

	return fixture{company: company, employee: employee, contractor: contractor, campaign: campaign}
}

func TestCompanyNameConflict(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	err := NewCompanyRepo(testPool).Create(ctx, &models.Company{Name: f.company.Name, IsActive: true})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)
}

func TestUserRoleCompanyConstraint(t *testing.T) {
	ctx := context.Background()
	u := &models.User{Email: uuid.NewString() + "@example.com", PasswordHash: "x", FirstName: "No",
		Role: rbac.RoleClient, IsActive: true}

	err := NewUserRepo(testPool).Create(ctx, u)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestCampaignUpdateStatusIsConditional(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	repo := NewCampaignRepo(testPool)

	_, err := repo.UpdateStatus(ctx, f.campaign.ID, models.CampaignStatusNew, models.CampaignStatusInProgress, nil)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, f.campaign.ID, models.CampaignStatusNew, models.CampaignStatusCancelled, nil)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	now := time.Now()
	_, err = repo.UpdateStatus(ctx, f.campaign.ID, models.CampaignStatusInProgress, models.CampaignStatusCompleted, &now)
	require.NoError(t, err)

	got, err := repo.GetByID(ctx, f.campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CampaignStatusCompleted, got.Status)
	assert.NotNil(t, got.CompletedAt)
	assert.Equal(t, f.company.Name, got.CompanyName)
}

func TestAssignmentDuplicateAndScope(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	assignments := NewAssignmentRepo(testPool)

	require.NoError(t, assignments.Create(ctx, &models.CampaignAssignment{CampaignID: f.campaign.ID, ContractorID: f.contractor.ID}))
	err := assignments.Create(ctx, &models.CampaignAssignment{CampaignID: f.campaign.ID, ContractorID: f.contractor.ID})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	campaigns := NewCampaignRepo(testPool)
	list, total, err := campaigns.List(ctx, CampaignFilter{Scope: rbac.Scope{ContractorID: &f.contractor.ID}})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, f.campaign.ID, list[0].ID)

	other := uuid.New()
	_, total, err = campaigns.List(ctx, CampaignFilter{Scope: rbac.Scope{CompanyID: &other}})
	require.NoError(t, err)
	assert.Zero(t, total)
}

func TestImageReviewOnlyOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	images := NewImageRepo(testPool)

	img := &models.Image{CampaignID: f.campaign.ID, UploadedBy: f.contractor.ID, Filename: "a.jpg",
		OriginalFilename: "a.jpg", FilePath: "processed/a.jpg", FileSize: 10, MimeType: "image/jpeg",
		Status: models.ImageStatusPending}
	require.NoError(t, images.Create(ctx, img))

	_, err := images.Review(ctx, img.ID, models.ImageStatusApproved, nil, f.employee.ID)
	require.NoError(t, err)

	reason := "blurry"
	_, err = images.Review(ctx, img.ID, models.ImageStatusRejected, &reason, f.employee.ID)
	assert.True(t, apperr.Is(err, apperr.KindConflict), "got %v", err)

	stats, err := NewCampaignRepo(testPool).Stats(ctx, f.campaign.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ApprovedImages)
}

func TestRejectedImageNeedsReason(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	images := NewImageRepo(testPool)

	img := &models.Image{CampaignID: f.campaign.ID, UploadedBy: f.contractor.ID, Filename: "b.png",
		OriginalFilename: "b.png", FilePath: "processed/b.png", FileSize: 10, MimeType: "image/png",
		Status: models.ImageStatusPending}
	require.NoError(t, images.Create(ctx, img))

	blank := "   "
	_, err := images.Review(ctx, img.ID, models.ImageStatusRejected, &blank, f.employee.ID)
	assert.True(t, apperr.Is(err, apperr.KindValidation), "got %v", err)
}

func TestPasswordResetConsumeOnce(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	sessions := NewSessionRepo(testPool)
	resets := NewPasswordResetRepo(testPool)

	sess := &models.UserSession{ID: uuid.New(), UserID: f.contractor.ID, TokenHash: uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, sessions.Create(ctx, sess))

	tok := &models.PasswordResetToken{UserID: f.contractor.ID, TokenHash: uuid.NewString(), ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, resets.Create(ctx, tok))

	res, err := resets.Consume(ctx, tok.TokenHash, "new-hash", time.Now())
	require.NoError(t, err)
	assert.Equal(t, f.contractor.ID, res.UserID)
	assert.Equal(t, []string{sess.TokenHash}, res.RevokedHashes)

	_, err = resets.Consume(ctx, tok.TokenHash, "again", time.Now())
	assert.ErrorIs(t, err, ErrResetTokenUnusable)

	active, err := sessions.ListActiveByUser(ctx, f.contractor.ID)
	require.NoError(t, err)
	assert.Empty(t, active)
}
