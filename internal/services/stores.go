package services

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
	"github.com/postertrack/backend/internal/repositories"
	"github.com/postertrack/backend/internal/storage"
)

// The interfaces below are the persistence surface services depend on. The pgx
// repositories satisfy them; tests use in-memory fakes.

type CompanyStore interface {
	Create(ctx context.Context, c *models.Company) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error)
	Update(ctx context.Context, c *models.Company) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repositories.CompanyFilter) ([]models.Company, int, error)
}

type UserStore interface {
	Create(ctx context.Context, u *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, u *models.User) error
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
	UpdateLastLogin(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repositories.UserFilter) ([]models.User, int, error)
}

type CampaignStore interface {
	Create(ctx context.Context, c *models.Campaign) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.CampaignWithCompany, error)
	IsVisible(ctx context.Context, id uuid.UUID, scope rbac.Scope) (bool, error)
	Update(ctx context.Context, c *models.Campaign) error
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CampaignStatus, completedAt *time.Time) (time.Time, error)
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f repositories.CampaignFilter) ([]models.CampaignWithCompany, int, error)
	Stats(ctx context.Context, id uuid.UUID) (*models.CampaignStats, error)
}

type AssignmentStore interface {
	Create(ctx context.Context, a *models.CampaignAssignment) error
	Delete(ctx context.Context, campaignID, contractorID uuid.UUID) error
	Exists(ctx context.Context, campaignID, contractorID uuid.UUID) (bool, error)
	ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.AssignmentWithContractor, error)
	ContractorIDs(ctx context.Context, campaignID uuid.UUID) ([]uuid.UUID, error)
	CountByContractor(ctx context.Context, contractorID uuid.UUID) (int, error)
}

type ImageStore interface {
	Create(ctx context.Context, img *models.Image) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ImageWithCampaign, error)
	List(ctx context.Context, f repositories.ImageFilter) ([]models.ImageWithCampaign, int, error)
	Review(ctx context.Context, id uuid.UUID, status models.ImageStatus, reason *string, reviewerID uuid.UUID) (time.Time, error)
	Delete(ctx context.Context, id uuid.UUID) error
	StoredPaths(ctx context.Context, campaignID uuid.UUID) ([]string, error)
}

type AuditStore interface {
	Log(ctx context.Context, entry models.AuditLog) error
	List(ctx context.Context, f repositories.AuditFilter) ([]models.AuditLog, int, error)
	PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type SessionStore interface {
	Create(ctx context.Context, s *models.UserSession) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.UserSession, error)
	Touch(ctx context.Context, id uuid.UUID, minInterval time.Duration) error
	Revoke(ctx context.Context, id, userID uuid.UUID) (string, error)
	RevokeAllForUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID) ([]string, error)
	ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSession, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

type PasswordResetStore interface {
	Create(ctx context.Context, t *models.PasswordResetToken) error
	Consume(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*repositories.ResetResult, error)
	DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error)
}

var (
	_ CompanyStore       = (*repositories.CompanyRepo)(nil)
	_ UserStore          = (*repositories.UserRepo)(nil)
	_ CampaignStore      = (*repositories.CampaignRepo)(nil)
	_ AssignmentStore    = (*repositories.AssignmentRepo)(nil)
	_ ImageStore         = (*repositories.ImageRepo)(nil)
	_ AuditStore         = (*repositories.AuditRepo)(nil)
	_ SessionStore       = (*repositories.SessionRepo)(nil)
	_ PasswordResetStore = (*repositories.PasswordResetRepo)(nil)
)

// FileStore is the upload file layout. *storage.LocalStore satisfies it.
type FileStore interface {
	SaveTemp(r io.Reader, maxBytes int64) (string, int64, error)
	RemoveTemp(path string) error
	Promote(tempPath string, campaignID uuid.UUID, ext string) (string, error)
	MakeThumbnail(rel string, maxPx int) (string, error)
	Abs(rel string) (string, error)
	Open(rel string) (*os.File, error)
	Remove(rels ...string) error
	CleanupTemp(maxAge time.Duration, now time.Time) (int, error)
}

var _ FileStore = (*storage.LocalStore)(nil)
