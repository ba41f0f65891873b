package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/models"
	"github.com/postertrack/backend/internal/rbac"
)

type CampaignRepo struct {
	pool *pgxpool.Pool
}

func NewCampaignRepo(pool *pgxpool.Pool) *CampaignRepo {
	return &CampaignRepo{pool: pool}
}

const campaignColumns = `c.id, c.name, c.description, c.company_id, c.status, c.start_date, c.end_date,
	c.completed_at, c.created_by, c.created_at, c.updated_at`

func scanCampaign(row interface{ Scan(...any) error }, c *models.CampaignWithCompany) error {
	return row.Scan(&c.ID, &c.Name, &c.Description, &c.CompanyID, &c.Status, &c.StartDate, &c.EndDate,
		&c.CompletedAt, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt, &c.CompanyName)
}

func (r *CampaignRepo) Create(ctx context.Context, c *models.Campaign) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaigns (name, description, company_id, status, start_date, end_date, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at
	`, c.Name, c.Description, c.CompanyID, c.Status, c.StartDate, c.EndDate, c.CreatedBy,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return apperr.FromDB(err, "campaign")
}

func (r *CampaignRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.CampaignWithCompany, error) {
	var c models.CampaignWithCompany
	row := r.pool.QueryRow(ctx, `
		SELECT `+campaignColumns+`, co.name
		FROM campaigns c
		JOIN companies co ON co.id = c.company_id
		WHERE c.id = $1
	`, id)
	if err := scanCampaign(row, &c); err != nil {
		return nil, apperr.FromDB(err, "campaign")
	}
	return &c, nil
}

// IsVisible reports whether the campaign exists and the scope may see it.
func (r *CampaignRepo) IsVisible(ctx context.Context, id uuid.UUID, scope rbac.Scope) (bool, error) {
	var w whereBuilder
	w.add("c.id = $%d", id)
	w.applyScope(scope, "c")

	var visible bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM campaigns c`+w.sql()+`)`, w.args...).Scan(&visible)
	return visible, err
}

func (r *CampaignRepo) Update(ctx context.Context, c *models.Campaign) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE campaigns SET name = $1, description = $2, start_date = $3, end_date = $4, updated_at = now()
		WHERE id = $5
		RETURNING updated_at
	`, c.Name, c.Description, c.StartDate, c.EndDate, c.ID).Scan(&c.UpdatedAt)
	return apperr.FromDB(err, "campaign")
}

// UpdateStatus moves a campaign from one status to another. It matches on the old status
// so a concurrent change makes it return a conflict instead of overwriting.
func (r *CampaignRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.CampaignStatus, completedAt *time.Time) (time.Time, error) {
	var updatedAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE campaigns SET status = $1, completed_at = COALESCE($2, completed_at), updated_at = now()
		WHERE id = $3 AND status = $4
		RETURNING updated_at
	`, to, completedAt, id, from).Scan(&updatedAt)
	if err != nil {
		err = apperr.FromDB(err, "campaign")
		if apperr.Is(err, apperr.KindNotFound) {
			return time.Time{}, apperr.Conflict("campaign status changed concurrently, reload and retry")
		}
		return time.Time{}, err
	}
	return updatedAt, nil
}

func (r *CampaignRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM campaigns WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "campaign")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("campaign")
	}
	return nil
}

type CampaignFilter struct {
	Scope     rbac.Scope
	CompanyID *uuid.UUID
	Status    *models.CampaignStatus
	Search    string
	Limit     int
	Offset    int
}

func (r *CampaignRepo) List(ctx context.Context, f CampaignFilter) ([]models.CampaignWithCompany, int, error) {
	var w whereBuilder
	w.applyScope(f.Scope, "c")
	if f.CompanyID != nil {
		w.add("c.company_id = $%d", *f.CompanyID)
	}
	if f.Status != nil {
		w.add("c.status = $%d", *f.Status)
	}
	if f.Search != "" {
		w.add("(c.name ILIKE $%[1]d OR c.description ILIKE $%[1]d)", likePattern(f.Search))
	}

	from := ` FROM campaigns c JOIN companies co ON co.id = c.company_id`

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*)`+from+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+campaignColumns+`, co.name`+from+w.sql()+` ORDER BY c.created_at DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	campaigns := []models.CampaignWithCompany{}
	for rows.Next() {
		var c models.CampaignWithCompany
		if err := scanCampaign(rows, &c); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, total, rows.Err()
}

func (r *CampaignRepo) Stats(ctx context.Context, id uuid.UUID) (*models.CampaignStats, error) {
	s := models.CampaignStats{CampaignID: id}
	err := r.pool.QueryRow(ctx, `
		SELECT
			count(*),
			count(*) FILTER (WHERE status = 'pending'),
			count(*) FILTER (WHERE status = 'approved'),
			count(*) FILTER (WHERE status = 'rejected'),
			(SELECT count(*) FROM campaign_assignments WHERE campaign_id = $1)
		FROM images WHERE campaign_id = $1
	`, id).Scan(&s.TotalImages, &s.PendingImages, &s.ApprovedImages, &s.RejectedImages, &s.AssignedContractors)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
