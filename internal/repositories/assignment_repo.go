package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/models"
)

type AssignmentRepo struct {
	pool *pgxpool.Pool
}

func NewAssignmentRepo(pool *pgxpool.Pool) *AssignmentRepo {
	return &AssignmentRepo{pool: pool}
}

// Create relies on the (campaign_id, contractor_id) unique constraint to reject duplicates.
func (r *AssignmentRepo) Create(ctx context.Context, a *models.CampaignAssignment) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO campaign_assignments (campaign_id, contractor_id, assigned_by)
		VALUES ($1, $2, $3)
		RETURNING id, assigned_at
	`, a.CampaignID, a.ContractorID, a.AssignedBy).Scan(&a.ID, &a.AssignedAt)
	return apperr.FromDB(err, "assignment")
}

func (r *AssignmentRepo) Delete(ctx context.Context, campaignID, contractorID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM campaign_assignments WHERE campaign_id = $1 AND contractor_id = $2
	`, campaignID, contractorID)
	if err != nil {
		return apperr.FromDB(err, "assignment")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("assignment")
	}
	return nil
}

func (r *AssignmentRepo) Exists(ctx context.Context, campaignID, contractorID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM campaign_assignments WHERE campaign_id = $1 AND contractor_id = $2)
	`, campaignID, contractorID).Scan(&exists)
	return exists, err
}

func (r *AssignmentRepo) ListByCampaign(ctx context.Context, campaignID uuid.UUID) ([]models.AssignmentWithContractor, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT a.id, a.campaign_id, a.contractor_id, a.assigned_by, a.assigned_at,
		       u.email, u.first_name, u.last_name
		FROM campaign_assignments a
		JOIN users u ON u.id = a.contractor_id
		WHERE a.campaign_id = $1
		ORDER BY a.assigned_at
	`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.AssignmentWithContractor{}
	for rows.Next() {
		var a models.AssignmentWithContractor
		if err := rows.Scan(&a.ID, &a.CampaignID, &a.ContractorID, &a.AssignedBy, &a.AssignedAt,
			&a.ContractorEmail, &a.ContractorFirstName, &a.ContractorLastName); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// CountByContractor returns how many campaigns the user is assigned to.
func (r *AssignmentRepo) CountByContractor(ctx context.Context, contractorID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM campaign_assignments WHERE contractor_id = $1
	`, contractorID).Scan(&n)
	return n, err
}

// ContractorIDs returns the contractors assigned to a campaign, used to address events.
func (r *AssignmentRepo) ContractorIDs(ctx context.Context, campaignID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `SELECT contractor_id FROM campaign_assignments WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
