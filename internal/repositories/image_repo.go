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

type ImageRepo struct {
	pool *pgxpool.Pool
}

func NewImageRepo(pool *pgxpool.Pool) *ImageRepo {
	return &ImageRepo{pool: pool}
}

const imageColumns = `i.id, i.campaign_id, i.uploaded_by, i.filename, i.original_filename, i.file_path,
	i.thumbnail_path, i.file_size, i.mime_type, i.width, i.height, i.notes, i.status, i.rejection_reason,
	i.reviewed_by, i.reviewed_at, i.created_at, i.updated_at,
	c.name, c.company_id, u.first_name, u.last_name`

const imageFrom = ` FROM images i
	JOIN campaigns c ON c.id = i.campaign_id
	JOIN users u ON u.id = i.uploaded_by`

func scanImage(row interface{ Scan(...any) error }, i *models.ImageWithCampaign) error {
	return row.Scan(&i.ID, &i.CampaignID, &i.UploadedBy, &i.Filename, &i.OriginalFilename, &i.FilePath,
		&i.ThumbnailPath, &i.FileSize, &i.MimeType, &i.Width, &i.Height, &i.Notes, &i.Status, &i.RejectionReason,
		&i.ReviewedBy, &i.ReviewedAt, &i.CreatedAt, &i.UpdatedAt,
		&i.CampaignName, &i.CompanyID, &i.UploaderFirstName, &i.UploaderLastName)
}

func (r *ImageRepo) Create(ctx context.Context, img *models.Image) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO images (campaign_id, uploaded_by, filename, original_filename, file_path, thumbnail_path,
		                    file_size, mime_type, width, height, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at
	`, img.CampaignID, img.UploadedBy, img.Filename, img.OriginalFilename, img.FilePath, img.ThumbnailPath,
		img.FileSize, img.MimeType, img.Width, img.Height, img.Notes, img.Status,
	).Scan(&img.ID, &img.CreatedAt, &img.UpdatedAt)
	return apperr.FromDB(err, "image")
}

func (r *ImageRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.ImageWithCampaign, error) {
	var img models.ImageWithCampaign
	if err := scanImage(r.pool.QueryRow(ctx, `SELECT `+imageColumns+imageFrom+` WHERE i.id = $1`, id), &img); err != nil {
		return nil, apperr.FromDB(err, "image")
	}
	return &img, nil
}

type ImageFilter struct {
	Scope      rbac.Scope
	CampaignID *uuid.UUID
	UploadedBy *uuid.UUID
	Status     *models.ImageStatus
	Limit      int
	Offset     int
}

func (r *ImageRepo) List(ctx context.Context, f ImageFilter) ([]models.ImageWithCampaign, int, error) {
	var w whereBuilder
	w.applyScope(f.Scope, "c")
	if f.CampaignID != nil {
		w.add("i.campaign_id = $%d", *f.CampaignID)
	}
	if f.UploadedBy != nil {
		w.add("i.uploaded_by = $%d", *f.UploadedBy)
	}
	if f.Status != nil {
		w.add("i.status = $%d", *f.Status)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*)`+imageFrom+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+imageColumns+imageFrom+w.sql()+` ORDER BY i.created_at DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	images := []models.ImageWithCampaign{}
	for rows.Next() {
		var img models.ImageWithCampaign
		if err := scanImage(rows, &img); err != nil {
			return nil, 0, err
		}
		images = append(images, img)
	}
	return images, total, rows.Err()
}

// Review records a decision on a pending image. It returns a conflict when the
// image was reviewed in the meantime.
func (r *ImageRepo) Review(ctx context.Context, id uuid.UUID, status models.ImageStatus, reason *string, reviewerID uuid.UUID) (time.Time, error) {
	var reviewedAt time.Time
	err := r.pool.QueryRow(ctx, `
		UPDATE images SET status = $1, rejection_reason = $2, reviewed_by = $3, reviewed_at = now(), updated_at = now()
		WHERE id = $4 AND status = 'pending'
		RETURNING reviewed_at
	`, status, reason, reviewerID, id).Scan(&reviewedAt)
	if err != nil {
		err = apperr.FromDB(err, "image")
		if apperr.Is(err, apperr.KindNotFound) {
			return time.Time{}, apperr.Conflict("image has already been reviewed")
		}
		return time.Time{}, err
	}
	return reviewedAt, nil
}

func (r *ImageRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM images WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "image")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("image")
	}
	return nil
}

// StoredPaths returns every file and thumbnail path of a campaign's images.
func (r *ImageRepo) StoredPaths(ctx context.Context, campaignID uuid.UUID) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT file_path, thumbnail_path FROM images WHERE campaign_id = $1`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var file string
		var thumb *string
		if err := rows.Scan(&file, &thumb); err != nil {
			return nil, err
		}
		paths = append(paths, file)
		if thumb != nil && *thumb != "" {
			paths = append(paths, *thumb)
		}
	}
	return paths, rows.Err()
}
