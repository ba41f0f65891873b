package repositories

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/models"
)

type CompanyRepo struct {
	pool *pgxpool.Pool
}

func NewCompanyRepo(pool *pgxpool.Pool) *CompanyRepo {
	return &CompanyRepo{pool: pool}
}

const companyColumns = `id, name, contact_email, contact_phone, address, is_active, created_at, updated_at`

func scanCompany(row interface{ Scan(...any) error }, c *models.Company) error {
	return row.Scan(&c.ID, &c.Name, &c.ContactEmail, &c.ContactPhone, &c.Address, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
}

func (r *CompanyRepo) Create(ctx context.Context, c *models.Company) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO companies (name, contact_email, contact_phone, address, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, c.Name, c.ContactEmail, c.ContactPhone, c.Address, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return apperr.FromDB(err, "company")
}

func (r *CompanyRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var c models.Company
	row := r.pool.QueryRow(ctx, `SELECT `+companyColumns+` FROM companies WHERE id = $1`, id)
	if err := scanCompany(row, &c); err != nil {
		return nil, apperr.FromDB(err, "company")
	}
	return &c, nil
}

func (r *CompanyRepo) Update(ctx context.Context, c *models.Company) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE companies SET name = $1, contact_email = $2, contact_phone = $3, address = $4,
		       is_active = $5, updated_at = now()
		WHERE id = $6
		RETURNING updated_at
	`, c.Name, c.ContactEmail, c.ContactPhone, c.Address, c.IsActive, c.ID).Scan(&c.UpdatedAt)
	return apperr.FromDB(err, "company")
}

func (r *CompanyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM companies WHERE id = $1`, id)
	if err != nil {
		return apperr.FromDB(err, "company")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("company")
	}
	return nil
}

type CompanyFilter struct {
	IDs      []uuid.UUID
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}

func (r *CompanyRepo) List(ctx context.Context, f CompanyFilter) ([]models.Company, int, error) {
	var w whereBuilder
	if f.IDs != nil {
		w.add("id = ANY($%d)", f.IDs)
	}
	if f.Search != "" {
		w.add("name ILIKE $%d", likePattern(f.Search))
	}
	if f.IsActive != nil {
		w.add("is_active = $%d", *f.IsActive)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM companies`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+companyColumns+` FROM companies`+w.sql()+` ORDER BY name`+pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	companies := []models.Company{}
	for rows.Next() {
		var c models.Company
		if err := scanCompany(rows, &c); err != nil {
			return nil, 0, err
		}
		companies = append(companies, c)
	}
	return companies, total, rows.Err()
}
