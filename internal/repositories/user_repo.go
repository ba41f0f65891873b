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

type UserRepo struct {
	pool *pgxpool.Pool
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

const userColumns = `id, email, password_hash, first_name, last_name, phone, role, company_id,
	is_active, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }, u *models.User) error {
	return row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.FirstName, &u.LastName, &u.Phone, &u.Role,
		&u.CompanyID, &u.IsActive, &u.LastLoginAt, &u.CreatedAt, &u.UpdatedAt)
}

func (r *UserRepo) Create(ctx context.Context, u *models.User) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash, first_name, last_name, phone, role, company_id, is_active)
		VALUES (lower($1), $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, email, created_at, updated_at
	`, u.Email, u.PasswordHash, u.FirstName, u.LastName, u.Phone, u.Role, u.CompanyID, u.IsActive,
	).Scan(&u.ID, &u.Email, &u.CreatedAt, &u.UpdatedAt)
	return apperr.FromDB(err, "user")
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	if err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id), &u); err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	if err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email), &u); err != nil {
		return nil, apperr.FromDB(err, "user")
	}
	return &u, nil
}

// Update writes profile, role, company and activation fields. Password changes go through UpdatePassword.
func (r *UserRepo) Update(ctx context.Context, u *models.User) error {
	err := r.pool.QueryRow(ctx, `
		UPDATE users SET email = lower($1), first_name = $2, last_name = $3, phone = $4, role = $5,
		       company_id = $6, is_active = $7, updated_at = now()
		WHERE id = $8
		RETURNING email, updated_at
	`, u.Email, u.FirstName, u.LastName, u.Phone, u.Role, u.CompanyID, u.IsActive, u.ID,
	).Scan(&u.Email, &u.UpdatedAt)
	return apperr.FromDB(err, "user")
}

func (r *UserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, id)
	if err != nil {
		return apperr.FromDB(err, "user")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("user")
	}
	return nil
}

func (r *UserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = $1 WHERE id = $2`, time.Now(), id)
	return err
}

type UserFilter struct {
	Role      *rbac.Role
	CompanyID *uuid.UUID
	IsActive  *bool
	Search    string
	Limit     int
	Offset    int
}

func (r *UserRepo) List(ctx context.Context, f UserFilter) ([]models.User, int, error) {
	var w whereBuilder
	if f.Role != nil {
		w.add("role = $%d", *f.Role)
	}
	if f.CompanyID != nil {
		w.add("company_id = $%d", *f.CompanyID)
	}
	if f.IsActive != nil {
		w.add("is_active = $%d", *f.IsActive)
	}
	if f.Search != "" {
		w.add("(email ILIKE $%[1]d OR first_name ILIKE $%[1]d OR last_name ILIKE $%[1]d)", likePattern(f.Search))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM users`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users`+w.sql()+` ORDER BY last_name, first_name, email`+pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		var u models.User
		if err := scanUser(rows, &u); err != nil {
			return nil, 0, err
		}
		users = append(users, u)
	}
	return users, total, rows.Err()
}
