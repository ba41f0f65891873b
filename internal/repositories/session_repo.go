package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/db"
	"github.com/postertrack/backend/internal/models"
)

type SessionRepo struct {
	pool *pgxpool.Pool
}

func NewSessionRepo(pool *pgxpool.Pool) *SessionRepo {
	return &SessionRepo{pool: pool}
}

const sessionColumns = `id, user_id, token_hash, ip_address, user_agent, expires_at, revoked_at, last_used_at, created_at`

func scanSession(row interface{ Scan(...any) error }, s *models.UserSession) error {
	return row.Scan(&s.ID, &s.UserID, &s.TokenHash, &s.IPAddress, &s.UserAgent, &s.ExpiresAt, &s.RevokedAt,
		&s.LastUsedAt, &s.CreatedAt)
}

// Create inserts a session. The ID is chosen by the caller because it is embedded in the token
// before the token hash is known.
func (r *SessionRepo) Create(ctx context.Context, s *models.UserSession) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO user_sessions (id, user_id, token_hash, ip_address, user_agent, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, s.ID, s.UserID, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt).Scan(&s.CreatedAt)
	return apperr.FromDB(err, "session")
}

func (r *SessionRepo) GetByTokenHash(ctx context.Context, tokenHash string) (*models.UserSession, error) {
	var s models.UserSession
	if err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE token_hash = $1`, tokenHash), &s); err != nil {
		return nil, apperr.FromDB(err, "session")
	}
	return &s, nil
}

func (r *SessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.UserSession, error) {
	var s models.UserSession
	if err := scanSession(r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM user_sessions WHERE id = $1`, id), &s); err != nil {
		return nil, apperr.FromDB(err, "session")
	}
	return &s, nil
}

// Touch bumps last_used_at unless it was already bumped within minInterval.
func (r *SessionRepo) Touch(ctx context.Context, id uuid.UUID, minInterval time.Duration) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE user_sessions SET last_used_at = now()
		WHERE id = $1 AND (last_used_at IS NULL OR last_used_at < now() - make_interval(secs => $2))
	`, id, minInterval.Seconds())
	return err
}

// Revoke marks a single session revoked and returns its token hash for cache eviction.
func (r *SessionRepo) Revoke(ctx context.Context, id, userID uuid.UUID) (string, error) {
	var hash string
	err := r.pool.QueryRow(ctx, `
		UPDATE user_sessions SET revoked_at = now()
		WHERE id = $1 AND user_id = $2 AND revoked_at IS NULL
		RETURNING token_hash
	`, id, userID).Scan(&hash)
	if err != nil {
		return "", apperr.FromDB(err, "session")
	}
	return hash, nil
}

// RevokeAllForUser revokes every live session of a user except the given one.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uuid.UUID, except *uuid.UUID) ([]string, error) {
	return revokeAllForUser(ctx, r.pool, userID, except)
}

func revokeAllForUser(ctx context.Context, q db.DBTX, userID uuid.UUID, except *uuid.UUID) ([]string, error) {
	rows, err := q.Query(ctx, `
		UPDATE user_sessions SET revoked_at = now()
		WHERE user_id = $1 AND revoked_at IS NULL AND ($2::uuid IS NULL OR id <> $2)
		RETURNING token_hash
	`, userID, except)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var hashes []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, err
		}
		hashes = append(hashes, h)
	}
	return hashes, rows.Err()
}

func (r *SessionRepo) ListActiveByUser(ctx context.Context, userID uuid.UUID) ([]models.UserSession, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+sessionColumns+` FROM user_sessions
		WHERE user_id = $1 AND revoked_at IS NULL AND expires_at > now()
		ORDER BY created_at DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.UserSession{}
	for rows.Next() {
		var s models.UserSession
		if err := scanSession(rows, &s); err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// DeleteExpired removes sessions that expired or were revoked before cutoff.
func (r *SessionRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM user_sessions WHERE expires_at < $1 OR (revoked_at IS NOT NULL AND revoked_at < $1)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
