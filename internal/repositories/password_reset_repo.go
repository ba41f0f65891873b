package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/db"
	"github.com/postertrack/backend/internal/models"
)

// ErrResetTokenUnusable is returned when a reset token is unknown, used or expired.
var ErrResetTokenUnusable = errors.New("password reset token is invalid or expired")

type PasswordResetRepo struct {
	pool *pgxpool.Pool
}

func NewPasswordResetRepo(pool *pgxpool.Pool) *PasswordResetRepo {
	return &PasswordResetRepo{pool: pool}
}

// Create stores a new token and drops the user's earlier unused tokens.
func (r *PasswordResetRepo) Create(ctx context.Context, t *models.PasswordResetToken) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM password_reset_tokens WHERE user_id = $1 AND used_at IS NULL`, t.UserID); err != nil {
			return err
		}
		return tx.QueryRow(ctx, `
			INSERT INTO password_reset_tokens (user_id, token_hash, expires_at)
			VALUES ($1, $2, $3)
			RETURNING id, created_at
		`, t.UserID, t.TokenHash, t.ExpiresAt).Scan(&t.ID, &t.CreatedAt)
	})
}

// ResetResult is what Consume changed.
type ResetResult struct {
	UserID        uuid.UUID
	RevokedHashes []string
}

// Consume marks the token used, stores the new password hash and revokes every session
// of the user in one transaction.
func (r *PasswordResetRepo) Consume(ctx context.Context, tokenHash, newPasswordHash string, now time.Time) (*ResetResult, error) {
	var res ResetResult
	err := db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		var t models.PasswordResetToken
		err := tx.QueryRow(ctx, `
			SELECT id, user_id, expires_at, used_at FROM password_reset_tokens
			WHERE token_hash = $1 FOR UPDATE
		`, tokenHash).Scan(&t.ID, &t.UserID, &t.ExpiresAt, &t.UsedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrResetTokenUnusable
		}
		if err != nil {
			return err
		}
		if !t.IsUsable(now) {
			return ErrResetTokenUnusable
		}

		if _, err := tx.Exec(ctx, `UPDATE password_reset_tokens SET used_at = $1 WHERE id = $2`, now, t.ID); err != nil {
			return err
		}
		tag, err := tx.Exec(ctx, `
			UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2 AND is_active
		`, newPasswordHash, t.UserID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrResetTokenUnusable
		}

		hashes, err := revokeAllForUser(ctx, tx, t.UserID, nil)
		if err != nil {
			return err
		}
		res = ResetResult{UserID: t.UserID, RevokedHashes: hashes}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// DeleteExpired removes tokens that expired, or were used, before cutoff.
func (r *PasswordResetRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM password_reset_tokens WHERE expires_at < $1 OR (used_at IS NOT NULL AND used_at < $1)
	`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
