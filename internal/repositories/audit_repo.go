package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/postertrack/backend/internal/models"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) Log(ctx context.Context, entry models.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.UserID, entry.Action, entry.EntityType, entry.EntityID, entry.OldValues, entry.NewValues,
		entry.IPAddress, entry.UserAgent)
	return err
}

type AuditFilter struct {
	UserID     *uuid.UUID
	EntityType string
	EntityID   *uuid.UUID
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

func (r *AuditRepo) List(ctx context.Context, f AuditFilter) ([]models.AuditLog, int, error) {
	var w whereBuilder
	if f.UserID != nil {
		w.add("user_id = $%d", *f.UserID)
	}
	if f.EntityType != "" {
		w.add("entity_type = $%d", f.EntityType)
	}
	if f.EntityID != nil {
		w.add("entity_id = $%d", *f.EntityID)
	}
	if f.Action != "" {
		w.add("action = $%d", f.Action)
	}
	if f.From != nil {
		w.add("created_at >= $%d", *f.From)
	}
	if f.To != nil {
		w.add("created_at < $%d", *f.To)
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs`+w.sql(), w.args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	pageSQL, args := w.page(f.Limit, f.Offset)
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, action, entity_type, entity_id, old_values, new_values, ip_address, user_agent, created_at
		FROM audit_logs`+w.sql()+` ORDER BY created_at DESC`+pageSQL, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		if err := rows.Scan(&l.ID, &l.UserID, &l.Action, &l.EntityType, &l.EntityID, &l.OldValues, &l.NewValues,
			&l.IPAddress, &l.UserAgent, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

func (r *AuditRepo) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM audit_logs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
