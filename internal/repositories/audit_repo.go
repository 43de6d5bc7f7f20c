package repositories

import (
	"context"
	"fmt"

	"github.com/aims-admin/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AuditRepo struct {
	pool *pgxpool.Pool
}

func NewAuditRepo(pool *pgxpool.Pool) *AuditRepo {
	return &AuditRepo{pool: pool}
}

func (r *AuditRepo) InsertAudit(ctx context.Context, entry *models.AuditLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO audit_logs (id, action, entity_type, entity_id, old_values, new_values, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, entry.ID, entry.Action, entry.EntityType, entry.EntityID,
		jsonb(entry.OldValues), jsonb(entry.NewValues), entry.UserID, entry.CreatedAt)
	return err
}

func (r *AuditRepo) ListAudit(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, int, error) {
	args := []any{}
	argIdx := 1
	clauses := []string{}

	if f.Action != "" {
		clauses = append(clauses, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, f.Action)
		argIdx++
	}
	if f.EntityType != "" {
		clauses = append(clauses, fmt.Sprintf("entity_type = $%d", argIdx))
		args = append(args, f.EntityType)
		argIdx++
	}
	if f.EntityID != "" {
		clauses = append(clauses, fmt.Sprintf("entity_id = $%d", argIdx))
		args = append(args, f.EntityID)
		argIdx++
	}
	if f.UserID != nil {
		clauses = append(clauses, fmt.Sprintf("user_id = $%d", argIdx))
		args = append(args, *f.UserID)
		argIdx++
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM audit_logs`+where(clauses), args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `
		SELECT id, action, entity_type, entity_id, old_values, new_values, user_id, created_at
		FROM audit_logs` + where(clauses) +
		fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, f.Limit, f.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	logs := []models.AuditLog{}
	for rows.Next() {
		var l models.AuditLog
		var oldValues, newValues []byte
		if err := rows.Scan(&l.ID, &l.Action, &l.EntityType, &l.EntityID,
			&oldValues, &newValues, &l.UserID, &l.CreatedAt); err != nil {
			return nil, 0, err
		}
		l.OldValues = oldValues
		l.NewValues = newValues
		logs = append(logs, l)
	}
	return logs, total, rows.Err()
}

// jsonb passes a snapshot to pgx as text so NULL stays NULL.
func jsonb(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
