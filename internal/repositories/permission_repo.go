package repositories

import (
	"context"
	"fmt"
	"strings"

	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const permissionColumns = `id, name, module, action, description, is_active, created_at`

// PermissionRepo owns permissions and the per-user direct overrides.
type PermissionRepo struct {
	pool *pgxpool.Pool
}

func NewPermissionRepo(pool *pgxpool.Pool) *PermissionRepo {
	return &PermissionRepo{pool: pool}
}

func prefixed(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

func scanPermission(row pgx.Row) (*models.Permission, error) {
	var p models.Permission
	err := row.Scan(&p.ID, &p.Name, &p.Module, &p.Action, &p.Description, &p.IsActive, &p.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func collectPermissions(rows pgx.Rows) ([]models.Permission, error) {
	out := []models.Permission{}
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (r *PermissionRepo) CreatePermission(ctx context.Context, p *models.Permission) (*models.Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `
		INSERT INTO permissions (name, module, action, description, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+permissionColumns,
		p.Name, p.Module, p.Action, p.Description, p.IsActive))
}

func (r *PermissionRepo) GetPermission(ctx context.Context, id uuid.UUID) (*models.Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE id = $1`, id))
}

func (r *PermissionRepo) GetPermissionByName(ctx context.Context, name string) (*models.Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `SELECT `+permissionColumns+` FROM permissions WHERE name = $1`, name))
}

func (r *PermissionRepo) ListPermissions(ctx context.Context, f models.PermissionFilter) ([]models.Permission, error) {
	args := []any{}
	argIdx := 1
	clauses := []string{}

	if f.Module != "" {
		clauses = append(clauses, fmt.Sprintf("module = $%d", argIdx))
		args = append(args, f.Module)
		argIdx++
	}
	if f.Action != "" {
		clauses = append(clauses, fmt.Sprintf("action = $%d", argIdx))
		args = append(args, f.Action)
	}
	if f.ActiveOnly {
		clauses = append(clauses, "is_active")
	}

	rows, err := r.pool.Query(ctx, `SELECT `+permissionColumns+` FROM permissions`+where(clauses)+` ORDER BY module, action`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *PermissionRepo) SetPermissionActive(ctx context.Context, id uuid.UUID, active bool) (*models.Permission, error) {
	return scanPermission(r.pool.QueryRow(ctx, `
		UPDATE permissions SET is_active = $2 WHERE id = $1
		RETURNING `+permissionColumns, id, active))
}

// RoleLayerPermissions follows user_roles -> role_permissions -> permissions.
// A permission granted by several roles appears once per role.
func (r *PermissionRepo) RoleLayerPermissions(ctx context.Context, userID uuid.UUID) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed("p", permissionColumns)+`
		FROM user_roles ur
		JOIN role_permissions rp ON rp.role_id = ur.role_id
		JOIN permissions p ON p.id = rp.permission_id
		WHERE ur.user_id = $1
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}

func (r *PermissionRepo) DirectPermissions(ctx context.Context, userID uuid.UUID) ([]models.UserPermissionRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT up.user_id, up.permission_id, up.granted, up.granted_by, up.notes, up.created_at,
		       `+prefixed("p", permissionColumns)+`
		FROM user_permissions up
		JOIN permissions p ON p.id = up.permission_id
		WHERE up.user_id = $1
		ORDER BY p.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.UserPermissionRow{}
	for rows.Next() {
		var row models.UserPermissionRow
		p := &row.Permission
		if err := rows.Scan(&row.UserID, &row.PermissionID, &row.Granted, &row.GrantedBy, &row.Notes, &row.CreatedAt,
			&p.ID, &p.Name, &p.Module, &p.Action, &p.Description, &p.IsActive, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func scanUserPermission(row pgx.Row) (*models.UserPermission, error) {
	var up models.UserPermission
	err := row.Scan(&up.UserID, &up.PermissionID, &up.Granted, &up.GrantedBy, &up.Notes, &up.CreatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &up, nil
}

func (r *PermissionRepo) GetDirectPermission(ctx context.Context, userID, permissionID uuid.UUID) (*models.UserPermission, error) {
	return scanUserPermission(r.pool.QueryRow(ctx, `
		SELECT user_id, permission_id, granted, granted_by, notes, created_at
		FROM user_permissions WHERE user_id = $1 AND permission_id = $2
	`, userID, permissionID))
}

func (r *PermissionRepo) UpsertDirectPermission(ctx context.Context, up models.UserPermission) (*models.UserPermission, error) {
	return scanUserPermission(r.pool.QueryRow(ctx, `
		INSERT INTO user_permissions (user_id, permission_id, granted, granted_by, notes)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, permission_id) DO UPDATE SET
			granted = EXCLUDED.granted,
			granted_by = EXCLUDED.granted_by,
			notes = EXCLUDED.notes,
			created_at = now()
		RETURNING user_id, permission_id, granted, granted_by, notes, created_at
	`, up.UserID, up.PermissionID, up.Granted, up.GrantedBy, up.Notes))
}

func (r *PermissionRepo) DeleteDirectPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2
	`, userID, permissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
