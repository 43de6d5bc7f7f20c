package repositories

import (
	"context"

	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/services"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const roleColumns = `id, name, display_name, description, is_system_role, created_at, updated_at`

// RoleRepo owns roles and the user_roles and role_permissions associations.
type RoleRepo struct {
	pool *pgxpool.Pool
}

func NewRoleRepo(pool *pgxpool.Pool) *RoleRepo {
	return &RoleRepo{pool: pool}
}

func scanRole(row pgx.Row) (*models.Role, error) {
	var ro models.Role
	err := row.Scan(&ro.ID, &ro.Name, &ro.DisplayName, &ro.Description, &ro.IsSystemRole, &ro.CreatedAt, &ro.UpdatedAt)
	if err != nil {
		return nil, translate(err)
	}
	return &ro, nil
}

func (r *RoleRepo) CreateRole(ctx context.Context, role *models.Role) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		INSERT INTO roles (name, display_name, description, is_system_role)
		VALUES ($1, $2, $3, $4)
		RETURNING `+roleColumns,
		role.Name, role.DisplayName, role.Description, role.IsSystemRole))
}

func (r *RoleRepo) GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE id = $1`, id))
}

func (r *RoleRepo) GetRoleByName(ctx context.Context, name string) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `SELECT `+roleColumns+` FROM roles WHERE name = $1`, name))
}

func (r *RoleRepo) ListRoles(ctx context.Context) ([]models.Role, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+roleColumns+` FROM roles ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := []models.Role{}
	for rows.Next() {
		ro, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, *ro)
	}
	return roles, rows.Err()
}

func (r *RoleRepo) UpdateRole(ctx context.Context, id uuid.UUID, upd models.RoleUpdate) (*models.Role, error) {
	return scanRole(r.pool.QueryRow(ctx, `
		UPDATE roles SET
			display_name = COALESCE($2, display_name),
			description = COALESCE($3, description),
			updated_at = now()
		WHERE id = $1
		RETURNING `+roleColumns, id, upd.DisplayName, upd.Description))
}

// DeleteRole reports ErrRoleInUse when user_roles still references the role.
func (r *RoleRepo) DeleteRole(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		if pgErr, ok := maybePgError(err); ok && pgErr.Code == pgErrForeignKeyViolation {
			return services.ErrRoleInUse
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return services.ErrNotFound
	}
	return nil
}

func (r *RoleRepo) AssignRole(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO user_roles (user_id, role_id, assigned_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id, role_id) DO NOTHING
	`, userID, roleID, assignedBy)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RoleRepo) RemoveRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, userID, roleID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RoleRepo) UserHasRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM user_roles WHERE user_id = $1 AND role_id = $2)
	`, userID, roleID).Scan(&exists)
	return exists, err
}

func (r *RoleRepo) CountRoleHolders(ctx context.Context, roleID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT count(*) FROM user_roles WHERE role_id = $1`, roleID).Scan(&n)
	return n, err
}

func (r *RoleRepo) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRoleRow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ur.user_id, ur.role_id, ur.assigned_by, ur.assigned_at,
		       ro.name, ro.display_name, ro.is_system_role
		FROM user_roles ur
		JOIN roles ro ON ro.id = ur.role_id
		WHERE ur.user_id = $1
		ORDER BY ro.name
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []models.UserRoleRow{}
	for rows.Next() {
		var row models.UserRoleRow
		if err := rows.Scan(&row.UserID, &row.RoleID, &row.AssignedBy, &row.AssignedAt,
			&row.RoleName, &row.RoleDisplayName, &row.IsSystemRole); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *RoleRepo) GrantRolePermission(ctx context.Context, roleID, permissionID uuid.UUID, grantedBy *uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id, granted_by)
		VALUES ($1, $2, $3)
		ON CONFLICT (role_id, permission_id) DO NOTHING
	`, roleID, permissionID, grantedBy)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RoleRepo) RevokeRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM role_permissions WHERE role_id = $1 AND permission_id = $2
	`, roleID, permissionID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

func (r *RoleRepo) RolePermissions(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+prefixed("p", permissionColumns)+`
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = $1
		ORDER BY p.name
	`, roleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPermissions(rows)
}
