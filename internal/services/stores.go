package services

import (
	"context"

	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
)

// Stores return ErrNotFound for missing rows, ErrDuplicateEmail or ErrConflict
// for unique violations, and ErrRoleInUse when a delete hits a live
// reference.

type IdentityStore interface {
	CreateIdentity(ctx context.Context, email, passwordHash string) (*models.Identity, error)
	GetIdentityByEmail(ctx context.Context, email string) (*models.Identity, error)
	GetIdentityByID(ctx context.Context, id uuid.UUID) (*models.Identity, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
	DeleteIdentity(ctx context.Context, id uuid.UUID) error
}

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) (*models.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	SetUserActive(ctx context.Context, id uuid.UUID, active bool) (*models.User, error)
	TouchLastLogin(ctx context.Context, id uuid.UUID) error
}

type RoleStore interface {
	CreateRole(ctx context.Context, r *models.Role) (*models.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*models.Role, error)
	GetRoleByName(ctx context.Context, name string) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, upd models.RoleUpdate) (*models.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error

	// AssignRole and GrantRolePermission report false when the pair existed.
	AssignRole(ctx context.Context, userID, roleID uuid.UUID, assignedBy *uuid.UUID) (bool, error)
	RemoveRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	UserHasRole(ctx context.Context, userID, roleID uuid.UUID) (bool, error)
	CountRoleHolders(ctx context.Context, roleID uuid.UUID) (int, error)
	UserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRoleRow, error)

	GrantRolePermission(ctx context.Context, roleID, permissionID uuid.UUID, grantedBy *uuid.UUID) (bool, error)
	RevokeRolePermission(ctx context.Context, roleID, permissionID uuid.UUID) (bool, error)
	RolePermissions(ctx context.Context, roleID uuid.UUID) ([]models.Permission, error)
}

type PermissionStore interface {
	CreatePermission(ctx context.Context, p *models.Permission) (*models.Permission, error)
	GetPermission(ctx context.Context, id uuid.UUID) (*models.Permission, error)
	GetPermissionByName(ctx context.Context, name string) (*models.Permission, error)
	ListPermissions(ctx context.Context, f models.PermissionFilter) ([]models.Permission, error)
	SetPermissionActive(ctx context.Context, id uuid.UUID, active bool) (*models.Permission, error)

	// RoleLayerPermissions returns every permission reachable through the
	// user's roles. Duplicates are allowed.
	RoleLayerPermissions(ctx context.Context, userID uuid.UUID) ([]models.Permission, error)
	DirectPermissions(ctx context.Context, userID uuid.UUID) ([]models.UserPermissionRow, error)
	GetDirectPermission(ctx context.Context, userID, permissionID uuid.UUID) (*models.UserPermission, error)
	UpsertDirectPermission(ctx context.Context, up models.UserPermission) (*models.UserPermission, error)
	DeleteDirectPermission(ctx context.Context, userID, permissionID uuid.UUID) (bool, error)
}

type AuditStore interface {
	InsertAudit(ctx context.Context, entry *models.AuditLog) error
	ListAudit(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, int, error)
}
