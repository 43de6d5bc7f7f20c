package handlers

import (
	"context"

	"github.com/aims-admin/backend/internal/auth"
	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/middleware"
	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Service surfaces the handlers depend on. The concrete services in
// internal/services satisfy them.

type AuthAPI interface {
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	Register(ctx context.Context, reg services.Registration) (*services.AuthResult, error)
	Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	Logout(ctx context.Context, userID uuid.UUID)
}

type UserAPI interface {
	ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	SetActive(ctx context.Context, actor, id uuid.UUID, active bool) (*models.User, error)
}

type AuditAPI interface {
	List(ctx context.Context, f models.AuditFilter) ([]models.AuditLog, int, error)
}

type RBACAPI interface {
	CreateRole(ctx context.Context, actor uuid.UUID, in services.RoleInput) (*models.Role, error)
	ListRoles(ctx context.Context) ([]models.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*models.RoleWithPermissions, error)
	UpdateRole(ctx context.Context, actor, id uuid.UUID, upd models.RoleUpdate) (*models.Role, error)
	DeleteRole(ctx context.Context, actor, id uuid.UUID) error

	CreatePermission(ctx context.Context, actor uuid.UUID, in services.PermissionInput) (*models.Permission, error)
	ListPermissions(ctx context.Context, f models.PermissionFilter) ([]models.Permission, error)
	SetPermissionActive(ctx context.Context, actor, id uuid.UUID, active bool) (*models.Permission, error)

	AssignRoleToUser(ctx context.Context, actor, userID, roleID uuid.UUID) error
	RemoveRoleFromUser(ctx context.Context, actor, userID, roleID uuid.UUID) error
	AssignPermissionToRole(ctx context.Context, actor, roleID, permissionID uuid.UUID) error
	RemovePermissionFromRole(ctx context.Context, actor, roleID, permissionID uuid.UUID) error
	SetUserPermission(ctx context.Context, actor, userID, permissionID uuid.UUID, granted bool, notes *string) (*models.UserPermission, error)
	RemoveUserPermission(ctx context.Context, actor, userID, permissionID uuid.UUID) error

	UserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRoleRow, error)
	EffectivePermissions(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]models.EffectivePermission, error)
	HasPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error)
	HasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error)
}

// respondError writes err through the envelope mapping and logs anything
// that surfaces as a 500.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status, _, _ := dto.StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		reqID, _ := c.Locals(middleware.CtxRequestID).(string)
		log.Error("request failed",
			zap.String("request_id", reqID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Error(err),
		)
	}
	return dto.Error(c, err)
}

func paramID(c *fiber.Ctx, name string) (uuid.UUID, error) {
	return parseUUID(name, c.Params(name))
}

// parseUUID turns a malformed id from a path, query or body into a 400.
func parseUUID(field, raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, &services.InvalidInputError{Reason: "invalid " + field}
	}
	return id, nil
}

// pageParams defaults a missing page or limit and caps limit at max.
func pageParams(page, limit, def, max int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return page, limit
}
