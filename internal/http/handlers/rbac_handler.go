package handlers

import (
	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/middleware"
	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RBACHandler struct {
	rbac RBACAPI
	log  *zap.Logger
}

func NewRBACHandler(rbac RBACAPI, log *zap.Logger) *RBACHandler {
	return &RBACHandler{rbac: rbac, log: log}
}

// Roles

func (h *RBACHandler) CreateRole(c *fiber.Ctx) error {
	var req dto.CreateRoleRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	role, err := h.rbac.CreateRole(c.UserContext(), middleware.GetUserID(c), services.RoleInput{
		Name:        req.Name,
		DisplayName: req.DisplayName,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusCreated, "role created", role)
}

func (h *RBACHandler) ListRoles(c *fiber.Ctx) error {
	roles, err := h.rbac.ListRoles(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, roles)
}

func (h *RBACHandler) GetRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	role, err := h.rbac.GetRole(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, role)
}

func (h *RBACHandler) UpdateRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.UpdateRoleRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	role, err := h.rbac.UpdateRole(c.UserContext(), middleware.GetUserID(c), id, models.RoleUpdate{
		DisplayName: req.DisplayName,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "role updated", role)
}

func (h *RBACHandler) DeleteRole(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.rbac.DeleteRole(c.UserContext(), middleware.GetUserID(c), id); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "role deleted", nil)
}

// Permissions

func (h *RBACHandler) CreatePermission(c *fiber.Ctx) error {
	var req dto.CreatePermissionRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	perm, err := h.rbac.CreatePermission(c.UserContext(), middleware.GetUserID(c), services.PermissionInput{
		Name:        req.Name,
		Module:      req.Module,
		Action:      req.Action,
		Description: req.Description,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusCreated, "permission created", perm)
}

func (h *RBACHandler) ListPermissions(c *fiber.Ctx) error {
	var q dto.PermissionListQuery
	if err := dto.BindQuery(c, &q, "module", "action", "active_only"); err != nil {
		return respondError(c, h.log, err)
	}

	perms, err := h.rbac.ListPermissions(c.UserContext(), models.PermissionFilter{
		Module:     q.Module,
		Action:     q.Action,
		ActiveOnly: q.ActiveOnly,
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, perms)
}

func (h *RBACHandler) UpdatePermission(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.UpdatePermissionRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	perm, err := h.rbac.SetPermissionActive(c.UserContext(), middleware.GetUserID(c), id, *req.IsActive)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "permission updated", perm)
}

// Role permissions

func (h *RBACHandler) AssignPermissionToRole(c *fiber.Ctx) error {
	roleID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.AssignPermissionRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	permID, err := parseUUID("permission_id", req.PermissionID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.rbac.AssignPermissionToRole(c.UserContext(), middleware.GetUserID(c), roleID, permID); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "permission assigned to role", nil)
}

func (h *RBACHandler) RemovePermissionFromRole(c *fiber.Ctx) error {
	roleID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	permID, err := paramID(c, "permissionId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.rbac.RemovePermissionFromRole(c.UserContext(), middleware.GetUserID(c), roleID, permID); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "permission removed from role", nil)
}

// User roles

func (h *RBACHandler) AssignRole(c *fiber.Ctx) error {
	var req dto.AssignRoleRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	userID, roleID, err := userRolePair(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.rbac.AssignRoleToUser(c.UserContext(), middleware.GetUserID(c), userID, roleID); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "role assigned", nil)
}

func (h *RBACHandler) RemoveRole(c *fiber.Ctx) error {
	var req dto.AssignRoleRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	userID, roleID, err := userRolePair(req)
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.rbac.RemoveRoleFromUser(c.UserContext(), middleware.GetUserID(c), userID, roleID); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "role removed", nil)
}

func userRolePair(req dto.AssignRoleRequest) (uuid.UUID, uuid.UUID, error) {
	userID, err := parseUUID("user_id", req.UserID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	roleID, err := parseUUID("role_id", req.RoleID)
	if err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return userID, roleID, nil
}

func (h *RBACHandler) UserRoles(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	roles, err := h.rbac.UserRoles(c.UserContext(), userID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, roles)
}

// User permissions

func (h *RBACHandler) UserPermissions(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var q dto.EffectivePermissionsQuery
	if err := dto.BindQuery(c, &q, "include_inactive"); err != nil {
		return respondError(c, h.log, err)
	}

	perms, err := h.rbac.EffectivePermissions(c.UserContext(), userID, q.IncludeInactive)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, perms)
}

func (h *RBACHandler) SetUserPermission(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	permID, err := paramID(c, "permissionId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.SetUserPermissionRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	up, err := h.rbac.SetUserPermission(c.UserContext(), middleware.GetUserID(c), userID, permID, *req.Granted, req.Notes)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "user permission set", up)
}

func (h *RBACHandler) RemoveUserPermission(c *fiber.Ctx) error {
	userID, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	permID, err := paramID(c, "permissionId")
	if err != nil {
		return respondError(c, h.log, err)
	}
	if err := h.rbac.RemoveUserPermission(c.UserContext(), middleware.GetUserID(c), userID, permID); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "user permission removed", nil)
}

// Checks

func (h *RBACHandler) CheckPermission(c *fiber.Ctx) error {
	var q dto.CheckPermissionQuery
	if err := dto.BindQuery(c, &q, "userId", "resource", "action"); err != nil {
		return respondError(c, h.log, err)
	}

	userID, err := parseUUID("userId", q.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	ok, err := h.rbac.HasPermission(c.UserContext(), userID, q.Resource, q.Action)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.PermissionCheckResponse{
		UserID:        q.UserID,
		Resource:      q.Resource,
		Action:        q.Action,
		HasPermission: ok,
	})
}

func (h *RBACHandler) CheckRole(c *fiber.Ctx) error {
	var q dto.CheckRoleQuery
	if err := dto.BindQuery(c, &q, "userId", "role"); err != nil {
		return respondError(c, h.log, err)
	}

	userID, err := parseUUID("userId", q.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	ok, err := h.rbac.HasRole(c.UserContext(), userID, q.Role)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.RoleCheckResponse{UserID: q.UserID, Role: q.Role, HasRole: ok})
}

// MyPermissions reports the caller's own effective permissions.
func (h *RBACHandler) MyPermissions(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	perms, err := h.rbac.EffectivePermissions(c.UserContext(), sess.UserID, false)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.MyPermissionsResponse{
		Roles:       sess.RoleNames(),
		Permissions: perms,
	})
}
