package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aims-admin/backend/internal/config"
	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/rbac"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type RoleInput struct {
	Name        string
	DisplayName string
	Description *string
}

type PermissionInput struct {
	Name        string
	Module      string
	Action      string
	Description *string
}

type RBACService struct {
	roles RoleStore
	perms PermissionStore
	users UserStore
	audit Auditor
	cfg   *config.Config
	log   *zap.Logger
}

func NewRBACService(roles RoleStore, perms PermissionStore, users UserStore, audit Auditor, cfg *config.Config, log *zap.Logger) *RBACService {
	return &RBACService{roles: roles, perms: perms, users: users, audit: audit, cfg: cfg, log: log}
}

// Roles

func (s *RBACService) CreateRole(ctx context.Context, actor uuid.UUID, in RoleInput) (*models.Role, error) {
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if name == "" {
		return nil, &InvalidInputError{Reason: "role name is required"}
	}
	display := strings.TrimSpace(in.DisplayName)
	if display == "" {
		display = name
	}

	role, err := s.roles.CreateRole(ctx, &models.Role{
		Name:        name,
		DisplayName: display,
		Description: in.Description,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRoleCreated,
		EntityType: models.EntityRole,
		EntityID:   entityID(role.ID),
		NewValues:  role,
		UserID:     &actor,
	})
	return role, nil
}

func (s *RBACService) ListRoles(ctx context.Context) ([]models.Role, error) {
	return s.roles.ListRoles(ctx)
}

func (s *RBACService) GetRole(ctx context.Context, id uuid.UUID) (*models.RoleWithPermissions, error) {
	role, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	perms, err := s.roles.RolePermissions(ctx, id)
	if err != nil {
		return nil, err
	}
	if perms == nil {
		perms = []models.Permission{}
	}
	return &models.RoleWithPermissions{Role: *role, Permissions: perms}, nil
}

func (s *RBACService) UpdateRole(ctx context.Context, actor, id uuid.UUID, upd models.RoleUpdate) (*models.Role, error) {
	before, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return nil, err
	}
	if upd.DisplayName != nil && strings.TrimSpace(*upd.DisplayName) == "" {
		return nil, &InvalidInputError{Reason: "display name must not be empty"}
	}

	after, err := s.roles.UpdateRole(ctx, id, upd)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRoleUpdated,
		EntityType: models.EntityRole,
		EntityID:   entityID(id),
		OldValues:  before,
		NewValues:  after,
		UserID:     &actor,
	})
	return after, nil
}

// DeleteRole refuses system roles and roles that still have holders.
func (s *RBACService) DeleteRole(ctx context.Context, actor, id uuid.UUID) error {
	role, err := s.roles.GetRole(ctx, id)
	if err != nil {
		return err
	}
	if role.IsSystemRole {
		return ErrSystemRoleProtected
	}

	holders, err := s.roles.CountRoleHolders(ctx, id)
	if err != nil {
		return err
	}
	if holders > 0 {
		return ErrRoleInUse
	}

	if err := s.roles.DeleteRole(ctx, id); err != nil {
		return err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRoleDeleted,
		EntityType: models.EntityRole,
		EntityID:   entityID(id),
		OldValues:  role,
		UserID:     &actor,
	})
	return nil
}

// Permissions

func (s *RBACService) CreatePermission(ctx context.Context, actor uuid.UUID, in PermissionInput) (*models.Permission, error) {
	module := strings.ToLower(strings.TrimSpace(in.Module))
	action := strings.ToLower(strings.TrimSpace(in.Action))
	if module == "" || action == "" {
		return nil, &InvalidInputError{Reason: "module and action are required"}
	}
	name := strings.ToLower(strings.TrimSpace(in.Name))
	if name == "" {
		name = rbac.PermissionName(module, action)
	}

	p, err := s.perms.CreatePermission(ctx, &models.Permission{
		Name:        name,
		Module:      module,
		Action:      action,
		Description: in.Description,
		IsActive:    true,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditPermissionCreated,
		EntityType: models.EntityPermission,
		EntityID:   entityID(p.ID),
		NewValues:  p,
		UserID:     &actor,
	})
	return p, nil
}

func (s *RBACService) ListPermissions(ctx context.Context, f models.PermissionFilter) ([]models.Permission, error) {
	return s.perms.ListPermissions(ctx, f)
}

// SetPermissionActive toggles a permission. Disabled permissions drop out of
// every effective set but keep their assignments.
func (s *RBACService) SetPermissionActive(ctx context.Context, actor, id uuid.UUID, active bool) (*models.Permission, error) {
	before, err := s.perms.GetPermission(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.IsActive == active {
		return before, nil
	}

	after, err := s.perms.SetPermissionActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditPermissionUpdated,
		EntityType: models.EntityPermission,
		EntityID:   entityID(id),
		OldValues:  map[string]any{"is_active": before.IsActive},
		NewValues:  map[string]any{"is_active": after.IsActive},
		UserID:     &actor,
	})
	return after, nil
}

// Associations

// AssignRoleToUser is idempotent: assigning a held role succeeds without a
// second row or audit entry.
func (s *RBACService) AssignRoleToUser(ctx context.Context, actor, userID, roleID uuid.UUID) error {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return err
	}
	role, err := s.roles.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	created, err := s.roles.AssignRole(ctx, userID, roleID, &actor)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRoleAssigned,
		EntityType: models.EntityUserRole,
		EntityID:   pairID(userID, roleID),
		NewValues:  map[string]any{"user_id": userID, "role_id": roleID, "role_name": role.Name},
		UserID:     &actor,
	})
	return nil
}

// RemoveRoleFromUser refuses to strip the admin role from its last holder.
func (s *RBACService) RemoveRoleFromUser(ctx context.Context, actor, userID, roleID uuid.UUID) error {
	role, err := s.roles.GetRole(ctx, roleID)
	if err != nil {
		return err
	}

	if role.Name == s.cfg.AdminRoleName {
		holds, err := s.roles.UserHasRole(ctx, userID, roleID)
		if err != nil {
			return err
		}
		if holds {
			holders, err := s.roles.CountRoleHolders(ctx, roleID)
			if err != nil {
				return err
			}
			if holders <= 1 {
				return ErrLastAdminProtected
			}
		}
	}

	removed, err := s.roles.RemoveRole(ctx, userID, roleID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("role assignment: %w", ErrNotFound)
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRoleRemoved,
		EntityType: models.EntityUserRole,
		EntityID:   pairID(userID, roleID),
		OldValues:  map[string]any{"user_id": userID, "role_id": roleID, "role_name": role.Name},
		UserID:     &actor,
	})
	return nil
}

func (s *RBACService) AssignPermissionToRole(ctx context.Context, actor, roleID, permissionID uuid.UUID) error {
	if _, err := s.roles.GetRole(ctx, roleID); err != nil {
		return err
	}
	perm, err := s.perms.GetPermission(ctx, permissionID)
	if err != nil {
		return err
	}

	created, err := s.roles.GrantRolePermission(ctx, roleID, permissionID, &actor)
	if err != nil {
		return err
	}
	if !created {
		return nil
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRolePermissionGranted,
		EntityType: models.EntityRolePermission,
		EntityID:   pairID(roleID, permissionID),
		NewValues:  map[string]any{"role_id": roleID, "permission_id": permissionID, "permission_name": perm.Name},
		UserID:     &actor,
	})
	return nil
}

func (s *RBACService) RemovePermissionFromRole(ctx context.Context, actor, roleID, permissionID uuid.UUID) error {
	removed, err := s.roles.RevokeRolePermission(ctx, roleID, permissionID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("role permission: %w", ErrNotFound)
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRolePermissionRevoked,
		EntityType: models.EntityRolePermission,
		EntityID:   pairID(roleID, permissionID),
		OldValues:  map[string]any{"role_id": roleID, "permission_id": permissionID},
		UserID:     &actor,
	})
	return nil
}

// SetUserPermission writes the direct override for (user, permission).
// granted=false explicitly revokes a role-derived grant for this user.
func (s *RBACService) SetUserPermission(ctx context.Context, actor, userID, permissionID uuid.UUID, granted bool, notes *string) (*models.UserPermission, error) {
	if _, err := s.users.GetUserByID(ctx, userID); err != nil {
		return nil, err
	}
	if _, err := s.perms.GetPermission(ctx, permissionID); err != nil {
		return nil, err
	}

	before, err := s.perms.GetDirectPermission(ctx, userID, permissionID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	after, err := s.perms.UpsertDirectPermission(ctx, models.UserPermission{
		UserID:       userID,
		PermissionID: permissionID,
		Granted:      granted,
		GrantedBy:    &actor,
		Notes:        notes,
	})
	if err != nil {
		return nil, err
	}

	entry := models.AuditEntry{
		Action:     models.AuditUserPermissionSet,
		EntityType: models.EntityUserPermission,
		EntityID:   pairID(userID, permissionID),
		NewValues:  after,
		UserID:     &actor,
	}
	if before != nil {
		entry.OldValues = before
	}
	s.audit.Log(ctx, entry)
	return after, nil
}

func (s *RBACService) RemoveUserPermission(ctx context.Context, actor, userID, permissionID uuid.UUID) error {
	before, err := s.perms.GetDirectPermission(ctx, userID, permissionID)
	if err != nil {
		return err
	}
	removed, err := s.perms.DeleteDirectPermission(ctx, userID, permissionID)
	if err != nil {
		return err
	}
	if !removed {
		return fmt.Errorf("user permission: %w", ErrNotFound)
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditUserPermissionRemoved,
		EntityType: models.EntityUserPermission,
		EntityID:   pairID(userID, permissionID),
		OldValues:  before,
		UserID:     &actor,
	})
	return nil
}

// Queries

func (s *RBACService) UserRoles(ctx context.Context, userID uuid.UUID) ([]models.UserRoleRow, error) {
	return s.roles.UserRoles(ctx, userID)
}

func (s *RBACService) RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := s.roles.UserRoles(ctx, userID)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(rows))
	for _, r := range rows {
		names = append(names, r.RoleName)
	}
	return names, nil
}

// EffectivePermissions merges the role layer with the user's direct
// overrides. Direct rows win.
func (s *RBACService) EffectivePermissions(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]models.EffectivePermission, error) {
	roleLayer, err := s.perms.RoleLayerPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("role permissions: %w", err)
	}
	direct, err := s.perms.DirectPermissions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("direct permissions: %w", err)
	}
	return rbac.MergeEffective(roleLayer, direct, includeInactive), nil
}

// HasPermission is false, not an error, for users without any grants.
func (s *RBACService) HasPermission(ctx context.Context, userID uuid.UUID, resource, action string) (bool, error) {
	perms, err := s.EffectivePermissions(ctx, userID, false)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if rbac.Matches(p.Permission, resource, action) {
			return true, nil
		}
	}
	return false, nil
}

func (s *RBACService) HasRole(ctx context.Context, userID uuid.UUID, roleName string) (bool, error) {
	names, err := s.RoleNames(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if n == roleName {
			return true, nil
		}
	}
	return false, nil
}

// EnsureBuiltins creates the system roles and builtin permissions that are
// missing and grants every builtin permission to the super admin role.
func (s *RBACService) EnsureBuiltins(ctx context.Context) error {
	roleIDs := make(map[string]uuid.UUID, len(rbac.SystemRoles))
	for _, br := range rbac.SystemRoles {
		role, err := s.roles.GetRoleByName(ctx, br.Name)
		if errors.Is(err, ErrNotFound) {
			desc := br.Description
			role, err = s.roles.CreateRole(ctx, &models.Role{
				Name:         br.Name,
				DisplayName:  br.DisplayName,
				Description:  &desc,
				IsSystemRole: true,
			})
			if err == nil {
				s.log.Info("system role created", zap.String("role", br.Name))
				s.audit.Log(ctx, models.AuditEntry{
					Action:     models.AuditRoleCreated,
					EntityType: models.EntityRole,
					EntityID:   entityID(role.ID),
					NewValues:  role,
				})
			}
		}
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", br.Name, err)
		}
		roleIDs[br.Name] = role.ID
	}

	superAdmin := roleIDs[rbac.RoleSuperAdmin]
	for _, bp := range rbac.BuiltinPermissions {
		p, err := s.perms.GetPermissionByName(ctx, bp.Name)
		if errors.Is(err, ErrNotFound) {
			desc := bp.Description
			p, err = s.perms.CreatePermission(ctx, &models.Permission{
				Name:        bp.Name,
				Module:      bp.Module,
				Action:      bp.Action,
				Description: &desc,
				IsActive:    true,
			})
		}
		if err != nil {
			return fmt.Errorf("ensure permission %s: %w", bp.Name, err)
		}
		if _, err := s.roles.GrantRolePermission(ctx, superAdmin, p.ID, nil); err != nil {
			return fmt.Errorf("grant %s: %w", bp.Name, err)
		}
	}

	for _, email := range s.cfg.BootstrapAdminEmails {
		user, err := s.users.GetUserByEmail(ctx, email)
		if errors.Is(err, ErrNotFound) {
			// Granted on registration instead.
			continue
		}
		if err != nil {
			return fmt.Errorf("bootstrap admin %s: %w", email, err)
		}
		if err := s.BootstrapAdmin(ctx, user.ID, user.Email); err != nil {
			return err
		}
	}
	return nil
}

// BootstrapAdmin grants the admin role to a user whose email is listed in
// BOOTSTRAP_ADMIN_EMAILS. Other users are left untouched. The grant has no
// acting user and is audited only when it creates the assignment.
func (s *RBACService) BootstrapAdmin(ctx context.Context, userID uuid.UUID, email string) error {
	if !s.cfg.IsBootstrapAdmin(email) {
		return nil
	}
	role, err := s.roles.GetRoleByName(ctx, s.cfg.AdminRoleName)
	if err != nil {
		return fmt.Errorf("bootstrap admin: get role %s: %w", s.cfg.AdminRoleName, err)
	}
	created, err := s.roles.AssignRole(ctx, userID, role.ID, nil)
	if err != nil {
		return fmt.Errorf("bootstrap admin: assign: %w", err)
	}
	if !created {
		return nil
	}

	s.log.Info("bootstrap admin granted",
		zap.String("user_id", userID.String()),
		zap.String("role", role.Name),
	)
	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditRoleAssigned,
		EntityType: models.EntityUserRole,
		EntityID:   pairID(userID, role.ID),
		NewValues:  map[string]any{"user_id": userID, "role_id": role.ID, "role_name": role.Name, "bootstrap": true},
	})
	return nil
}
