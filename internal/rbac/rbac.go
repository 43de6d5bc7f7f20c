package rbac

import (
	"sort"

	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
)

// System roles
const (
	RoleSuperAdmin = "super_admin"
	RoleAdmin      = "admin"
)

// Builtin permission names
const (
	PermRolesCreate = "roles.create"
	PermRolesRead   = "roles.read"
	PermRolesUpdate = "roles.update"
	PermRolesDelete = "roles.delete"

	PermPermissionsCreate = "permissions.create"
	PermPermissionsRead   = "permissions.read"
	PermPermissionsUpdate = "permissions.update"

	PermUsersRead   = "users.read"
	PermUsersUpdate = "users.update"

	PermAuditRead = "audit.read"
)

type BuiltinRole struct {
	Name        string
	DisplayName string
	Description string
}

type BuiltinPermission struct {
	Name        string
	Module      string
	Action      string
	Description string
}

var SystemRoles = []BuiltinRole{
	{RoleSuperAdmin, "Super Administrator", "Full access to every module"},
	{RoleAdmin, "Administrator", "Day-to-day administration"},
}

var BuiltinPermissions = []BuiltinPermission{
	{PermRolesCreate, "roles", "create", "Create roles"},
	{PermRolesRead, "roles", "read", "List and view roles"},
	{PermRolesUpdate, "roles", "update", "Edit roles and their permissions"},
	{PermRolesDelete, "roles", "delete", "Delete non-system roles"},
	{PermPermissionsCreate, "permissions", "create", "Create permissions"},
	{PermPermissionsRead, "permissions", "read", "List permissions and run access checks"},
	{PermPermissionsUpdate, "permissions", "update", "Enable or disable permissions"},
	{PermUsersRead, "users", "read", "List and view users"},
	{PermUsersUpdate, "users", "update", "Change user status, roles and direct permissions"},
	{PermAuditRead, "audit", "read", "Read the audit log"},
}

// PermissionName is the canonical name for a resource/action pair.
func PermissionName(resource, action string) string {
	return resource + "." + action
}

// Matches reports whether p identifies resource/action, either by its
// module/action columns or by its canonical name.
func Matches(p models.Permission, resource, action string) bool {
	if p.Module == resource && p.Action == action {
		return true
	}
	return p.Name == PermissionName(resource, action)
}

// MergeEffective combines the role layer and the direct layer into one
// effective permission list. A direct row for a permission replaces the role
// grant outright: granted=true adds it, granted=false removes it even when a
// role grants it. Inactive permissions are dropped unless includeInactive.
// The result holds each permission once, sorted by name.
func MergeEffective(roleLayer []models.Permission, direct []models.UserPermissionRow, includeInactive bool) []models.EffectivePermission {
	merged := make(map[uuid.UUID]models.EffectivePermission, len(roleLayer)+len(direct))

	for _, p := range roleLayer {
		merged[p.ID] = models.EffectivePermission{Permission: p, Source: models.PermissionSourceRole}
	}

	for _, d := range direct {
		if !d.Granted {
			delete(merged, d.Permission.ID)
			continue
		}
		merged[d.Permission.ID] = models.EffectivePermission{Permission: d.Permission, Source: models.PermissionSourceDirect}
	}

	out := make([]models.EffectivePermission, 0, len(merged))
	for _, ep := range merged {
		if !ep.IsActive && !includeInactive {
			continue
		}
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// NameSet flattens effective permissions into a name set.
func NameSet(perms []models.EffectivePermission) map[string]struct{} {
	set := make(map[string]struct{}, len(perms))
	for _, p := range perms {
		set[p.Name] = struct{}{}
	}
	return set
}
