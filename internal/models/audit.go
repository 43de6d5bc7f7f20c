package models

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

// Audit actions
const (
	AuditUserRegistered      = "user.registered"
	AuditUserLogin           = "user.login"
	AuditUserLogout          = "user.logout"
	AuditUserPasswordChanged = "user.password_changed"
	AuditUserActivated       = "user.activated"
	AuditUserDeactivated     = "user.deactivated"

	AuditRoleCreated = "role.created"
	AuditRoleUpdated = "role.updated"
	AuditRoleDeleted = "role.deleted"

	AuditPermissionCreated = "permission.created"
	AuditPermissionUpdated = "permission.updated"

	AuditRoleAssigned          = "user_role.assigned"
	AuditRoleRemoved           = "user_role.removed"
	AuditRolePermissionGranted = "role_permission.granted"
	AuditRolePermissionRevoked = "role_permission.revoked"
	AuditUserPermissionSet     = "user_permission.set"
	AuditUserPermissionRemoved = "user_permission.removed"
)

// Audit entity types
const (
	EntityUser           = "user"
	EntityRole           = "role"
	EntityPermission     = "permission"
	EntityUserRole       = "user_role"
	EntityRolePermission = "role_permission"
	EntityUserPermission = "user_permission"
)

// AuditEntry is what callers hand to the audit writer. Old and new values are
// point-in-time snapshots and are serialized as-is.
type AuditEntry struct {
	Action     string
	EntityType string
	EntityID   *string
	OldValues  any
	NewValues  any
	UserID     *uuid.UUID
}

type AuditLog struct {
	ID         uuid.UUID       `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   *string         `json:"entity_id,omitempty"`
	OldValues  json.RawMessage `json:"old_values,omitempty"`
	NewValues  json.RawMessage `json:"new_values,omitempty"`
	UserID     *uuid.UUID      `json:"user_id,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

type AuditFilter struct {
	Action     string
	EntityType string
	EntityID   string
	UserID     *uuid.UUID
	Limit      int
	Offset     int
}
