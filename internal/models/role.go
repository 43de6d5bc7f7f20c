package models

import (
	"time"

	"github.com/google/uuid"
)

type Role struct {
	ID           uuid.UUID `json:"id"`
	Name         string    `json:"name"`
	DisplayName  string    `json:"display_name"`
	Description  *string   `json:"description,omitempty"`
	IsSystemRole bool      `json:"is_system_role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// RoleWithPermissions is a role joined with the permissions granted to it.
type RoleWithPermissions struct {
	Role
	Permissions []Permission `json:"permissions"`
}

// RoleUpdate carries the mutable role fields; nil means unchanged.
type RoleUpdate struct {
	DisplayName *string
	Description *string
}

type UserRole struct {
	UserID     uuid.UUID  `json:"user_id"`
	RoleID     uuid.UUID  `json:"role_id"`
	AssignedBy *uuid.UUID `json:"assigned_by,omitempty"`
	AssignedAt time.Time  `json:"assigned_at"`
}

// UserRoleRow is the user_roles -> roles join result.
type UserRoleRow struct {
	UserRole
	RoleName        string `json:"role_name"`
	RoleDisplayName string `json:"role_display_name"`
	IsSystemRole    bool   `json:"is_system_role"`
}
