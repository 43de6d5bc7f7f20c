package models

import (
	"time"

	"github.com/google/uuid"
)

// Permission sources in the effective permission merge.
const (
	PermissionSourceRole   = "role"
	PermissionSourceDirect = "direct"
)

type Permission struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Module      string    `json:"module"`
	Action      string    `json:"action"`
	Description *string   `json:"description,omitempty"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
}

// PermissionFilter lists the supported filters for permission listing.
type PermissionFilter struct {
	Module     string
	Action     string
	ActiveOnly bool
}

type RolePermission struct {
	RoleID       uuid.UUID  `json:"role_id"`
	PermissionID uuid.UUID  `json:"permission_id"`
	GrantedBy    *uuid.UUID `json:"granted_by,omitempty"`
	GrantedAt    time.Time  `json:"granted_at"`
}

// UserPermission is a direct per-user override. Its Granted flag wins over
// whatever the user's roles grant for the same permission.
type UserPermission struct {
	UserID       uuid.UUID  `json:"user_id"`
	PermissionID uuid.UUID  `json:"permission_id"`
	Granted      bool       `json:"granted"`
	GrantedBy    *uuid.UUID `json:"granted_by,omitempty"`
	Notes        *string    `json:"notes,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
}

// UserPermissionRow is the user_permissions -> permissions join result.
type UserPermissionRow struct {
	UserPermission
	Permission Permission `json:"permission"`
}

// EffectivePermission is one entry of a user's merged permission set.
type EffectivePermission struct {
	Permission
	Source string `json:"source"`
}
