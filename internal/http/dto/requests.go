package dto

// Auth

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type RegisterRequest struct {
	Email     string  `json:"email" validate:"required,email,max=254"`
	Password  string  `json:"password" validate:"required,max=128"`
	FirstName string  `json:"first_name" validate:"required,max=100"`
	LastName  string  `json:"last_name" validate:"required,max=100"`
	BranchID  *string `json:"branch_id,omitempty" validate:"omitempty,uuid"`
}

type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,max=128"`
}

// Users

type SetUserStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type UserListQuery struct {
	Search   string `query:"search" validate:"max=100"`
	IsActive *bool  `query:"is_active"`
	Page     int    `query:"page" validate:"omitempty,min=1"`
	Limit    int    `query:"limit" validate:"omitempty,min=1,max=100"`
}

// RBAC

type CreateRoleRequest struct {
	Name        string  `json:"name" validate:"required,min=2,max=64,slug"`
	DisplayName string  `json:"display_name" validate:"max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type UpdateRoleRequest struct {
	DisplayName *string `json:"display_name,omitempty" validate:"omitempty,min=1,max=128"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type CreatePermissionRequest struct {
	Name        string  `json:"name,omitempty" validate:"omitempty,max=128,slug"`
	Module      string  `json:"module" validate:"required,max=64,slug"`
	Action      string  `json:"action" validate:"required,max=64,slug"`
	Description *string `json:"description,omitempty" validate:"omitempty,max=500"`
}

type UpdatePermissionRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

type PermissionListQuery struct {
	Module     string `query:"module"`
	Action     string `query:"action"`
	ActiveOnly bool   `query:"active_only"`
}

type AssignRoleRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	RoleID string `json:"role_id" validate:"required,uuid"`
}

type AssignPermissionRequest struct {
	PermissionID string `json:"permission_id" validate:"required,uuid"`
}

type SetUserPermissionRequest struct {
	Granted *bool   `json:"granted" validate:"required"`
	Notes   *string `json:"notes,omitempty" validate:"omitempty,max=500"`
}

type EffectivePermissionsQuery struct {
	IncludeInactive bool `query:"include_inactive"`
}

type CheckPermissionQuery struct {
	UserID   string `query:"userId" validate:"required,uuid"`
	Resource string `query:"resource" validate:"required"`
	Action   string `query:"action" validate:"required"`
}

type CheckRoleQuery struct {
	UserID string `query:"userId" validate:"required,uuid"`
	Role   string `query:"role" validate:"required"`
}

// Audit

type AuditListQuery struct {
	Action     string `query:"action"`
	UserID     string `query:"user_id" validate:"omitempty,uuid"`
	EntityType string `query:"entity_type"`
	EntityID   string `query:"entity_id"`
	Page       int    `query:"page" validate:"omitempty,min=1"`
	Limit      int    `query:"limit" validate:"omitempty,min=1,max=200"`
}

// Offset converts page/limit into an offset, defaulting page to 1.
func Offset(page, limit int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
