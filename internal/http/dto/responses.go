package dto

import (
	"time"

	"github.com/aims-admin/backend/internal/models"
)

type AuthResponse struct {
	User             *models.User `json:"user"`
	AccessToken      string       `json:"access_token"`
	RefreshToken     string       `json:"refresh_token"`
	AccessExpiresAt  time.Time    `json:"access_expires_at"`
	RefreshExpiresAt time.Time    `json:"refresh_expires_at"`
}

type TokenResponse struct {
	AccessToken      string    `json:"access_token"`
	RefreshToken     string    `json:"refresh_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type MeResponse struct {
	User        *models.User `json:"user"`
	Roles       []string     `json:"roles"`
	Permissions []string     `json:"permissions"`
}

type PageResponse struct {
	Items      any               `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

type PermissionCheckResponse struct {
	UserID        string `json:"user_id"`
	Resource      string `json:"resource"`
	Action        string `json:"action"`
	HasPermission bool   `json:"has_permission"`
}

type RoleCheckResponse struct {
	UserID  string `json:"user_id"`
	Role    string `json:"role"`
	HasRole bool   `json:"has_role"`
}

type MyPermissionsResponse struct {
	Roles       []string                     `json:"roles"`
	Permissions []models.EffectivePermission `json:"permissions"`
}
