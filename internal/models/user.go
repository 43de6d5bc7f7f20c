package models

import (
	"time"

	"github.com/google/uuid"
)

// Identity is the credential record owned by the identity provider.
// Users share their ID with the identity they were registered from.
type Identity struct {
	ID           uuid.UUID `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

type User struct {
	ID          uuid.UUID  `json:"id"`
	Email       string     `json:"email"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	BranchID    *uuid.UUID `json:"branch_id,omitempty"`
	IsActive    bool       `json:"is_active"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// UserFilter lists the supported filters for user listing.
type UserFilter struct {
	Search   string
	IsActive *bool
	Limit    int
	Offset   int
}
