package services

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrDuplicateEmail        = errors.New("user with this email already exists")
	ErrWeakPassword          = errors.New("password does not meet strength requirements")
	ErrUserInactiveOrMissing = errors.New("user is inactive or no longer exists")
	ErrInvalidToken          = errors.New("invalid token")
	ErrExpiredToken          = errors.New("token has expired")
	ErrUnauthenticated       = errors.New("authentication required")
	ErrForbidden             = errors.New("forbidden")
	ErrSystemRoleProtected   = errors.New("system roles cannot be deleted")
	ErrRoleInUse             = errors.New("role is assigned to users and cannot be deleted")
	ErrLastAdminProtected    = errors.New("cannot remove the last holder of the admin role")
	ErrNotFound              = errors.New("not found")
	ErrConflict              = errors.New("already exists")
	ErrInvalidInput          = errors.New("invalid input")
)

// WeakPasswordError enumerates every violated password rule.
type WeakPasswordError struct {
	Violations []string
}

func (e *WeakPasswordError) Error() string {
	return ErrWeakPassword.Error() + ": " + strings.Join(e.Violations, "; ")
}

func (e *WeakPasswordError) Is(target error) bool { return target == ErrWeakPassword }

// ForbiddenError carries what the caller was missing. Kind is "role" or
// "permission".
type ForbiddenError struct {
	Kind    string
	Missing []string
}

func (e *ForbiddenError) Error() string {
	if e.Kind == "role" {
		return "forbidden: requires one of roles " + strings.Join(e.Missing, ", ")
	}
	return "forbidden: missing permissions " + strings.Join(e.Missing, ", ")
}

func (e *ForbiddenError) Is(target error) bool { return target == ErrForbidden }

// InvalidInputError wraps a human readable reason as ErrInvalidInput.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string { return e.Reason }

func (e *InvalidInputError) Is(target error) bool { return target == ErrInvalidInput }
