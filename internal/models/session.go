package models

import (
	"sort"

	"github.com/google/uuid"
)

// Session is the identity resolved from a verified access token. It lives for
// one request.
type Session struct {
	UserID      uuid.UUID           `json:"user_id"`
	Email       string              `json:"email"`
	BranchID    *uuid.UUID          `json:"branch_id,omitempty"`
	Roles       map[string]struct{} `json:"-"`
	Permissions map[string]struct{} `json:"-"`
}

func (s *Session) HasRole(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Roles[name]
	return ok
}

func (s *Session) HasPermission(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.Permissions[name]
	return ok
}

// RoleNames returns the role set sorted for stable output.
func (s *Session) RoleNames() []string {
	return sortedKeys(s.Roles)
}

// PermissionNames returns the effective permission set sorted for stable output.
func (s *Session) PermissionNames() []string {
	return sortedKeys(s.Permissions)
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Pagination is the page metadata returned by list endpoints.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

func NewPagination(page, limit, total int) Pagination {
	pages := 0
	if limit > 0 {
		pages = (total + limit - 1) / limit
	}
	return Pagination{Page: page, Limit: limit, Total: total, TotalPages: pages}
}
