package services

import (
	"context"
	"strings"

	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type UserService struct {
	users UserStore
	audit Auditor
	log   *zap.Logger
}

func NewUserService(users UserStore, audit Auditor, log *zap.Logger) *UserService {
	return &UserService{users: users, audit: audit, log: log}
}

func (s *UserService) ListUsers(ctx context.Context, f models.UserFilter) ([]models.User, int, error) {
	f.Search = strings.TrimSpace(f.Search)
	if f.Limit <= 0 {
		f.Limit = 20
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.users.ListUsers(ctx, f)
}

func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.GetUserByID(ctx, id)
}

// SetActive activates or deactivates an account. Users are never hard
// deleted; a deactivated user's tokens stop resolving immediately.
func (s *UserService) SetActive(ctx context.Context, actor, id uuid.UUID, active bool) (*models.User, error) {
	if actor == id && !active {
		return nil, &InvalidInputError{Reason: "you cannot deactivate your own account"}
	}

	before, err := s.users.GetUserByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if before.IsActive == active {
		return before, nil
	}

	after, err := s.users.SetUserActive(ctx, id, active)
	if err != nil {
		return nil, err
	}

	action := models.AuditUserDeactivated
	if active {
		action = models.AuditUserActivated
	}
	s.audit.Log(ctx, models.AuditEntry{
		Action:     action,
		EntityType: models.EntityUser,
		EntityID:   entityID(id),
		OldValues:  map[string]any{"is_active": before.IsActive},
		NewValues:  map[string]any{"is_active": after.IsActive},
		UserID:     &actor,
	})
	return after, nil
}
