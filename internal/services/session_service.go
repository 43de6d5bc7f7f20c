package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aims-admin/backend/internal/auth"
	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// AccessResolver supplies the role and permission data a session carries.
type AccessResolver interface {
	RoleNames(ctx context.Context, userID uuid.UUID) ([]string, error)
	EffectivePermissions(ctx context.Context, userID uuid.UUID, includeInactive bool) ([]models.EffectivePermission, error)
}

type SessionService struct {
	users  UserStore
	access AccessResolver
	tokens *auth.TokenIssuer
	log    *zap.Logger
}

func NewSessionService(users UserStore, access AccessResolver, tokens *auth.TokenIssuer, log *zap.Logger) *SessionService {
	return &SessionService{users: users, access: access, tokens: tokens, log: log}
}

// ResolveSession verifies the bearer token in an Authorization header value
// and loads the caller. Missing or inactive users never resolve.
func (s *SessionService) ResolveSession(ctx context.Context, authorization string) (*models.Session, error) {
	token, err := bearerToken(authorization)
	if err != nil {
		return nil, err
	}
	return s.ResolveToken(ctx, token)
}

// ResolveToken is ResolveSession for a bare access token.
func (s *SessionService) ResolveToken(ctx context.Context, token string) (*models.Session, error) {
	claims, err := s.tokens.Parse(token, auth.TokenTypeAccess)
	if err != nil {
		return nil, tokenError(err)
	}

	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrUserInactiveOrMissing
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrUserInactiveOrMissing
	}

	var (
		roles []string
		perms []models.EffectivePermission
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		roles, err = s.access.RoleNames(gctx, user.ID)
		return err
	})
	g.Go(func() error {
		var err error
		perms, err = s.access.EffectivePermissions(gctx, user.ID, false)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sess := &models.Session{
		UserID:      user.ID,
		Email:       user.Email,
		BranchID:    user.BranchID,
		Roles:       make(map[string]struct{}, len(roles)),
		Permissions: make(map[string]struct{}, len(perms)),
	}
	for _, r := range roles {
		sess.Roles[r] = struct{}{}
	}
	for _, p := range perms {
		sess.Permissions[p.Name] = struct{}{}
	}
	return sess, nil
}

// ResolveOptional returns nil for anonymous callers and for any token that
// does not resolve.
func (s *SessionService) ResolveOptional(ctx context.Context, authorization string) *models.Session {
	if strings.TrimSpace(authorization) == "" {
		return nil
	}
	sess, err := s.ResolveSession(ctx, authorization)
	if err != nil {
		s.log.Debug("optional auth ignored", zap.Error(err))
		return nil
	}
	return sess
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", ErrUnauthenticated
	}
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", ErrInvalidToken
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", ErrInvalidToken
	}
	return token, nil
}
