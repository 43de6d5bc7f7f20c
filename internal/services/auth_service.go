package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aims-admin/backend/internal/auth"
	"github.com/aims-admin/backend/internal/config"
	"github.com/aims-admin/backend/internal/metrics"
	"github.com/aims-admin/backend/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Registration struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	BranchID  *uuid.UUID
}

type AuthResult struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// AdminBootstrapper grants the admin role to configured bootstrap emails.
type AdminBootstrapper interface {
	BootstrapAdmin(ctx context.Context, userID uuid.UUID, email string) error
}

type AuthService struct {
	identities IdentityStore
	users      UserStore
	tokens     *auth.TokenIssuer
	audit      Auditor
	admins     AdminBootstrapper
	cfg        *config.Config
	log        *zap.Logger
}

func NewAuthService(
	identities IdentityStore,
	users UserStore,
	tokens *auth.TokenIssuer,
	audit Auditor,
	admins AdminBootstrapper,
	cfg *config.Config,
	log *zap.Logger,
) *AuthService {
	return &AuthService{
		identities: identities,
		users:      users,
		tokens:     tokens,
		audit:      audit,
		admins:     admins,
		cfg:        cfg,
		log:        log,
	}
}

func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	res, err := s.login(ctx, auth.NormalizeEmail(email), password)
	switch {
	case err == nil:
		metrics.RecordLogin("success")
	case errors.Is(err, ErrInvalidCredentials):
		metrics.RecordLogin("invalid_credentials")
	default:
		metrics.RecordLogin("error")
	}
	return res, err
}

func (s *AuthService) login(ctx context.Context, email, password string) (*AuthResult, error) {
	ident, err := s.identities.GetIdentityByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get identity: %w", err)
	}
	if !auth.CheckPassword(ident.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetUserByID(ctx, ident.ID)
	if errors.Is(err, ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if !user.IsActive {
		return nil, ErrInvalidCredentials
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditUserLogin,
		EntityType: models.EntityUser,
		EntityID:   entityID(user.ID),
		UserID:     &user.ID,
	})
	return &AuthResult{User: user, Tokens: pair}, nil
}

// Register creates the credential record and then the profile, and signs
// the new user in. Any failure after the credential insert deletes the
// credential record again, which cascades to the profile.
func (s *AuthService) Register(ctx context.Context, reg Registration) (*AuthResult, error) {
	email := auth.NormalizeEmail(reg.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, &InvalidInputError{Reason: "a valid email is required"}
	}
	if v := auth.PasswordViolations(reg.Password); len(v) > 0 {
		return nil, &WeakPasswordError{Violations: v}
	}

	if _, err := s.identities.GetIdentityByEmail(ctx, email); err == nil {
		return nil, ErrDuplicateEmail
	} else if !errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}

	hash, err := auth.HashPassword(reg.Password, s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	ident, err := s.identities.CreateIdentity(ctx, email, hash)
	if err != nil {
		return nil, err
	}

	user, err := s.users.CreateUser(ctx, &models.User{
		ID:        ident.ID,
		Email:     email,
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		BranchID:  reg.BranchID,
		IsActive:  true,
	})
	if err != nil {
		s.rollbackIdentity(ctx, ident.ID, err)
		return nil, err
	}

	pair, err := s.startSession(ctx, user)
	if err != nil {
		s.rollbackIdentity(ctx, ident.ID, err)
		return nil, err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditUserRegistered,
		EntityType: models.EntityUser,
		EntityID:   entityID(user.ID),
		NewValues:  user,
		UserID:     &user.ID,
	})

	if s.admins != nil {
		// Startup retries the grant, so the account stays.
		if err := s.admins.BootstrapAdmin(ctx, user.ID, email); err != nil {
			s.log.Error("bootstrap admin grant failed", zap.String("user_id", user.ID.String()), zap.Error(err))
		}
	}
	return &AuthResult{User: user, Tokens: pair}, nil
}

// startSession stamps last_login_at and issues the token pair. The returned
// user reflects the new timestamp.
func (s *AuthService) startSession(ctx context.Context, user *models.User) (*auth.TokenPair, error) {
	if err := s.users.TouchLastLogin(ctx, user.ID); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	now := time.Now()
	user.LastLoginAt = &now

	return s.tokens.IssuePair(subjectOf(user))
}

func (s *AuthService) rollbackIdentity(ctx context.Context, id uuid.UUID, cause error) {
	cleanupCtx := context.WithoutCancel(ctx)
	if err := s.identities.DeleteIdentity(cleanupCtx, id); err != nil {
		s.log.Error("registration cleanup failed, orphaned identity",
			zap.String("identity_id", id.String()),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	s.log.Warn("registration rolled back", zap.String("identity_id", id.String()), zap.Error(cause))
}

// Refresh reissues both tokens for a still-active user.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	claims, err := s.tokens.Parse(refreshToken, auth.TokenTypeRefresh)
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
	return s.tokens.IssuePair(subjectOf(user))
}

func (s *AuthService) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	ident, err := s.identities.GetIdentityByID(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		return ErrUserInactiveOrMissing
	}
	if err != nil {
		return fmt.Errorf("get identity: %w", err)
	}
	if !auth.CheckPassword(ident.PasswordHash, current) {
		return ErrInvalidCredentials
	}
	if current == next {
		return &InvalidInputError{Reason: "new password must differ from the current one"}
	}
	if v := auth.PasswordViolations(next); len(v) > 0 {
		return &WeakPasswordError{Violations: v}
	}

	hash, err := auth.HashPassword(next, s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	if err := s.identities.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}

	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditUserPasswordChanged,
		EntityType: models.EntityUser,
		EntityID:   entityID(userID),
		UserID:     &userID,
	})
	return nil
}

// Logout is stateless; tokens simply expire. It only leaves an audit trail.
func (s *AuthService) Logout(ctx context.Context, userID uuid.UUID) {
	s.audit.Log(ctx, models.AuditEntry{
		Action:     models.AuditUserLogout,
		EntityType: models.EntityUser,
		EntityID:   entityID(userID),
		UserID:     &userID,
	})
}

func subjectOf(u *models.User) auth.Subject {
	return auth.Subject{UserID: u.ID, Email: u.Email, BranchID: u.BranchID}
}

func tokenError(err error) error {
	if errors.Is(err, auth.ErrTokenExpired) {
		return ErrExpiredToken
	}
	return ErrInvalidToken
}
