package middleware

import (
	"context"

	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/metrics"
	"github.com/aims-admin/backend/internal/models"
	"github.com/aims-admin/backend/internal/rbac"
	"github.com/aims-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const CtxSession = "session"

// SessionResolver turns an Authorization header into a caller session.
type SessionResolver interface {
	ResolveSession(ctx context.Context, authorization string) (*models.Session, error)
	ResolveOptional(ctx context.Context, authorization string) *models.Session
}

// RequireAuth rejects the request with 401 unless the bearer token resolves
// to an active user.
func RequireAuth(sessions SessionResolver, log *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess, err := sessions.ResolveSession(c.UserContext(), c.Get(fiber.HeaderAuthorization))
		if err != nil {
			log.Debug("authentication failed", zap.String("path", c.Path()), zap.Error(err))
			return dto.Error(c, err)
		}
		c.Locals(CtxSession, sess)
		return c.Next()
	}
}

// OptionalAuth attaches a session when a valid token is present and never
// rejects.
func OptionalAuth(sessions SessionResolver) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sess := sessions.ResolveOptional(c.UserContext(), c.Get(fiber.HeaderAuthorization)); sess != nil {
			c.Locals(CtxSession, sess)
		}
		return c.Next()
	}
}

// RequireRoles passes when the session holds any of roles. Must run after
// RequireAuth.
func RequireRoles(log *zap.Logger, roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := GetSession(c)
		if sess == nil {
			return dto.Error(c, services.ErrUnauthenticated)
		}
		return enforce(c, log, sess, rbac.RoleGate(sess.Roles, roles...))
	}
}

// RequirePermissions passes only when the session holds every permission.
func RequirePermissions(log *zap.Logger, perms ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		sess := GetSession(c)
		if sess == nil {
			return dto.Error(c, services.ErrUnauthenticated)
		}
		return enforce(c, log, sess, rbac.PermissionGate(sess.Permissions, perms...))
	}
}

func enforce(c *fiber.Ctx, log *zap.Logger, sess *models.Session, d rbac.Decision) error {
	metrics.RecordAuthzDecision(d.Gate, d.Allowed)
	if d.Allowed {
		return c.Next()
	}
	log.Info("access denied",
		zap.String("gate", d.Gate),
		zap.String("user_id", sess.UserID.String()),
		zap.String("path", c.Path()),
		zap.Strings("missing", d.Missing),
	)
	return dto.Error(c, &services.ForbiddenError{Kind: d.Gate, Missing: d.Missing})
}

// GetSession returns the caller's session, or nil for anonymous requests.
func GetSession(c *fiber.Ctx) *models.Session {
	sess, _ := c.Locals(CtxSession).(*models.Session)
	return sess
}

func GetUserID(c *fiber.Ctx) uuid.UUID {
	if sess := GetSession(c); sess != nil {
		return sess.UserID
	}
	return uuid.Nil
}
