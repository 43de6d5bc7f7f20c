package http

import (
	"time"

	"github.com/aims-admin/backend/internal/config"
	"github.com/aims-admin/backend/internal/http/handlers"
	"github.com/aims-admin/backend/internal/middleware"
	"github.com/aims-admin/backend/internal/rbac"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Sessions middleware.SessionResolver
	Auth     *handlers.AuthHandler
	Users    *handlers.UserHandler
	RBAC     *handlers.RBACHandler
	Audit    *handlers.AuditHandler
	Health   *handlers.HealthHandler
	Stream   *handlers.AuditStreamHub // nil when redis is disabled
}

func SetupRouter(app *fiber.App, cfg *config.Config, log *zap.Logger, rdb *redis.Client, h Handlers) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Ops
	app.Get("/health", h.Health.Health)
	app.Get("/ready", h.Health.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	v1 := app.Group("/v1", middleware.Timeout(cfg.RequestTimeout))
	authed := middleware.RequireAuth(h.Sessions, log)
	perm := func(p ...string) fiber.Handler { return middleware.RequirePermissions(log, p...) }
	superAdmin := middleware.RequireRoles(log, cfg.AdminRoleName)

	// Auth (public, rate limited)
	limited := middleware.RateLimitMiddleware(rdb, cfg.RateLimitPerMinute, time.Minute, log)
	v1.Post("/auth/login", limited, h.Auth.Login)
	v1.Post("/auth/register", limited, h.Auth.Register)
	v1.Post("/auth/refresh", limited, h.Auth.Refresh)

	// Auth (bearer)
	v1.Get("/auth/me", authed, h.Auth.Me)
	v1.Post("/auth/logout", authed, h.Auth.Logout)
	v1.Put("/auth/password", authed, h.Auth.ChangePassword)

	// Users
	users := v1.Group("/users", authed)
	users.Get("/", perm(rbac.PermUsersRead), h.Users.ListUsers)
	users.Get("/:id", perm(rbac.PermUsersRead), h.Users.GetUser)
	users.Patch("/:id/status", perm(rbac.PermUsersUpdate), h.Users.SetStatus)

	// RBAC
	rb := v1.Group("/rbac", authed)
	rb.Post("/roles", superAdmin, h.RBAC.CreateRole)
	rb.Get("/roles", perm(rbac.PermRolesRead), h.RBAC.ListRoles)
	rb.Get("/roles/:id", perm(rbac.PermRolesRead), h.RBAC.GetRole)
	rb.Put("/roles/:id", perm(rbac.PermRolesUpdate), h.RBAC.UpdateRole)
	rb.Delete("/roles/:id", perm(rbac.PermRolesDelete), h.RBAC.DeleteRole)
	rb.Post("/roles/:id/permissions", perm(rbac.PermRolesUpdate), h.RBAC.AssignPermissionToRole)
	rb.Delete("/roles/:id/permissions/:permissionId", perm(rbac.PermRolesUpdate), h.RBAC.RemovePermissionFromRole)

	rb.Post("/permissions", superAdmin, h.RBAC.CreatePermission)
	rb.Get("/permissions", perm(rbac.PermPermissionsRead), h.RBAC.ListPermissions)
	rb.Patch("/permissions/:id", perm(rbac.PermPermissionsUpdate), h.RBAC.UpdatePermission)

	rb.Post("/users/assign-role", perm(rbac.PermUsersUpdate), h.RBAC.AssignRole)
	rb.Post("/users/remove-role", perm(rbac.PermUsersUpdate), h.RBAC.RemoveRole)
	rb.Get("/users/:id/roles", perm(rbac.PermPermissionsRead), h.RBAC.UserRoles)
	rb.Get("/users/:id/permissions", perm(rbac.PermPermissionsRead), h.RBAC.UserPermissions)
	rb.Put("/users/:id/permissions/:permissionId", perm(rbac.PermUsersUpdate), h.RBAC.SetUserPermission)
	rb.Delete("/users/:id/permissions/:permissionId", perm(rbac.PermUsersUpdate), h.RBAC.RemoveUserPermission)

	rb.Get("/check-permission", perm(rbac.PermPermissionsRead), h.RBAC.CheckPermission)
	rb.Get("/check-role", perm(rbac.PermPermissionsRead), h.RBAC.CheckRole)
	rb.Get("/my-permissions", h.RBAC.MyPermissions)

	// Audit
	v1.Get("/audit/logs", authed, perm(rbac.PermAuditRead), h.Audit.ListLogs)

	// WebSocket; the hub authenticates from the token query parameter.
	if h.Stream != nil {
		v1.Use("/audit/stream", handlers.WSUpgradeMiddleware())
		v1.Get("/audit/stream", websocket.New(h.Stream.HandleWS))
	}
}
