package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/aims-admin/backend/internal/auth"
	"github.com/aims-admin/backend/internal/config"
	"github.com/aims-admin/backend/internal/db"
	"github.com/aims-admin/backend/internal/events"
	apphttp "github.com/aims-admin/backend/internal/http"
	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/http/handlers"
	"github.com/aims-admin/backend/internal/logging"
	"github.com/aims-admin/backend/internal/repositories"
	"github.com/aims-admin/backend/internal/services"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogDev)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	if err := cfg.Validate(log); err != nil {
		log.Fatal("invalid configuration", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	// Run migrations
	if err := db.RunMigrations(ctx, pool, cfg.MigrationsDir, log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis is optional. Without it audit events stay in process and rate
	// limiting is per instance.
	var (
		rdb        *redis.Client
		publisher  events.Publisher
		subscriber events.Subscriber
	)
	if cfg.RedisURL != "" {
		rdb, err = db.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer rdb.Close()
		publisher = events.NewRedisPublisher(rdb, log)
		subscriber = events.NewRedisSubscriber(rdb, log)
	} else {
		bus := events.NewLocalBus()
		publisher, subscriber = bus, bus
	}

	// Repositories
	identityRepo := repositories.NewIdentityRepo(pool)
	userRepo := repositories.NewUserRepo(pool)
	roleRepo := repositories.NewRoleRepo(pool)
	permissionRepo := repositories.NewPermissionRepo(pool)
	auditRepo := repositories.NewAuditRepo(pool)

	// Services
	tokens := auth.NewTokenIssuer(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	auditService := services.NewAuditService(auditRepo, publisher, cfg.AuditWriteTimeout, log)

	rbacService := services.NewRBACService(roleRepo, permissionRepo, userRepo, auditService, cfg, log)
	authService := services.NewAuthService(identityRepo, userRepo, tokens, auditService, rbacService, cfg, log)
	sessionService := services.NewSessionService(userRepo, rbacService, tokens, log)
	userService := services.NewUserService(userRepo, auditService, log)

	if err := rbacService.EnsureBuiltins(ctx); err != nil {
		log.Fatal("failed to seed builtin roles", zap.Error(err))
	}

	// Handlers
	stream := handlers.NewAuditStreamHub(sessionService, subscriber, cfg.AdminRoleName, log)
	if err := stream.Start(ctx); err != nil {
		log.Fatal("failed to subscribe to audit stream", zap.Error(err))
	}

	h := apphttp.Handlers{
		Sessions: sessionService,
		Auth:     handlers.NewAuthHandler(authService, userService, log),
		Users:    handlers.NewUserHandler(userService, log),
		RBAC:     handlers.NewRBACHandler(rbacService, log),
		Audit:    handlers.NewAuditHandler(auditService, log),
		Health:   handlers.NewHealthHandler(pool, log),
		Stream:   stream,
	}

	// Fiber app
	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: dto.Error,
	})

	apphttp.SetupRouter(app, cfg, log, rdb, h)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
	auditService.Flush()
	log.Info("server stopped")
}
