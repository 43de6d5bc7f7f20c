package handlers

import (
	"context"
	"time"

	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	db  Pinger
	log *zap.Logger
}

func NewHealthHandler(db Pinger, log *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, log: log}
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return dto.OK(c, fiber.StatusOK, fiber.Map{"status": "ok"})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()
	if err := h.db.Ping(ctx); err != nil {
		h.log.Warn("readiness check failed", zap.Error(err))
		return dto.Fail(c, fiber.StatusServiceUnavailable, "database unavailable")
	}
	return dto.OK(c, fiber.StatusOK, fiber.Map{"status": "ready"})
}
