package handlers

import (
	"strings"

	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/middleware"
	"github.com/aims-admin/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type UserHandler struct {
	users UserAPI
	log   *zap.Logger
}

func NewUserHandler(users UserAPI, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, log: log}
}

func (h *UserHandler) ListUsers(c *fiber.Ctx) error {
	var q dto.UserListQuery
	if err := dto.BindQuery(c, &q, "search", "is_active", "page", "limit"); err != nil {
		return respondError(c, h.log, err)
	}
	page, limit := pageParams(q.Page, q.Limit, 20, 100)

	users, total, err := h.users.ListUsers(c.UserContext(), models.UserFilter{
		Search:   strings.TrimSpace(q.Search),
		IsActive: q.IsActive,
		Limit:    limit,
		Offset:   dto.Offset(page, limit),
	})
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.PageResponse{
		Items:      users,
		Pagination: models.NewPagination(page, limit, total),
	})
}

func (h *UserHandler) GetUser(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	user, err := h.users.GetUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, user)
}

func (h *UserHandler) SetStatus(c *fiber.Ctx) error {
	id, err := paramID(c, "id")
	if err != nil {
		return respondError(c, h.log, err)
	}
	var req dto.SetUserStatusRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	user, err := h.users.SetActive(c.UserContext(), middleware.GetUserID(c), id, *req.IsActive)
	if err != nil {
		return respondError(c, h.log, err)
	}
	msg := "user deactivated"
	if user.IsActive {
		msg = "user activated"
	}
	return dto.OKMessage(c, fiber.StatusOK, msg, user)
}
