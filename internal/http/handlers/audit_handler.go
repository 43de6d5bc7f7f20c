package handlers

import (
	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuditHandler struct {
	audit AuditAPI
	log   *zap.Logger
}

func NewAuditHandler(audit AuditAPI, log *zap.Logger) *AuditHandler {
	return &AuditHandler{audit: audit, log: log}
}

func (h *AuditHandler) ListLogs(c *fiber.Ctx) error {
	var q dto.AuditListQuery
	if err := dto.BindQuery(c, &q, "action", "user_id", "entity_type", "entity_id", "page", "limit"); err != nil {
		return respondError(c, h.log, err)
	}
	page, limit := pageParams(q.Page, q.Limit, 50, 200)

	f := models.AuditFilter{
		Action:     q.Action,
		EntityType: q.EntityType,
		EntityID:   q.EntityID,
		Limit:      limit,
		Offset:     dto.Offset(page, limit),
	}
	if q.UserID != "" {
		id, err := parseUUID("user_id", q.UserID)
		if err != nil {
			return respondError(c, h.log, err)
		}
		f.UserID = &id
	}

	logs, total, err := h.audit.List(c.UserContext(), f)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.PageResponse{
		Items:      logs,
		Pagination: models.NewPagination(page, limit, total),
	})
}
