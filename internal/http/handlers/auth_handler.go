package handlers

import (
	"github.com/aims-admin/backend/internal/http/dto"
	"github.com/aims-admin/backend/internal/middleware"
	"github.com/aims-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type AuthHandler struct {
	auth  AuthAPI
	users UserAPI
	log   *zap.Logger
}

func NewAuthHandler(auth AuthAPI, users UserAPI, log *zap.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, log: log}
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	res, err := h.auth.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "login successful", authResponse(res))
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	reg := services.Registration{
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}
	if req.BranchID != nil {
		id, err := uuid.Parse(*req.BranchID)
		if err != nil {
			return respondError(c, h.log, &services.InvalidInputError{Reason: "invalid branch_id"})
		}
		reg.BranchID = &id
	}

	res, err := h.auth.Register(c.UserContext(), reg)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusCreated, "registration successful", authResponse(res))
}

func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	var req dto.RefreshRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	pair, err := h.auth.Refresh(c.UserContext(), req.RefreshToken)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.TokenResponse{
		AccessToken:      pair.AccessToken,
		RefreshToken:     pair.RefreshToken,
		AccessExpiresAt:  pair.AccessExpiresAt,
		RefreshExpiresAt: pair.RefreshExpiresAt,
	})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	user, err := h.users.GetUser(c.UserContext(), sess.UserID)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OK(c, fiber.StatusOK, dto.MeResponse{
		User:        user,
		Roles:       sess.RoleNames(),
		Permissions: sess.PermissionNames(),
	})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	h.auth.Logout(c.UserContext(), middleware.GetUserID(c))
	return dto.OKMessage(c, fiber.StatusOK, "logged out", nil)
}

func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	var req dto.ChangePasswordRequest
	if err := dto.BindJSON(c, &req); err != nil {
		return respondError(c, h.log, err)
	}

	if err := h.auth.ChangePassword(c.UserContext(), middleware.GetUserID(c), req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, h.log, err)
	}
	return dto.OKMessage(c, fiber.StatusOK, "password changed", nil)
}

func authResponse(res *services.AuthResult) dto.AuthResponse {
	return dto.AuthResponse{
		User:             res.User,
		AccessToken:      res.Tokens.AccessToken,
		RefreshToken:     res.Tokens.RefreshToken,
		AccessExpiresAt:  res.Tokens.AccessExpiresAt,
		RefreshExpiresAt: res.Tokens.RefreshExpiresAt,
	}
}
