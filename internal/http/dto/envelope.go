package dto

import (
	"errors"

	"github.com/aims-admin/backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

// Envelope is the single response shape for every endpoint.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    any      `json:"data,omitempty"`
	Errors  []string `json:"errors,omitempty"`
}

func OK(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Data: data})
}

func OKMessage(c *fiber.Ctx, status int, message string, data any) error {
	return c.Status(status).JSON(Envelope{Success: true, Message: message, Data: data})
}

func Fail(c *fiber.Ctx, status int, message string, errs ...string) error {
	return c.Status(status).JSON(Envelope{Success: false, Message: message, Errors: errs})
}

// Error writes err as a failure envelope. Unknown errors become a generic 500.
func Error(c *fiber.Ctx, err error) error {
	status, message, errs := StatusFor(err)
	return Fail(c, status, message, errs...)
}

// StatusFor maps an error onto status, client message and detail list.
func StatusFor(err error) (int, string, []string) {
	var (
		bindErr  *BindError
		weakErr  *services.WeakPasswordError
		forbErr  *services.ForbiddenError
		inputErr *services.InvalidInputError
		fiberErr *fiber.Error
	)
	switch {
	case errors.As(err, &bindErr):
		return fiber.StatusBadRequest, bindErr.Message, bindErr.Fields
	case errors.As(err, &weakErr):
		return fiber.StatusBadRequest, services.ErrWeakPassword.Error(), weakErr.Violations
	case errors.As(err, &inputErr):
		return fiber.StatusBadRequest, inputErr.Reason, nil
	case errors.Is(err, services.ErrInvalidInput):
		return fiber.StatusBadRequest, err.Error(), nil

	case errors.Is(err, services.ErrInvalidCredentials),
		errors.Is(err, services.ErrInvalidToken),
		errors.Is(err, services.ErrExpiredToken),
		errors.Is(err, services.ErrUnauthenticated),
		errors.Is(err, services.ErrUserInactiveOrMissing):
		return fiber.StatusUnauthorized, rootMessage(err), nil

	case errors.As(err, &forbErr):
		return fiber.StatusForbidden, forbErr.Error(), forbErr.Missing
	case errors.Is(err, services.ErrForbidden),
		errors.Is(err, services.ErrSystemRoleProtected):
		return fiber.StatusForbidden, rootMessage(err), nil

	case errors.Is(err, services.ErrNotFound):
		return fiber.StatusNotFound, err.Error(), nil

	case errors.Is(err, services.ErrDuplicateEmail),
		errors.Is(err, services.ErrConflict),
		errors.Is(err, services.ErrRoleInUse),
		errors.Is(err, services.ErrLastAdminProtected):
		return fiber.StatusConflict, rootMessage(err), nil

	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message, nil
	}
	return fiber.StatusInternalServerError, "internal server error", nil
}

var taxonomy = []error{
	services.ErrInvalidCredentials,
	services.ErrDuplicateEmail,
	services.ErrUserInactiveOrMissing,
	services.ErrInvalidToken,
	services.ErrExpiredToken,
	services.ErrUnauthenticated,
	services.ErrForbidden,
	services.ErrSystemRoleProtected,
	services.ErrRoleInUse,
	services.ErrLastAdminProtected,
	services.ErrConflict,
}

// rootMessage strips wrapping context so driver or internal detail never
// reaches the client.
func rootMessage(err error) string {
	for _, t := range taxonomy {
		if errors.Is(err, t) {
			return t.Error()
		}
	}
	return err.Error()
}
