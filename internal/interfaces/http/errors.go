package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/fotara-api/internal/application/dto"
	"github.com/jhoicas/fotara-api/internal/domain"
)

// writeError traduce errores de dominio a HTTP con cuerpo dto.ErrorResponse.
func writeError(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, code = fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrForbidden):
		status, code = fiber.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, domain.ErrUnauthorized):
		status, code = fiber.StatusUnauthorized, "UNAUTHORIZED"
	case errors.Is(err, domain.ErrConfiguration):
		status, code = fiber.StatusUnprocessableEntity, "CONFIGURATION"
	case errors.Is(err, domain.ErrValidation):
		status, code = fiber.StatusUnprocessableEntity, "VALIDATION"
	case errors.Is(err, domain.ErrSubmissionInFlight):
		status, code = fiber.StatusConflict, "SUBMISSION_IN_FLIGHT"
	case errors.Is(err, domain.ErrConflict):
		status, code = fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrInvalidInput):
		status, code = fiber.StatusBadRequest, "INVALID_INPUT"
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: err.Error()})
}

func unauthorized(c *fiber.Ctx) error {
	return c.Status(fiber.StatusUnauthorized).JSON(dto.ErrorResponse{Code: "UNAUTHORIZED", Message: "token inválido"})
}
