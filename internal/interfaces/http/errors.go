package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/peptide-ledger/internal/application/dto"
	"github.com/jhoicas/peptide-ledger/internal/domain"
)

// errorMapper traduce errores de dominio a status HTTP. Los 500 se registran y no exponen detalle.
type errorMapper struct {
	log zerolog.Logger
}

func (m errorMapper) respond(c *fiber.Ctx, err error) error {
	status, body := m.classify(err)
	if status == fiber.StatusInternalServerError {
		m.log.Error().Err(err).Str("method", c.Method()).Str("path", c.Path()).Str("org_id", GetOrgID(c)).Msg("error interno")
	}
	return c.Status(status).JSON(body)
}

func (m errorMapper) classify(err error) (int, dto.ErrorResponse) {
	var conflict *domain.ConflictError
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, dto.ErrorResponse{Code: "VALIDATION", Message: err.Error()}
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, dto.ErrorResponse{Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, domain.ErrForbidden):
		return fiber.StatusForbidden, dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"}
	case errors.Is(err, domain.ErrDuplicate):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "DUPLICATE", Message: err.Error()}
	case errors.As(err, &conflict):
		code := "CONFLICT"
		if conflict.Insufficient {
			code = "INSUFFICIENT_STOCK"
		}
		return fiber.StatusConflict, dto.ErrorResponse{Code: code, Message: conflict.Error(), BottleIDs: conflict.BottleIDs}
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, dto.ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, domain.ErrIntegrity):
		return fiber.StatusUnprocessableEntity, dto.ErrorResponse{Code: "INTEGRITY", Message: err.Error()}
	}
	return fiber.StatusInternalServerError, dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}

func badField(c *fiber.Ctx, field, reason string) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: field + ": " + reason})
}
