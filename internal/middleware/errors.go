package middleware

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/postertrack/backend/internal/apperr"
	"github.com/postertrack/backend/internal/http/dto"
	"go.uber.org/zap"
)

// ErrorHandler is the fiber error handler. Handlers return domain errors and this
// maps them to a status code and the error envelope.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		reqID := GetRequestID(c)

		var fe *fiber.Error
		if errors.As(err, &fe) {
			msg := fe.Message
			if fe.Code == fiber.StatusRequestEntityTooLarge {
				msg = "file is too large"
			}
			return c.Status(fe.Code).JSON(dto.ErrorResponse{Error: msg, RequestID: reqID})
		}

		status := StatusFor(err)
		if status == fiber.StatusInternalServerError {
			log.Error("request failed",
				zap.String("request_id", reqID),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		return c.Status(status).JSON(dto.ErrorResponse{
			Error:     apperr.PublicMessage(err),
			Details:   apperr.FieldsOf(err),
			RequestID: reqID,
		})
	}
}

func StatusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		return fiber.StatusBadRequest
	case apperr.KindUnauthorized:
		return fiber.StatusUnauthorized
	case apperr.KindForbidden:
		return fiber.StatusForbidden
	case apperr.KindNotFound:
		return fiber.StatusNotFound
	case apperr.KindConflict:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}
