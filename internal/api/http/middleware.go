package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/helpdesk-io/ticketing-service/internal/observability"
	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

// ErrorHandler converts errors bubbling out of handlers into the JSON error
// envelope. Unknown errors are logged and masked as internal.
func ErrorHandler(logger *zap.Logger, metrics *observability.Metrics) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{
				"error": fiber.Map{"code": "INTERNAL_ERROR", "message": fiberErr.Message},
			})
		}

		domainErr := apperrors.ToDomainError(err)
		if domainErr.Code == "INTERNAL_ERROR" {
			logger.Error("request failed",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.Error(err))
		}
		metrics.RecordError(c.Path(), c.Method(), domainErr.Code)

		payload := fiber.Map{"code": domainErr.Code, "message": domainErr.Message}
		if len(domainErr.Details) > 0 {
			payload["details"] = domainErr.Details
		}
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{"error": payload})
	}
}

// Recover converts handler panics into internal errors instead of dropping
// the connection.
func Recover(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("path", c.Path()))
				err = apperrors.NewInternalError(fiber.ErrInternalServerError)
			}
		}()
		return c.Next()
	}
}
