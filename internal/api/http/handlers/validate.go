package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	apperrors "github.com/helpdesk-io/ticketing-service/pkg/util"
)

var validate = validator.New()

// parseAndValidate decodes the JSON body into dest and runs struct
// validation, translating failures into a per-field validation error.
func parseAndValidate(c *fiber.Ctx, dest any) error {
	if err := c.BodyParser(dest); err != nil {
		return apperrors.NewValidationError("invalid request body", map[string]any{"parse": err.Error()})
	}
	if err := validate.Struct(dest); err != nil {
		var invalid validator.ValidationErrors
		if errors.As(err, &invalid) {
			details := make(map[string]any, len(invalid))
			for _, fieldErr := range invalid {
				details[strings.ToLower(fieldErr.Field())] = validationMessage(fieldErr)
			}
			return apperrors.NewValidationError("validation failed", details)
		}
		return apperrors.NewValidationError("validation failed", nil)
	}
	return nil
}

func validationMessage(fieldErr validator.FieldError) string {
	switch fieldErr.Tag() {
	case "required":
		return "is required"
	case "min":
		return fmt.Sprintf("must be at least %s characters long", fieldErr.Param())
	case "email":
		return "must be a valid email address"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fieldErr.Param())
	case "uuid4":
		return "must be a valid UUID"
	default:
		return fmt.Sprintf("failed %s validation", fieldErr.Tag())
	}
}
