package routes

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/utils"
	"go.uber.org/zap"

	"todo-backend/validation"
)

// ErrorHandler renders every error as {"detail": ...}.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		detail := utils.StatusMessage(code)

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			detail = fiberErr.Message
			// fiber's router reports unmatched paths as "Cannot GET /x"
			if code == fiber.StatusNotFound && strings.HasPrefix(detail, "Cannot ") {
				detail = utils.StatusMessage(code)
			}
		} else {
			logger.Error("unhandled error", zap.Error(err), zap.String("method", c.Method()), zap.String("path", c.Path()))
		}

		if code == fiber.StatusUnauthorized {
			c.Set(fiber.HeaderWWWAuthenticate, "Bearer")
		}

		return c.Status(code).JSON(fiber.Map{"detail": detail})
	}
}

func sendValidationError(c *fiber.Ctx, status int, err error) error {
	var validationErr *validation.Error
	if errors.As(err, &validationErr) {
		return c.Status(status).JSON(fiber.Map{"detail": validationErr.Fields})
	}
	return fiber.NewError(status, err.Error())
}
