package handlers

import (
	"errors"

	"phunction/services"

	"github.com/gofiber/fiber/v2"
)

// fail maps service-level errors onto HTTP statuses. Anything outside the
// service taxonomy is a 500 with the cause attached.
func fail(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUserNotFound), errors.Is(err, services.ErrEventNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrUsernameTaken):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrUnauthorized):
		status = fiber.StatusForbidden
	case errors.Is(err, services.ErrWrongGameMode):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
