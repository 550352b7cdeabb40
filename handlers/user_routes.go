// handlers/user_routes.go
package handlers

import (
	"phunction/middleware"
	"phunction/models"
	"phunction/services"

	"github.com/gofiber/fiber/v2"
)

func SetupUserRoutes(app *fiber.App, userService *services.UserService, eventService *services.EventService) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Get("/users/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := userService.GetUser(c.Context(), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(user)
	})

	secured.Patch("/users/me", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Username *string          `json:"username"`
			Bio      *string          `json:"bio"`
			Location *models.Location `json:"location"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		update := services.UserUpdate{
			Username: req.Username,
			Bio:      req.Bio,
			Location: req.Location,
		}
		if err := userService.UpdateUser(c.Context(), userID, update); err != nil {
			return fail(c, err)
		}
		user, err := userService.GetUser(c.Context(), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(user)
	})

	secured.Post("/users/me/picture", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		picture, err := c.FormFile("picture")
		if err != nil || picture.Size == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "picture file is required"})
		}

		user, err := userService.GetUser(c.Context(), userID)
		if err != nil {
			return fail(c, err)
		}

		url, err := userService.UploadProfilePicture(picture)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload picture", "cause": err.Error()})
		}

		// The previous image is orphaned once the profile points elsewhere;
		// removal is best effort.
		userService.DeleteProfilePicture(user.ProfilePicture)

		if err := userService.UpdateUser(c.Context(), userID, services.UserUpdate{ProfilePicture: &url}); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"profilePicture": url})
	})

	secured.Get("/users/me/progress", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		user, err := userService.GetUser(c.Context(), userID)
		if err != nil {
			return fail(c, err)
		}

		level := services.LevelFromXP(user.XP)
		return c.JSON(fiber.Map{
			"xp":                user.XP,
			"level":             level,
			"title":             services.TitleForLevel(level),
			"xp_for_next_level": services.XPForNextLevel(user.XP),
			"progress":          services.XPProgress(user.XP),
		})
	})

	// Manual drift repair: re-push the stored XP into every attendee cache.
	secured.Post("/users/me/xp/sync", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := userService.SyncUserXPAcrossEvents(c.Context(), userID); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "xp synced across events"})
	})

	secured.Get("/users/:id/events/created", func(c *fiber.Ctx) error {
		events, err := eventService.GetUserEvents(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(events)
	})

	secured.Get("/users/:id/events/attended", func(c *fiber.Ctx) error {
		events, err := eventService.GetAttendedEvents(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(events)
	})

	// Admin endpoints
	admin := app.Group("/admin", middleware.UserContextMiddleware())

	admin.Post("/xp/grant", func(c *fiber.Ctx) error {
		type Req struct {
			UserID string `json:"user_id"`
			XP     int    `json:"xp"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		if req.UserID == "" || req.XP == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id and a non-zero xp are required"})
		}

		newXP, err := userService.UpdateUserXP(c.Context(), req.UserID, req.XP)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{
			"message": "XP granted successfully",
			"user_id": req.UserID,
			"xp":      newXP,
		})
	})
}
