// handlers/event_routes.go
package handlers

import (
	"strconv"
	"time"

	"phunction/middleware"
	"phunction/models"
	"phunction/services"
	"phunction/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupEventRoutes(app *fiber.App, eventService *services.EventService, userService *services.UserService, authClient *services.AuthServiceClient) {
	secured := app.Group("/", middleware.UserContextMiddleware())

	secured.Post("/events", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		// --- Parse form values ---
		eventName := c.FormValue("event_name")
		description := c.FormValue("description")
		dateStr := c.FormValue("date")
		timeOfDay := c.FormValue("time")
		location := c.FormValue("location")
		maxSpotsStr := c.FormValue("max_spots")
		gameMode := c.FormValue("game_mode", string(models.GameModeNone))

		if eventName == "" || dateStr == "" || location == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "event_name, date, and location are required"})
		}

		date, err := time.Parse(time.RFC3339, dateStr)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid date (use RFC3339)"})
		}

		maxSpots := 0
		if maxSpotsStr != "" {
			if n, err := strconv.Atoi(maxSpotsStr); err == nil && n >= 0 {
				maxSpots = n
			} else {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "max_spots must be a non-negative integer"})
			}
		}

		switch models.GameMode(gameMode) {
		case models.GameModeCounter, models.GameModeMatchmaking, models.GameModeNone:
		default:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "game_mode must be counter, matchmaking, or none"})
		}

		// --- Handle event image → R2 ---
		var imageURL string
		if image, err := c.FormFile("image"); err == nil && image.Size > 0 {
			url, err := utils.UploadFile(image, utils.EventImageKey(eventName, image))
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to upload event image"})
			}
			imageURL = url
		}

		event, err := eventService.CreateEvent(c.Context(), userID, services.CreateEventParams{
			EventName:   eventName,
			Description: description,
			Date:        date,
			Time:        timeOfDay,
			Location:    location,
			MaxSpots:    maxSpots,
			GameMode:    models.GameMode(gameMode),
			ImageURL:    imageURL,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(event)
	})

	secured.Get("/events/:id", func(c *fiber.Ctx) error {
		event, err := eventService.GetEvent(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(event)
	})

	secured.Patch("/events/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			EventName   *string          `json:"eventName"`
			Description *string          `json:"description"`
			Date        *time.Time       `json:"date"`
			Time        *string          `json:"time"`
			Location    *string          `json:"location"`
			MaxSpots    *int             `json:"maxSpots"`
			GameMode    *models.GameMode `json:"gameMode"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		update := services.EventUpdate{
			EventName:   req.EventName,
			Description: req.Description,
			Date:        req.Date,
			Time:        req.Time,
			Location:    req.Location,
			MaxSpots:    req.MaxSpots,
			GameMode:    req.GameMode,
		}
		if err := eventService.UpdateEvent(c.Context(), userID, c.Params("id"), update); err != nil {
			return fail(c, err)
		}
		event, err := eventService.GetEvent(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(event)
	})

	secured.Delete("/events/:id", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		if err := eventService.DeleteEvent(c.Context(), userID, c.Params("id")); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "event deleted"})
	})

	secured.Get("/events/:id/attendees", func(c *fiber.Ctx) error {
		attendees, err := eventService.GetEventAttendees(c.Context(), c.Params("id"))
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(attendees)
	})

	// Join. The attendee record carries a cached copy of the user's current
	// XP, looked up here so callers can't supply a bogus value.
	secured.Post("/events/:id/attendance", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		user, err := userService.GetUser(c.Context(), userID)
		if err != nil {
			return fail(c, err)
		}

		err = eventService.AddAttendee(c.Context(), c.Params("id"), models.Attendee{
			UID:            user.ID,
			Username:       user.Username,
			XP:             user.XP,
			ProfilePicture: user.ProfilePicture,
		})
		if err != nil {
			return fail(c, err)
		}
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"message": "joined event"})
	})

	// Leave. Attendance removal and the membership-list update are two
	// independent writes against different documents.
	secured.Delete("/events/:id/attendance", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		eventID := c.Params("id")

		if err := eventService.RemoveAttendee(c.Context(), eventID, userID); err != nil {
			return fail(c, err)
		}
		if err := userService.RemoveEventFromUser(c.Context(), userID, eventID, models.MembershipAttended); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "left event"})
	})

	secured.Get("/events/:id/attendance", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		attending, err := eventService.IsUserAttending(c.Context(), c.Params("id"), userID)
		if err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"attending": attending})
	})

	secured.Get("/events/:id/leaderboard", func(c *fiber.Ctx) error {
		eventID := c.Params("id")

		event, err := eventService.GetEvent(c.Context(), eventID)
		if err != nil {
			return fail(c, err)
		}
		participants, err := eventService.GetCounterParticipants(c.Context(), eventID)
		if err != nil {
			return fail(c, err)
		}
		attendees, err := eventService.GetEventAttendees(c.Context(), eventID)
		if err != nil {
			return fail(c, err)
		}

		return c.JSON(services.ComputeLeaderboard(participants, attendees, event.CreatedBy))
	})

	secured.Post("/events/:id/counter", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Count int `json:"count"`
			Goal  int `json:"goal"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		if err := eventService.InitializeCounterGame(c.Context(), c.Params("id"), userID, req.Count, req.Goal); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "counter game ready"})
	})

	secured.Patch("/events/:id/counter", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Count int `json:"count"`
			Goal  int `json:"goal"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		if err := eventService.UpdateCounterGameData(c.Context(), c.Params("id"), userID, req.Count, req.Goal); err != nil {
			return fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "counter updated"})
	})

	// SSE streams authenticate via query-param token (EventSource cannot set
	// headers), so they sit outside the gateway-context group.
	app.Get("/events/:id/attendees/stream", middleware.SSEAuthMiddleware(authClient), eventService.StreamEventAttendeesSSE)
	app.Get("/events/:id/counter/stream", middleware.SSEAuthMiddleware(authClient), eventService.StreamCounterGameSSE)
}
