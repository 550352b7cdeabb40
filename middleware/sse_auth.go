// phunction/middleware/sse_auth.go
package middleware

import (
	"log"
	"strings"

	"phunction/services"

	"github.com/gofiber/fiber/v2"
)

// SSEAuthMiddleware authenticates EventSource connections. The browser
// EventSource API cannot set headers, so SSE routes take the access token as
// a `token` query param and validate it against the auth service directly.
//
// Usage:
//
//	app.Get("/events/:id/attendees/stream", middleware.SSEAuthMiddleware(authClient), eventService.StreamEventAttendeesSSE)
func SSEAuthMiddleware(authClient *services.AuthServiceClient) fiber.Handler {
	return func(c *fiber.Ctx) error {
		accessToken := strings.TrimSpace(c.Query("token"))
		if accessToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "missing token in query",
			})
		}

		resp, err := authClient.ValidateToken(accessToken)
		if err != nil {
			log.Printf("[SSEAuth] ❌ Validation failed on %s: %v", c.Path(), err)
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "unauthorized",
			})
		}

		c.Locals("user_id", resp.UserID)
		return c.Next()
	}
}
