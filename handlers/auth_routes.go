// handlers/auth_routes.go
package handlers

import (
	"strings"

	"phunction/services"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes wires registration and session endpoints. Credentials pass
// straight through to the auth collaborator; the only local write is the
// user document created on registration.
func SetupAuthRoutes(app *fiber.App, authClient *services.AuthServiceClient, userService *services.UserService) {
	app.Post("/auth/register", func(c *fiber.Ctx) error {
		type Req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
			Username string `json:"username"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}
		req.Username = strings.TrimSpace(req.Username)
		if req.Email == "" || req.Password == "" || req.Username == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "email, password, and username are required"})
		}

		// Probe first so an obviously taken username fails before the auth
		// account exists. The create below re-checks; both are lossy under
		// a racing registration (accepted, see CreateUser).
		taken, err := userService.CheckUsernameExists(c.Context(), req.Username)
		if err != nil {
			return fail(c, err)
		}
		if taken {
			return fail(c, services.ErrUsernameTaken)
		}

		session, err := authClient.SignUp(req.Email, req.Password)
		if err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "sign-up failed", "cause": err.Error()})
		}

		user, err := userService.CreateUser(c.Context(), session.UserID, req.Username, req.Email)
		if err != nil {
			return fail(c, err)
		}

		return c.Status(fiber.StatusCreated).JSON(fiber.Map{
			"user":         user,
			"access_token": session.AccessToken,
		})
	})

	app.Post("/auth/login", func(c *fiber.Ctx) error {
		type Req struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid JSON", "cause": err.Error()})
		}

		session, err := authClient.SignIn(req.Email, req.Password)
		if err != nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "invalid credentials"})
		}
		return c.JSON(fiber.Map{
			"user_id":      session.UserID,
			"access_token": session.AccessToken,
		})
	})

	app.Post("/auth/logout", func(c *fiber.Ctx) error {
		token := strings.TrimPrefix(c.Get("X-Session-Token"), "Bearer ")
		if token == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "missing X-Session-Token"})
		}
		if err := authClient.SignOut(token); err != nil {
			return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{"error": "sign-out failed", "cause": err.Error()})
		}
		return c.JSON(fiber.Map{"message": "signed out"})
	})
}
