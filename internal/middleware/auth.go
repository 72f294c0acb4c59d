package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/localnerve/actudb/internal/models"
	"github.com/localnerve/actudb/internal/services"
	"github.com/localnerve/actudb/internal/types"
)

// AuthAdmin validates that the request carries an admin session
func AuthAdmin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{models.RoleAdmin})
	}
}

// AuthAnalyst validates that the request carries an analyst or admin session
func AuthAnalyst() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{models.RoleAnalyst, models.RoleAdmin})
	}
}

// AuthViewer validates that the request carries any known session role
func AuthViewer() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return authorize(c, []string{models.RoleViewer, models.RoleAnalyst, models.RoleAdmin})
	}
}

// authorize performs the authorization check and resolves the acting
// identity into request locals.
func authorize(c *fiber.Ctx, roles []string) error {
	session := c.Cookies("cookie_session")
	if session == "" {
		return types.NewForbidden("Authorizer cookie \"cookie_session\" not found")
	}

	actor, err := services.ResolveActor(session, roles)
	if err != nil {
		return types.NewForbidden("Invalid session: %v", err)
	}

	c.Locals("actor", actor)

	return c.Next()
}
