package middleware

import (
	"github.com/gofiber/fiber/v2"
)

const currentAPIVersion = "1.0.0"

// VersionMiddleware resolves the requested X-Api-Version, stores it in
// context, and echoes the resolved version on the response.
func VersionMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		version := c.Get("X-Api-Version", currentAPIVersion)

		// Major.minor aliases resolve to the current patch release
		switch version {
		case "1", "1.0":
			version = currentAPIVersion
		}

		c.Locals("apiVersion", version)
		c.Set("X-Api-Version", version)

		return c.Next()
	}
}
