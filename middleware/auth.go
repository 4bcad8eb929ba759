// middleware/auth.go
package middleware

import (
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// keyFrom accepts the key either as "Authorization: Bearer <key>" or in
// the given dedicated header.
func keyFrom(c *fiber.Ctx, header string) string {
	if v := strings.TrimSpace(c.Get(header)); v != "" {
		return v
	}
	auth := c.Get(fiber.HeaderAuthorization)
	token := strings.TrimPrefix(auth, "Bearer ")
	if token == auth {
		token = auth
	}
	return strings.TrimSpace(token)
}

// SubmitKeyMiddleware gates participant submission endpoints with the
// shared season key. An empty configured key disables the check (local
// development).
func SubmitKeyMiddleware(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Next()
		}
		if keyFrom(c, "X-Submit-Key") != expected {
			log.Printf("🚫 [SUBMIT_AUTH] Invalid or missing submit key for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "submit key missing or invalid",
			})
		}
		return c.Next()
	}
}

// AdminKeyMiddleware gates the organizer endpoints (review queue, board
// import, manual publish).
func AdminKeyMiddleware(expected string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if expected == "" {
			return c.Next()
		}
		if keyFrom(c, "X-Admin-Key") != expected {
			log.Printf("🚫 [ADMIN_AUTH] Invalid or missing admin key for %s", c.Path())
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "admin key missing or invalid",
			})
		}
		return c.Next()
	}
}
