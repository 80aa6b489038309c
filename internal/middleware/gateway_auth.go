package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/slavkostrov/playlist-selection/pkg/response"
)

// GatewayAuthMiddleware trusts the identity headers stamped by the
// gateway's ForwardAuth hop. Only reachable behind Traefik, where the
// verify endpoint has already rejected unauthenticated requests.
func GatewayAuthMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		userID := c.Get("X-User-Id")
		if userID == "" {
			return response.Unauthorized(c, "Missing user identity headers")
		}

		c.Locals("userId", userID)
		c.Locals("email", c.Get("X-User-Email"))
		c.Locals("name", c.Get("X-User-Name"))
		c.Locals("spotifyId", c.Get("X-User-Spotify-Id"))

		return c.Next()
	}
}
