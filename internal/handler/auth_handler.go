package handler

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/slavkostrov/playlist-selection/internal/auth"
)

// AuthHandler backs the gateway's ForwardAuth hop: Traefik calls
// GET /auth/verify with the client's Authorization header and copies
// the X-User-* response headers onto the forwarded request.
type AuthHandler struct {
	verifier  auth.TokenVerifier
	jwtSecret string
}

func NewAuthHandler(verifier auth.TokenVerifier, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		verifier:  verifier,
		jwtSecret: jwtSecret,
	}
}

// Verify answers 200 with identity headers for a valid bearer token,
// 401 otherwise. OIDC tokens are tried first, then legacy HMAC tokens
// when a secret is configured.
func (h *AuthHandler) Verify(c *fiber.Ctx) error {
	tokenString, ok := bearerToken(c.Get("Authorization"))
	if !ok {
		return c.SendStatus(fiber.StatusUnauthorized)
	}

	if h.verifier != nil {
		claims, err := h.verifier.Validate(tokenString)
		if err == nil {
			c.Set("X-User-Id", claims.UserID)
			c.Set("X-User-Email", claims.Email)
			c.Set("X-User-Name", claims.Name)
			return c.SendStatus(fiber.StatusOK)
		}
		if h.jwtSecret == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}
	}

	if h.jwtSecret != "" {
		claims, err := auth.ValidateLegacyToken(tokenString, h.jwtSecret)
		if err == nil {
			c.Set("X-User-Id", claims.UserID)
			c.Set("X-User-Email", claims.Email)
			c.Set("X-User-Spotify-Id", claims.SpotifyID)
			return c.SendStatus(fiber.StatusOK)
		}
	}

	return c.SendStatus(fiber.StatusUnauthorized)
}

// bearerToken extracts the token from an "Authorization: Bearer x" header.
func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}
