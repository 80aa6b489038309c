package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/slavkostrov/playlist-selection/internal/auth"
	"github.com/slavkostrov/playlist-selection/pkg/response"
)

// AuthMiddleware authenticates API requests in direct (non-gateway)
// mode. OIDC tokens verify against the JWKS; a configured secret keeps
// legacy HMAC tokens working as a fallback.
type AuthMiddleware struct {
	verifier  auth.TokenVerifier
	jwtSecret string
}

func NewAuthMiddleware(verifier auth.TokenVerifier) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier}
}

func NewAuthMiddlewareWithFallback(verifier auth.TokenVerifier, jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{verifier: verifier, jwtSecret: jwtSecret}
}

// NewLegacyAuthMiddleware accepts only HMAC tokens. Used for local
// development and tests.
func NewLegacyAuthMiddleware(jwtSecret string) *AuthMiddleware {
	return &AuthMiddleware{jwtSecret: jwtSecret}
}

// Authenticate validates the bearer token and stores the caller's
// identity in the request locals.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get("Authorization")
		if header == "" {
			return response.Unauthorized(c, "Missing authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return response.Unauthorized(c, "Invalid authorization header format")
		}
		tokenString := parts[1]

		if m.verifier != nil {
			if claims, err := m.verifier.Validate(tokenString); err == nil {
				c.Locals("userId", claims.UserID)
				c.Locals("email", claims.Email)
				c.Locals("name", claims.Name)
				c.Locals("claims", claims)
				return c.Next()
			}
			if m.jwtSecret == "" {
				return response.Unauthorized(c, "Invalid or expired token")
			}
		}

		if m.jwtSecret != "" {
			claims, err := auth.ValidateLegacyToken(tokenString, m.jwtSecret)
			if err != nil {
				return response.Unauthorized(c, "Invalid or expired token")
			}
			c.Locals("userId", claims.UserID)
			c.Locals("email", claims.Email)
			c.Locals("spotifyId", claims.SpotifyID)
			c.Locals("claims", claims)
			return c.Next()
		}

		return response.Unauthorized(c, "Authentication not configured")
	}
}

// GenerateToken issues a legacy HMAC token. Used by tests and the local
// development flow.
func (m *AuthMiddleware) GenerateToken(userID, email string) (string, error) {
	if m.jwtSecret == "" {
		return "", jwt.ErrTokenNotValidYet
	}

	claims := auth.LegacyClaims{
		UserID: userID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: "playlist-selection-api",
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(m.jwtSecret))
}

// GetUserID reads the authenticated user id from the request locals.
func GetUserID(c *fiber.Ctx) string {
	id, _ := c.Locals("userId").(string)
	return id
}

func GetUserEmail(c *fiber.Ctx) string {
	email, _ := c.Locals("email").(string)
	return email
}

func GetUserName(c *fiber.Ctx) string {
	name, _ := c.Locals("name").(string)
	return name
}

// GetSpotifyID reads the caller's catalog identity, set by legacy
// tokens and the gateway header mode.
func GetSpotifyID(c *fiber.Ctx) string {
	id, _ := c.Locals("spotifyId").(string)
	return id
}
