package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
)

func setupAuthApp(t *testing.T) (*fiber.App, *AuthMiddleware) {
	t.Helper()
	m := NewLegacyAuthMiddleware("test-secret")
	app := fiber.New()
	app.Get("/whoami", m.Authenticate(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": GetUserID(c)})
	})
	return app, m
}

func TestAuthenticateRejectsMissingToken(t *testing.T) {
	app, _ := setupAuthApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticateRejectsMalformedHeader(t *testing.T) {
	app, _ := setupAuthApp(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Token abc")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", resp.StatusCode)
	}
}

func TestAuthenticateAcceptsLegacyToken(t *testing.T) {
	app, m := setupAuthApp(t)

	token, err := m.GenerateToken("user-42", "user@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestGatewayAuthReadsHeaders(t *testing.T) {
	app := fiber.New()
	app.Get("/whoami", GatewayAuthMiddleware(), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"userId": GetUserID(c)})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/whoami", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("without identity headers: status = %d, want 401", resp.StatusCode)
	}

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-User-Id", "user-42")
	resp, err = app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("with identity headers: status = %d, want 200", resp.StatusCode)
	}
}
