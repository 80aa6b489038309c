// Package auth verifies bearer tokens for the API surface: OIDC tokens
// against the identity provider's JWKS, plus HMAC-signed legacy tokens.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"github.com/slavkostrov/playlist-selection/internal/config"
)

const discoveryTimeout = 30 * time.Second

// TokenVerifier validates a bearer token and extracts its claims.
type TokenVerifier interface {
	Validate(tokenString string) (*Claims, error)
	Close() error
}

// Claims carries the identity fields the service reads from an OIDC token.
type Claims struct {
	UserID            string   `json:"sub"`
	Email             string   `json:"email,omitempty"`
	EmailVerified     bool     `json:"email_verified,omitempty"`
	Name              string   `json:"name,omitempty"`
	PreferredUsername string   `json:"preferred_username,omitempty"`
	Roles             []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// JWKSVerifier validates tokens against the issuer's published key set.
// The key set refreshes itself in the background via keyfunc.
type JWKSVerifier struct {
	keys     keyfunc.Keyfunc
	issuer   string
	audience string
}

func NewJWKSVerifier(cfg *config.ZitadelConfig) (*JWKSVerifier, error) {
	if cfg.Issuer == "" {
		return nil, fmt.Errorf("zitadel issuer is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), discoveryTimeout)
	defer cancel()

	jwksURL, err := resolveJWKSEndpoint(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("jwks discovery: %w", err)
	}

	keys, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		return nil, fmt.Errorf("jwks keyfunc: %w", err)
	}

	return &JWKSVerifier{
		keys:     keys,
		issuer:   cfg.Issuer,
		audience: cfg.ClientID,
	}, nil
}

// Validate parses and verifies an OIDC token. The issuer is always
// checked; the audience only when a client id is configured.
func (v *JWKSVerifier) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, v.keys.Keyfunc,
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	if v.audience != "" {
		aud, err := claims.GetAudience()
		if err != nil {
			return nil, fmt.Errorf("read audience: %w", err)
		}
		if !slices.Contains(aud, v.audience) {
			return nil, fmt.Errorf("invalid audience")
		}
	}

	return claims, nil
}

// Close satisfies TokenVerifier; keyfunc manages its refresh goroutine
// internally and needs no explicit teardown.
func (v *JWKSVerifier) Close() error { return nil }

// resolveJWKSEndpoint reads the jwks_uri out of the issuer's OIDC
// discovery document.
func resolveJWKSEndpoint(ctx context.Context, issuer string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		issuer+"/.well-known/openid-configuration", nil)
	if err != nil {
		return "", err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("discovery endpoint returned status %d", resp.StatusCode)
	}

	var doc struct {
		JWKSURI string `json:"jwks_uri"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return "", fmt.Errorf("decode discovery document: %w", err)
	}
	if doc.JWKSURI == "" {
		return "", fmt.Errorf("jwks_uri missing from discovery document")
	}
	return doc.JWKSURI, nil
}
