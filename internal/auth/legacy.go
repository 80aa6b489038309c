package auth

import "github.com/golang-jwt/jwt/v5"

// LegacyClaims are the HMAC-signed tokens issued before the move to
// OIDC. SpotifyID links the account to its catalog identity.
type LegacyClaims struct {
	UserID    string `json:"userId"`
	Email     string `json:"email"`
	SpotifyID string `json:"spotifyId,omitempty"`
	jwt.RegisteredClaims
}

// ValidateLegacyToken parses and verifies an HMAC-signed token. Any
// non-HMAC signing method is rejected before key lookup.
func ValidateLegacyToken(tokenString, secret string) (*LegacyClaims, error) {
	keyFn := func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	}

	token, err := jwt.ParseWithClaims(tokenString, &LegacyClaims{}, keyFn)
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*LegacyClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}
