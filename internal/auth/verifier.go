package auth

import (
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims represents the parsed token claims.
type Claims struct {
	Subject string   `json:"sub"`
	Scopes  []string `json:"scopes"`
}

// Scope constants.
const (
	ScopeRead      = "read"
	ScopeControl   = "control"
	ScopeTelemetry = "telemetry"
)

// Verifier handles JWT token verification.
type Verifier struct {
	secret []byte
}

// NewVerifier creates a verifier for HS256-signed tokens.
func NewVerifier(secret string) (*Verifier, error) {
	if secret == "" {
		return nil, fmt.Errorf("HS256 requires a secret key")
	}
	return &Verifier{secret: []byte(secret)}, nil
}

// VerifyToken verifies a JWT token and returns the claims.
func (v *Verifier) VerifyToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token cannot be empty")
	}

	token, err := jwt.ParseWithClaims(tokenString, &jwt.MapClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("token verification failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}

	mapClaims, ok := token.Claims.(*jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("invalid claims type")
	}
	return extractClaims(mapClaims)
}

func extractClaims(mapClaims *jwt.MapClaims) (*Claims, error) {
	claims := &Claims{}

	if sub, ok := (*mapClaims)["sub"].(string); ok {
		claims.Subject = sub
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("missing sub claim")
	}

	scopes, err := extractStringSlice(mapClaims, "scopes")
	if err != nil {
		return nil, err
	}
	claims.Scopes = scopes

	return claims, nil
}

func extractStringSlice(mapClaims *jwt.MapClaims, key string) ([]string, error) {
	raw, ok := (*mapClaims)[key]
	if !ok {
		return nil, nil
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, fmt.Errorf("claim %q is not a list", key)
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("claim %q contains a non-string entry", key)
		}
		out = append(out, s)
	}
	return out, nil
}
