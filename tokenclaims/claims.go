// Package tokenclaims extracts the authorization claims map from bearer
// tokens that an upstream authenticator has already verified. It only
// parses: token signatures are never checked here, authentication being out
// of scope for the authorization core.
package tokenclaims

import (
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/kudeepakh/farm-authz/authz"
)

// ErrNotBearer is returned when an Authorization header does not carry a
// bearer token.
var ErrNotBearer = errors.New("authorization header is not a bearer token")

// Extract parses a compact JWT and returns its claims as the loosely-typed
// map the authorization manager consumes.
func Extract(tokenString string) (authz.Claims, error) {
	parser := jwt.NewParser(jwt.WithoutClaimsValidation())

	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	return normalize(claims), nil
}

// FromToken returns the claims map of an already-parsed token.
func FromToken(token *jwt.Token) (authz.Claims, error) {
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("unexpected claims type")
	}
	return normalize(claims), nil
}

// FromAuthorizationHeader strips the Bearer scheme and extracts the claims.
func FromAuthorizationHeader(header string) (authz.Claims, error) {
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return nil, ErrNotBearer
	}
	return Extract(strings.TrimSpace(strings.TrimPrefix(header, prefix)))
}

// normalize copies the claims and maps the standard "sub" subject onto
// user_id when the token carries no explicit user_id claim.
func normalize(claims jwt.MapClaims) authz.Claims {
	out := make(authz.Claims, len(claims))
	for k, v := range claims {
		out[k] = v
	}
	if _, ok := out["user_id"]; !ok {
		if sub, err := claims.GetSubject(); err == nil && sub != "" {
			out["user_id"] = sub
		}
	}
	return out
}
