package middleware

import (
	"context"

	"github.com/kudeepakh/farm-authz/authz"
)

// Context key type to avoid collisions
type contextKey string

const (
	// claimsKey is the context key for the principal's claims
	claimsKey contextKey = "authz_claims"

	// requestIDKey is the context key for the request ID
	requestIDKey contextKey = "request_id"
)

// WithClaims adds the principal's claims to the context.
func WithClaims(ctx context.Context, claims authz.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// ClaimsFromContext retrieves the principal's claims from the context, or
// nil when no authenticated principal is attached.
func ClaimsFromContext(ctx context.Context) authz.Claims {
	if val := ctx.Value(claimsKey); val != nil {
		if claims, ok := val.(authz.Claims); ok {
			return claims
		}
	}
	return nil
}

// WithRequestID adds a request ID to the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves the request ID from the context.
func RequestIDFromContext(ctx context.Context) string {
	if val := ctx.Value(requestIDKey); val != nil {
		if requestID, ok := val.(string); ok {
			return requestID
		}
	}
	return ""
}
