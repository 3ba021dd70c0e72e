package middleware

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/kudeepakh/farm-authz/authz"
	"github.com/kudeepakh/farm-authz/tokenclaims"
	"github.com/kudeepakh/farm-authz/utils"
	"go.uber.org/zap"
)

// ManagerFactory builds the per-request authorization manager from claims.
// The factory closes over process-wide collaborators (engine, policy
// registry); the manager it returns lives for one request.
type ManagerFactory func(claims authz.Claims) *authz.Manager

// ResourceLoader fetches the resource a request addresses, so ownership and
// policy checks can run against it. Returning a nil resource denies the
// request.
type ResourceLoader func(r *http.Request) (any, error)

// Authorizer provides authorization enforcement middleware.
type Authorizer struct {
	newManager ManagerFactory
	logger     *zap.Logger
}

// NewAuthorizer creates an Authorizer.
func NewAuthorizer(newManager ManagerFactory, logger *zap.Logger) *Authorizer {
	return &Authorizer{
		newManager: newManager,
		logger:     logger,
	}
}

// ExtractClaims pulls bearer-token claims into the request context and
// assigns a request ID. Requests without a parseable bearer token are
// rejected. This must run before the Require* middleware.
func (a *Authorizer) ExtractClaims(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := tokenclaims.FromAuthorizationHeader(r.Header.Get("Authorization"))
		if err != nil {
			a.logger.Debug("rejecting request without claims",
				zap.String("path", r.URL.Path),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "")
			return
		}

		ctx := WithRequestID(r.Context(), uuid.NewString())
		ctx = WithClaims(ctx, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequirePermission denies the request unless the principal holds the
// permission.
func (a *Authorizer) RequirePermission(permission string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "")
				return
			}

			manager := a.newManager(claims)
			if manager.Cannot(permission) {
				a.logger.Warn("permission denied",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("permission", permission),
					zap.String("user_id", claims.UserID()))
				_ = utils.WriteForbidden(w, "Insufficient permissions")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequireAccess loads the addressed resource and runs the full layered
// decision against it: base permission, policy engine, ownership.
func (a *Authorizer) RequireAccess(action string, load ResourceLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				_ = utils.WriteUnauthorized(w, "")
				return
			}

			resource, err := load(r)
			if err != nil {
				a.logger.Error("failed to load resource for authorization",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("action", action),
					zap.Error(err))
				_ = utils.WriteNotFound(w, "")
				return
			}

			manager := a.newManager(claims)
			if !manager.CanAccess(resource, action, nil) {
				a.logger.Warn("access denied",
					zap.String("request_id", RequestIDFromContext(r.Context())),
					zap.String("action", action),
					zap.String("user_id", claims.UserID()))
				_ = utils.WriteForbidden(w, "")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
