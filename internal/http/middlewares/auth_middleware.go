package middlewares

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/geocoder89/fintrack/internal/actorctx"
	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/gin-gonic/gin"
)

const (
	msgNotAuthenticated = "No autenticado"
	msgAuthError        = "Error de autenticación"
)

// Keep this small interface so tests can fake it easily.
type IdentityResolver interface {
	HasCandidate(cookieHeader string) bool
	Resolve(ctx context.Context, cookieHeader string) (auth.Identity, error)
}

type AuthObserver interface {
	ObserveAuth(requiredRole, result string)
}

type noopAuthObserver struct{}

func (noopAuthObserver) ObserveAuth(string, string) {}

type AuthMiddleware struct {
	resolver IdentityResolver
	obs      AuthObserver
}

func NewAuthMiddleware(resolver IdentityResolver, obs AuthObserver) *AuthMiddleware {
	if obs == nil {
		obs = noopAuthObserver{}
	}
	return &AuthMiddleware{resolver: resolver, obs: obs}
}

// RequireAuth admits any authenticated caller.
func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return m.Require("")
}

// Require resolves the caller from the Cookie header and applies the role
// guard. Any fault while doing so is answered with 401; it never lets the
// request through.
func (m *AuthMiddleware) Require(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := m.authenticate(c)
		if err != nil {
			if errors.Is(err, auth.ErrUnauthenticated) {
				m.obs.ObserveAuth(string(required), "unauthenticated")
				slog.Default().DebugContext(c.Request.Context(), "auth_denied",
					"reason", auth.NotAuthenticated, "route", c.FullPath())
				abortUnauthenticated(c)
				return
			}

			m.obs.ObserveAuth(string(required), "error")
			slog.Default().ErrorContext(c.Request.Context(), "auth_failed",
				"err", err, "route", c.FullPath(), "request_id", c.GetString(CtxRequestID))
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgAuthError})
			return
		}

		d := auth.Authorize(&id, required)
		if !d.Allowed {
			m.obs.ObserveAuth(string(required), "forbidden")
			slog.Default().DebugContext(c.Request.Context(), "auth_denied",
				"reason", d.Reason, "user_id", id.ID, "route", c.FullPath())
			AbortDenied(c, d)
			return
		}

		m.obs.ObserveAuth(string(required), "allowed")
		SetIdentity(c, id)
		c.Next()
	}
}

func (m *AuthMiddleware) authenticate(c *gin.Context) (id auth.Identity, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &auth.InfraError{Op: "resolve", Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	header := c.GetHeader("Cookie")
	if !m.resolver.HasCandidate(header) {
		return auth.Identity{}, auth.ErrUnauthenticated
	}

	return m.resolver.Resolve(c.Request.Context(), header)
}

// AbortDenied writes the response for a denied guard decision.
func AbortDenied(c *gin.Context, d auth.Decision) {
	if d.Reason == auth.InsufficientRole {
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":        "Acceso denegado. Rol requerido: " + string(d.RequiredRole),
			"userRole":     d.UserRole,
			"requiredRole": d.RequiredRole,
		})
		return
	}
	abortUnauthenticated(c)
}

func abortUnauthenticated(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msgNotAuthenticated})
}

// SetIdentity stores the caller on the gin context and on the request context.
func SetIdentity(c *gin.Context, id auth.Identity) {
	c.Set(CtxIdentity, id)
	c.Request = c.Request.WithContext(actorctx.WithIdentity(c.Request.Context(), id))
}

func IdentityFromContext(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(CtxIdentity)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok && id.ID != ""
}

func UserIDFromContext(c *gin.Context) (string, bool) {
	id, ok := IdentityFromContext(c)
	return id.ID, ok
}
