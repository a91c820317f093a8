package middlewares

import (
	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/gin-gonic/gin"
)

// RequireRole re-checks the role of an identity already placed on the context
// by Require. Use it for handlers that need a stricter role than their group.
func RequireRole(required user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !Authorized(c, required) {
			return
		}
		c.Next()
	}
}

// Authorized applies the role guard to the identity on the context and writes
// the denial response when it fails.
func Authorized(c *gin.Context, required user.Role) bool {
	var idp *auth.Identity
	if id, ok := IdentityFromContext(c); ok {
		idp = &id
	}

	d := auth.Authorize(idp, required)
	if !d.Allowed {
		AbortDenied(c, d)
		return false
	}
	return true
}
