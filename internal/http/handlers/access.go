package handlers

import (
	"net/http"

	"github.com/geocoder89/fintrack/internal/auth"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

// requireRole is the per-method guard for routes whose group only requires a
// session. action completes "Solo los administradores pueden ...".
func requireRole(ctx *gin.Context, required user.Role, action string) bool {
	var idp *auth.Identity
	if id, ok := middlewares.IdentityFromContext(ctx); ok {
		idp = &id
	}

	d := auth.Authorize(idp, required)
	if d.Allowed {
		return true
	}

	if d.Reason == auth.NotAuthenticated {
		RespondUnauthorized(ctx, "No autenticado")
		return false
	}

	RespondError(ctx, http.StatusForbidden,
		"Acceso denegado. Solo los administradores pueden "+action+".",
		gin.H{"userRole": d.UserRole, "requiredRole": d.RequiredRole})
	return false
}
