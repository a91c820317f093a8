package handlers

import (
	"net/http"

	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func requestIDFrom(ctx *gin.Context) string {
	if s := ctx.GetString(middlewares.CtxRequestID); s != "" {
		return s
	}

	// fallback header
	return ctx.GetHeader("X-Request-Id")
}

// RespondError writes the flat failure body {"error": message, "requestId": ...}.
// extra keys are merged in.
func RespondError(ctx *gin.Context, status int, message string, extra gin.H) {
	body := gin.H{"error": message}
	if id := requestIDFrom(ctx); id != "" {
		body["requestId"] = id
	}
	for k, v := range extra {
		body[k] = v
	}
	ctx.AbortWithStatusJSON(status, body)
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	var extra gin.H
	if details != nil {
		extra = gin.H{"details": details}
	}
	RespondError(ctx, http.StatusBadRequest, message, extra)
}

func RespondNotFound(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusNotFound, message, nil)
}

func RespondUnauthorized(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusUnauthorized, message, nil)
}

func RespondForbidden(ctx *gin.Context, message string, extra gin.H) {
	RespondError(ctx, http.StatusForbidden, message, extra)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, message, nil)
}
