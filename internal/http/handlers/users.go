package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/gin-gonic/gin"
)

type UserStore interface {
	List(ctx context.Context) ([]user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, in user.UserInput) (user.User, error)
	Update(ctx context.Context, id string, in user.UserInput) (user.User, error)
	Delete(ctx context.Context, id string) error
}

// SessionEvictor drops cached sessions of a user whose account changed. It is
// optional: without it cached entries age out on their own.
type SessionEvictor interface {
	EvictUser(ctx context.Context, userID string)
}

type UsersHandler struct {
	repo    UserStore
	evictor SessionEvictor
}

func NewUsersHandler(repo UserStore, evictor SessionEvictor) *UsersHandler {
	return &UsersHandler{repo: repo, evictor: evictor}
}

type deleteUserRequest struct {
	UserID string `json:"userId"`
}

func (h *UsersHandler) List(ctx *gin.Context) {
	users, err := h.repo.List(ctx.Request.Context())
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "list_users_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	if users == nil {
		users = []user.User{}
	}
	ctx.JSON(http.StatusOK, users)
}

func (h *UsersHandler) Create(ctx *gin.Context) {
	var in user.UserInput
	if !BindJSON(ctx, &in) {
		return
	}

	created, err := h.repo.Create(ctx.Request.Context(), in.Normalized(user.RoleUser))
	if err != nil {
		if errors.Is(err, user.ErrEmailAlreadyUsed) {
			RespondBadRequest(ctx, "El email ya está registrado", nil)
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "create_user_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

// Update replaces name and email. An omitted role keeps the stored one.
func (h *UsersHandler) Update(ctx *gin.Context) {
	var in user.UserInput
	if !BindJSON(ctx, &in) {
		return
	}

	id := ctx.Param("id")
	updated, err := h.repo.Update(ctx.Request.Context(), id, in.Normalized(""))
	if err != nil {
		switch {
		case errors.Is(err, user.ErrNotFound):
			RespondNotFound(ctx, "Usuario no encontrado")
		case errors.Is(err, user.ErrEmailAlreadyUsed):
			RespondBadRequest(ctx, "El email ya está registrado por otro usuario", nil)
		default:
			slog.Default().ErrorContext(ctx.Request.Context(), "update_user_failed", "err", err)
			RespondInternal(ctx, "Error interno del servidor")
		}
		return
	}

	h.evict(ctx, id)
	ctx.JSON(http.StatusOK, updated)
}

// Delete takes the id from the path or from a {"userId"} body.
func (h *UsersHandler) Delete(ctx *gin.Context) {
	id := strings.TrimSpace(ctx.Param("id"))
	if id == "" && ctx.Request.ContentLength != 0 {
		var req deleteUserRequest
		if err := ctx.ShouldBindJSON(&req); err != nil {
			message, details := parseBindError(err, &req)
			RespondBadRequest(ctx, message, details)
			return
		}
		id = strings.TrimSpace(req.UserID)
	}

	if id == "" {
		RespondBadRequest(ctx, "Se requiere el ID del usuario", nil)
		return
	}

	target, err := h.repo.GetByID(ctx.Request.Context(), id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Usuario no encontrado")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "delete_user_lookup_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	if target.IsTestAccount() {
		RespondForbidden(ctx, "No se puede eliminar el usuario de pruebas", gin.H{"userEmail": target.Email})
		return
	}

	if err := h.repo.Delete(ctx.Request.Context(), id); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			RespondNotFound(ctx, "Usuario no encontrado")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "delete_user_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	h.evict(ctx, id)
	ctx.JSON(http.StatusOK, gin.H{
		"message":     "Usuario eliminado exitosamente",
		"deletedUser": gin.H{"id": target.ID, "email": target.Email},
	})
}

func (h *UsersHandler) evict(ctx *gin.Context, userID string) {
	if h.evictor != nil {
		h.evictor.EvictUser(ctx.Request.Context(), userID)
	}
}
