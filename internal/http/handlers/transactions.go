package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/geocoder89/fintrack/internal/domain/transaction"
	"github.com/geocoder89/fintrack/internal/domain/user"
	"github.com/geocoder89/fintrack/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type TransactionStore interface {
	List(ctx context.Context, filter transaction.ListFilter) ([]transaction.Transaction, error)
	GetByID(ctx context.Context, id string) (transaction.Transaction, error)
	Create(ctx context.Context, t transaction.Transaction) (transaction.Transaction, error)
	Update(ctx context.Context, id string, in transaction.Input, date time.Time) (transaction.Transaction, error)
	Delete(ctx context.Context, id string) error
}

type TransactionsHandler struct {
	repo TransactionStore
}

func NewTransactionsHandler(repo TransactionStore) *TransactionsHandler {
	return &TransactionsHandler{repo: repo}
}

type listTransactionsQuery struct {
	Type string `form:"type" binding:"omitempty,oneof=INCOME EXPENSE"`
	Q    string `form:"q"`
	From string `form:"from"`
	To   string `form:"to"`
}

func parseListFilter(ctx *gin.Context) (transaction.ListFilter, bool) {
	var q listTransactionsQuery
	if err := ctx.ShouldBindQuery(&q); err != nil {
		message, details := parseBindError(err, &q)
		RespondBadRequest(ctx, message, details)
		return transaction.ListFilter{}, false
	}

	var f transaction.ListFilter

	if q.Type != "" {
		t := transaction.Type(q.Type)
		f.Type = &t
	}

	if s := strings.TrimSpace(q.Q); s != "" {
		f.Query = &s
	}

	if q.From != "" {
		from, err := transaction.ParseDate(q.From)
		if err != nil {
			RespondBadRequest(ctx, "Fecha inválida", gin.H{"field": "from"})
			return transaction.ListFilter{}, false
		}
		f.From = &from
	}

	if q.To != "" {
		to, err := transaction.ParseDate(q.To)
		if err != nil {
			RespondBadRequest(ctx, "Fecha inválida", gin.H{"field": "to"})
			return transaction.ListFilter{}, false
		}
		// a plain date covers that whole day
		if len(strings.TrimSpace(q.To)) == len(time.DateOnly) {
			to = to.Add(24*time.Hour - time.Nanosecond)
		}
		f.To = &to
	}

	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		RespondBadRequest(ctx, "La fecha final debe ser posterior a la inicial", nil)
		return transaction.ListFilter{}, false
	}

	return f, true
}

func (h *TransactionsHandler) List(ctx *gin.Context) {
	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}

	items, err := h.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "list_transactions_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	if items == nil {
		items = []transaction.Transaction{}
	}

	RespondJSONWithETag(ctx, http.StatusOK, items)
}

func (h *TransactionsHandler) Summary(ctx *gin.Context) {
	filter, ok := parseListFilter(ctx)
	if !ok {
		return
	}

	items, err := h.repo.List(ctx.Request.Context(), filter)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "summary_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	RespondJSONWithETag(ctx, http.StatusOK, transaction.Summarize(items))
}

func (h *TransactionsHandler) Create(ctx *gin.Context) {
	if !requireRole(ctx, user.RoleAdmin, "crear transacciones") {
		return
	}

	var in transaction.Input
	if !BindJSON(ctx, &in) {
		return
	}

	date, err := in.ParsedDate()
	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	uid, _ := middlewares.UserIDFromContext(ctx)

	created, err := h.repo.Create(ctx.Request.Context(), transaction.NewFromInput(in, date, uid))
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "create_transaction_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	ctx.JSON(http.StatusCreated, created)
}

func (h *TransactionsHandler) Update(ctx *gin.Context) {
	if !requireRole(ctx, user.RoleAdmin, "actualizar transacciones") {
		return
	}

	var in transaction.Input
	if !BindJSON(ctx, &in) {
		return
	}

	date, err := in.ParsedDate()
	if err != nil {
		RespondBadRequest(ctx, err.Error(), nil)
		return
	}

	updated, err := h.repo.Update(ctx.Request.Context(), ctx.Param("id"), in, date)
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			RespondNotFound(ctx, "Transacción no encontrada")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "update_transaction_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	ctx.JSON(http.StatusOK, updated)
}

func (h *TransactionsHandler) Delete(ctx *gin.Context) {
	if !requireRole(ctx, user.RoleAdmin, "eliminar transacciones") {
		return
	}

	err := h.repo.Delete(ctx.Request.Context(), ctx.Param("id"))
	if err != nil {
		if errors.Is(err, transaction.ErrNotFound) {
			RespondNotFound(ctx, "Transacción no encontrada")
			return
		}
		slog.Default().ErrorContext(ctx.Request.Context(), "delete_transaction_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Transacción eliminada exitosamente"})
}
