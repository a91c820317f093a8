package handlers

import (
	"bytes"
	"encoding/csv"
	"log/slog"
	"net/http"

	"github.com/geocoder89/fintrack/internal/domain/transaction"
	"github.com/gin-gonic/gin"
)

const reportFilename = "reporte-transacciones.csv"

// es-ES short date, e.g. 1/3/2025
const reportDateLayout = "2/1/2006"

var reportHeader = []string{"ID", "Concepto", "Monto", "Tipo", "Fecha", "Usuario", "Fecha Creación"}

type ReportsHandler struct {
	repo TransactionStore
}

func NewReportsHandler(repo TransactionStore) *ReportsHandler {
	return &ReportsHandler{repo: repo}
}

// CSV exports every transaction, newest first, as an attachment.
func (h *ReportsHandler) CSV(ctx *gin.Context) {
	items, err := h.repo.List(ctx.Request.Context(), transaction.ListFilter{})
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "csv_report_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	b, err := buildCSV(items)
	if err != nil {
		slog.Default().ErrorContext(ctx.Request.Context(), "csv_report_failed", "err", err)
		RespondInternal(ctx, "Error interno del servidor")
		return
	}

	ctx.Header("Content-Disposition", `attachment; filename="`+reportFilename+`"`)
	ctx.Data(http.StatusOK, "text/csv; charset=utf-8", b)
}

func buildCSV(items []transaction.Transaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportHeader); err != nil {
		return nil, err
	}

	for _, t := range items {
		owner := "N/A"
		if t.User != nil && t.User.Name != "" {
			owner = t.User.Name
		}

		row := []string{
			t.ID,
			t.Concept,
			t.Amount.String(),
			string(t.Type),
			t.Date.Format(reportDateLayout),
			owner,
			t.CreatedAt.Format(reportDateLayout),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}

	w.Flush()
	return buf.Bytes(), w.Error()
}
