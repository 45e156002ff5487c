package payments

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"

	"github.com/Spok95/stockbook/internal/domain/invoices"
)

type Handler struct {
	log      *slog.Logger
	invoices *invoices.Repo
}

func NewHandler(log *slog.Logger, invoicesRepo *invoices.Repo) *Handler {
	return &Handler{
		log:      log,
		invoices: invoicesRepo,
	}
}

// ServeHTTP эмулирует "успешную оплату":
// /payments/pay?invoice=0101 -> помечаем инвойс как paid и показываем простую HTML-страницу.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	invoiceID := r.URL.Query().Get("invoice")
	if invoiceID == "" {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("missing invoice parameter"))
		return
	}

	inv, err := h.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		h.log.Error("failed to load invoice", "invoice_id", invoiceID, "err", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("failed to load invoice"))
		return
	}
	if inv == nil {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("invoice not found"))
		return
	}

	if err := h.invoices.SetStatus(ctx, invoiceID, invoices.StatusPaid); err != nil {
		h.log.Error("failed to mark invoice as paid",
			"invoice_id", invoiceID,
			"err", err,
		)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("failed to update invoice status"))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = fmt.Fprintf(w,
		"<html><body><h1>Оплата прошла</h1><p>Инвойс #%s помечен как оплаченный.</p></body></html>",
		html.EscapeString(invoiceID),
	)
}
