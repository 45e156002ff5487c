package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Spok95/stockbook/internal/cost"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/reports"
)

type createdResponse struct {
	ID         string   `json:"id"`
	PaymentURL string   `json:"paymentUrl,omitempty"`
	Warning    string   `json:"warning,omitempty"`
	Clamped    []string `json:"clampedMaterials,omitempty"`
}

func (h *Handler) createInvoice(w http.ResponseWriter, r *http.Request) {
	var in invoices.Invoice
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	in.ID = ""

	res, err := h.orders.CreateInvoice(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	out := createdResponse{ID: res.ID}
	if h.payments != nil {
		out.PaymentURL = h.payments.PaymentURL(res.ID)
	}
	if res.Warning != nil {
		out.Warning = res.Warning.Error()
	}
	for _, u := range res.Plan.Clamped() {
		out.Clamped = append(out.Clamped, u.MaterialID)
	}
	writeJSON(w, http.StatusCreated, out)
}

type invoiceView struct {
	invoices.Invoice
	Cost   float64 `json:"cost"`
	Margin float64 `json:"margin"`
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	inv, err := h.invoices.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if inv == nil {
		notFound(w, "invoice")
		return
	}
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, invoiceView{
		Invoice: *inv,
		Cost:    cost.OfInvoice(inv.Items, snap),
		Margin:  cost.Margin(*inv, snap),
	})
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	list, err := h.invoices.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) setInvoiceStatus(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Status string `json:"status"`
	}
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	st, err := invoices.ParseStatus(in.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if err := h.invoices.SetStatus(r.Context(), mux.Vars(r)["id"], st); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) invoicePDF(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	inv, err := h.invoices.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if inv == nil {
		notFound(w, "invoice")
		return
	}
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := reports.InvoicePDF(*inv, snap)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=invoice_"+inv.ID+".pdf")
	_, _ = w.Write(data)
}
