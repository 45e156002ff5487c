// Package api JSON-обёртка над orders и репозиториями для веб-клиента.
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Spok95/stockbook/internal/docstore"
	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/catalog"
	"github.com/Spok95/stockbook/internal/domain/inventory"
	"github.com/Spok95/stockbook/internal/domain/invoices"
	"github.com/Spok95/stockbook/internal/domain/materials"
	"github.com/Spok95/stockbook/internal/domain/purchases"
	"github.com/Spok95/stockbook/internal/infra/payments"
	"github.com/Spok95/stockbook/internal/orders"
	"github.com/Spok95/stockbook/internal/sequence"
)

type Handler struct {
	log       *slog.Logger
	orders    *orders.Service
	catalog   *catalog.Repo
	materials *materials.Repo
	bundles   *bundles.Repo
	invoices  *invoices.Repo
	purchases *purchases.Repo
	inventory *inventory.Repo
	payments  *payments.Service
	lowStock  float64
}

func New(log *slog.Logger, store docstore.Store, ordersSvc *orders.Service, paymentsSvc *payments.Service, lowStock float64) *Handler {
	return &Handler{
		log:       log,
		orders:    ordersSvc,
		catalog:   catalog.NewRepo(store),
		materials: materials.NewRepo(store),
		bundles:   bundles.NewRepo(store),
		invoices:  invoices.NewRepo(store),
		purchases: purchases.NewRepo(store),
		inventory: inventory.NewRepo(store),
		payments:  paymentsSvc,
		lowStock:  lowStock,
	}
}

func (h *Handler) Mount(r *mux.Router) {
	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/invoices", h.createInvoice).Methods(http.MethodPost)
	api.HandleFunc("/invoices", h.listInvoices).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}", h.getInvoice).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}/pdf", h.invoicePDF).Methods(http.MethodGet)
	api.HandleFunc("/invoices/{id}/status", h.setInvoiceStatus).Methods(http.MethodPost)

	api.HandleFunc("/products", h.createProduct).Methods(http.MethodPost)
	api.HandleFunc("/products", h.listProducts).Methods(http.MethodGet)

	api.HandleFunc("/materials", h.createMaterial).Methods(http.MethodPost)
	api.HandleFunc("/materials", h.listMaterials).Methods(http.MethodGet)
	api.HandleFunc("/materials/{id}", h.updateMaterial).Methods(http.MethodPatch)

	api.HandleFunc("/purchases", h.createPurchase).Methods(http.MethodPost)
	api.HandleFunc("/purchases", h.listPurchases).Methods(http.MethodGet)

	api.HandleFunc("/reports/stock.xlsx", h.stockReport).Methods(http.MethodGet)
	api.HandleFunc("/reports/margins.xlsx", h.marginsReport).Methods(http.MethodGet)

	if h.payments != nil {
		r.Handle("/payments/pay", payments.NewHandler(h.log, h.invoices)).Methods(http.MethodGet)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, invoices.ErrInvalid),
		errors.Is(err, invoices.ErrInvalidStatus),
		errors.Is(err, bundles.ErrInvalid),
		errors.Is(err, materials.ErrInvalid),
		errors.Is(err, purchases.ErrInvalid):
		status = http.StatusBadRequest
	case errors.Is(err, docstore.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, sequence.ErrAllocationConflict):
		status = http.StatusConflict
	case errors.Is(err, orders.ErrPersistence):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func decode(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	return dec.Decode(dst)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}

func notFound(w http.ResponseWriter, what string) {
	writeJSON(w, http.StatusNotFound, map[string]string{"error": what + " not found"})
}
