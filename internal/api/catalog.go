package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/Spok95/stockbook/internal/domain/bundles"
	"github.com/Spok95/stockbook/internal/domain/materials"
	"github.com/Spok95/stockbook/internal/domain/purchases"
	"github.com/Spok95/stockbook/internal/reports"
)

func (h *Handler) createProduct(w http.ResponseWriter, r *http.Request) {
	var in bundles.Bundle
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	in.ID = ""

	res, err := h.orders.CreateProductBundle(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createdResponse{ID: res.ID})
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	list, err := h.bundles.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createMaterial(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        string         `json:"name"`
		Unit        materials.Unit `json:"unit"`
		Quantity    float64        `json:"quantity"`
		CostPerUnit float64        `json:"costPerUnit"`
	}
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	m, err := h.materials.Create(r.Context(), in.Name, in.Unit, in.Quantity, in.CostPerUnit)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, m)
}

// updateMaterial меняет название и/или цену за единицу. Остаток здесь не правится.
func (h *Handler) updateMaterial(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Name        *string  `json:"name"`
		CostPerUnit *float64 `json:"costPerUnit"`
	}
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	id := mux.Vars(r)["id"]

	m, err := h.materials.GetByID(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if m == nil {
		notFound(w, "material")
		return
	}
	if in.Name != nil {
		if m, err = h.materials.UpdateName(r.Context(), id, *in.Name); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	if in.CostPerUnit != nil {
		if m, err = h.materials.UpdateCost(r.Context(), id, *in.CostPerUnit); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, m)
}

func (h *Handler) listMaterials(w http.ResponseWriter, r *http.Request) {
	var (
		list []materials.Material
		err  error
	)
	if q := r.URL.Query().Get("q"); q != "" {
		list, err = h.materials.SearchByName(r.Context(), q)
	} else {
		list, err = h.materials.List(r.Context())
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) createPurchase(w http.ResponseWriter, r *http.Request) {
	var in purchases.Purchase
	if err := decode(r, &in); err != nil {
		badRequest(w, "invalid json: "+err.Error())
		return
	}
	p, err := h.purchases.Create(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) listPurchases(w http.ResponseWriter, r *http.Request) {
	list, err := h.purchases.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) stockReport(w http.ResponseWriter, r *http.Request) {
	mats, err := h.materials.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	moves, err := h.inventory.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := reports.StockXLSX(mats, moves, h.lowStock)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sendXLSX(w, "stock", data)
}

func (h *Handler) marginsReport(w http.ResponseWriter, r *http.Request) {
	invs, err := h.invoices.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := reports.MarginsXLSX(invs, snap)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	sendXLSX(w, "margins", data)
}

func sendXLSX(w http.ResponseWriter, name string, data []byte) {
	fileName := fmt.Sprintf("%s_%s.xlsx", name, time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", "attachment; filename="+fileName)
	_, _ = w.Write(data)
}
