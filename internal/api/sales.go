package api

import (
	"errors"
	"net/http"

	"pharmacy/m/domain"
)

type saleRequest struct {
	MedicineID int64 `json:"medicine_id" validate:"required,gt=0"`
	Quantity   int64 `json:"quantity" validate:"required,gt=0,lte=2147483647"`
}

// Outcomes reported on the sales counter.
const (
	saleCreated           = "created"
	saleInsufficientStock = "insufficient_stock"
	saleNotFound          = "not_found"
	saleRejected          = "rejected"
	saleFailed            = "error"
)

func saleOutcome(err error) string {
	switch {
	case err == nil:
		return saleCreated
	case errors.Is(err, domain.ErrInsufficientStock):
		return saleInsufficientStock
	case errors.Is(err, domain.ErrNotFound):
		return saleNotFound
	case errors.Is(err, domain.ErrValidation):
		return saleRejected
	}
	return saleFailed
}

// createSale records a sale by the calling identity.
func (h *Handler) createSale(w http.ResponseWriter, r *http.Request) {
	seller, ok := identityFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "missing identity")
		return
	}

	var req saleRequest
	if err := h.decodeJSON(r, &req); err != nil {
		h.recordSale(saleRejected, 0)
		h.respondErr(w, r, err)
		return
	}

	receipt, err := h.sales.Create(r.Context(), req.MedicineID, req.Quantity, seller)
	h.recordSale(saleOutcome(err), req.Quantity)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, receipt)
}

func (h *Handler) recordSale(outcome string, units int64) {
	if h.metrics != nil {
		h.metrics.RecordSale(outcome, units)
	}
}

func (h *Handler) listSales(w http.ResponseWriter, r *http.Request) {
	sales, err := h.sales.List(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sales)
}

func (h *Handler) getSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	sale, err := h.sales.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, sale)
}

// deleteSale removes a sale and returns its units to stock.
func (h *Handler) deleteSale(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	if err := h.sales.Delete(r.Context(), id); err != nil {
		h.respondErr(w, r, err)
		return
	}
	respondMessage(w, "sale deleted")
}
